package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// ErrInvalidConfig returned by Validate
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config service configuration loaded from config.toml
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Logs     LogsConfig     `toml:"logs"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Clinic   ClinicConfig   `toml:"clinic"`
}

// ServerConfig HTTP server settings, timeouts in seconds
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig PostgreSQL connection and pool settings
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // seconds
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty means stdout only
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// ClinicConfig scheduling rules of the clinic
type ClinicConfig struct {
	Timezone         string `toml:"timezone"`
	WorkdayStart     string `toml:"workday_start"`
	WorkdayEnd       string `toml:"workday_end"`
	SlotStepMinutes  int    `toml:"slot_step_minutes"`
	MinNoticeMinutes *int   `toml:"min_notice_minutes"`
	DefaultCurrency  string `toml:"default_currency"`
	AllowPastDates   bool   `toml:"allow_past_dates"`
}

// Load reads the file at path, applies defaults for missing values and validates the result
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "clinic-service"
	}

	if c.Clinic.Timezone == "" {
		c.Clinic.Timezone = domain.DefaultTimezone
	}
	if c.Clinic.WorkdayStart == "" {
		c.Clinic.WorkdayStart = domain.DefaultWorkdayStart
	}
	if c.Clinic.WorkdayEnd == "" {
		c.Clinic.WorkdayEnd = domain.DefaultWorkdayEnd
	}
	if c.Clinic.SlotStepMinutes == 0 {
		c.Clinic.SlotStepMinutes = domain.DefaultSlotStepMinutes
	}
	if c.Clinic.MinNoticeMinutes == nil {
		notice := domain.DefaultMinNoticeMinutes
		c.Clinic.MinNoticeMinutes = &notice
	}
	if c.Clinic.DefaultCurrency == "" {
		c.Clinic.DefaultCurrency = domain.DefaultCurrency
	}
}

// Validate rejects settings the booking core cannot work with
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Clinic.Timezone); err != nil {
		return fmt.Errorf("%w: clinic.timezone %q: %w", ErrInvalidConfig, c.Clinic.Timezone, err)
	}

	start, err := types.NewTimeStringFromString(c.Clinic.WorkdayStart)
	if err != nil {
		return fmt.Errorf("%w: clinic.workday_start: %w", ErrInvalidConfig, err)
	}
	end, err := types.NewTimeStringFromString(c.Clinic.WorkdayEnd)
	if err != nil {
		return fmt.Errorf("%w: clinic.workday_end: %w", ErrInvalidConfig, err)
	}
	if !start.IsBefore(end) {
		return fmt.Errorf("%w: clinic.workday_start must be before clinic.workday_end", ErrInvalidConfig)
	}

	if !domain.IsAllowedStep(c.Clinic.SlotStepMinutes) {
		return fmt.Errorf("%w: clinic.slot_step_minutes %d is not one of %v",
			ErrInvalidConfig, c.Clinic.SlotStepMinutes, domain.AllowedStepMinutes)
	}
	if c.Clinic.MinNoticeMinutes != nil && *c.Clinic.MinNoticeMinutes < 0 {
		return fmt.Errorf("%w: clinic.min_notice_minutes must not be negative", ErrInvalidConfig)
	}

	currency := strings.TrimSpace(c.Clinic.DefaultCurrency)
	if len(currency) != domain.CurrencyCodeLength || strings.ToUpper(currency) != currency {
		return fmt.Errorf("%w: clinic.default_currency %q must be a 3-letter uppercase code", ErrInvalidConfig, c.Clinic.DefaultCurrency)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port %d is out of range", ErrInvalidConfig, c.Server.HTTPPort)
	}
	return nil
}

// SchedulingConfig resolves the [clinic] section into the form the booking core consumes.
// Call it on a validated config.
func (c *Config) SchedulingConfig() (domain.SchedulingConfig, error) {
	loc, err := time.LoadLocation(c.Clinic.Timezone)
	if err != nil {
		return domain.SchedulingConfig{}, fmt.Errorf("%w: clinic.timezone: %w", ErrInvalidConfig, err)
	}
	start, err := types.NewTimeStringFromString(c.Clinic.WorkdayStart)
	if err != nil {
		return domain.SchedulingConfig{}, fmt.Errorf("%w: clinic.workday_start: %w", ErrInvalidConfig, err)
	}
	end, err := types.NewTimeStringFromString(c.Clinic.WorkdayEnd)
	if err != nil {
		return domain.SchedulingConfig{}, fmt.Errorf("%w: clinic.workday_end: %w", ErrInvalidConfig, err)
	}

	notice := domain.DefaultMinNoticeMinutes
	if c.Clinic.MinNoticeMinutes != nil {
		notice = *c.Clinic.MinNoticeMinutes
	}

	return domain.SchedulingConfig{
		Location:         loc,
		WorkdayStart:     start,
		WorkdayEnd:       end,
		SlotStepMinutes:  c.Clinic.SlotStepMinutes,
		MinNoticeMinutes: notice,
		DefaultCurrency:  c.Clinic.DefaultCurrency,
		AllowPastDates:   c.Clinic.AllowPastDates,
	}, nil
}
