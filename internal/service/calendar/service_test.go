package calendar

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/logger"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

type fakeSchedules struct {
	windows  []domain.WorkingWindow
	timeOffs []domain.TimeOffException
	err      error
	weekday  int
}

func (f *fakeSchedules) ListWorkingWindows(_ context.Context, _ []int64, weekday int) ([]domain.WorkingWindow, error) {
	f.weekday = weekday
	return f.windows, f.err
}

func (f *fakeSchedules) ListTimeOff(_ context.Context, _ []int64, _ time.Time) ([]domain.TimeOffException, error) {
	return f.timeOffs, nil
}

func TestLoader_Load_GroupsByStaffInInputOrder(t *testing.T) {
	repo := &fakeSchedules{
		windows: []domain.WorkingWindow{
			{ID: 1, StaffID: 2, Weekday: 1, StartTime: types.MustTimeString("09:00"), EndTime: types.MustTimeString("13:00"), IsActive: true},
			{ID: 2, StaffID: 1, Weekday: 1, StartTime: types.MustTimeString("10:00"), EndTime: types.MustTimeString("18:00"), IsActive: true},
			{ID: 3, StaffID: 2, Weekday: 1, StartTime: types.MustTimeString("14:00"), EndTime: types.MustTimeString("18:00"), IsActive: true},
		},
		timeOffs: []domain.TimeOffException{{ID: 7, StaffID: 1}},
	}
	loader := NewLoader(repo, logger.NewWithWriter(io.Discard, "error"))
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cals, err := loader.Load(context.Background(), []domain.Staff{{ID: 2, IsActive: true}, {ID: 1, IsActive: true}}, monday)

	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, 1, repo.weekday)
	assert.Equal(t, int64(2), cals[0].Staff.ID)
	assert.Len(t, cals[0].Windows, 2)
	assert.Empty(t, cals[0].TimeOffs)
	assert.Equal(t, int64(1), cals[1].Staff.ID)
	assert.Len(t, cals[1].Windows, 1)
	assert.Len(t, cals[1].TimeOffs, 1)
}

func TestLoader_Load_EmptyStaffSkipsQueries(t *testing.T) {
	repo := &fakeSchedules{err: errors.New("must not be called"), weekday: -1}
	loader := NewLoader(repo, logger.NewWithWriter(io.Discard, "error"))

	cals, err := loader.Load(context.Background(), nil, time.Now())

	require.NoError(t, err)
	assert.Empty(t, cals)
	assert.Equal(t, -1, repo.weekday)
}

func TestLoader_Load_WrapsRepositoryError(t *testing.T) {
	repo := &fakeSchedules{err: errors.New("connection reset")}
	loader := NewLoader(repo, logger.NewWithWriter(io.Discard, "error"))

	_, err := loader.Load(context.Background(), []domain.Staff{{ID: 1}}, time.Now())

	assert.ErrorIs(t, err, ErrInternal)
}
