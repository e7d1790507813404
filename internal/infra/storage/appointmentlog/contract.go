package appointmentlog

import (
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor
