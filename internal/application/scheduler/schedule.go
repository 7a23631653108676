package scheduler

import (
	"fmt"
	"time"
)

// Schedule cuándo corre una tarea: cada Every, o a diario a las Hour:Minute (UTC) si Every es 0.
type Schedule struct {
	Every  time.Duration
	Hour   int
	Minute int
}

// Every intervalo fijo.
func Every(d time.Duration) Schedule { return Schedule{Every: d} }

// DailyAt una vez al día a la hora indicada.
func DailyAt(hour, minute int) Schedule { return Schedule{Hour: hour, Minute: minute} }

// Validate rechaza intervalos negativos y horas fuera de rango.
func (s Schedule) Validate() error {
	if s.Every < 0 {
		return fmt.Errorf("intervalo negativo: %s", s.Every)
	}
	if s.Every == 0 && (s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59) {
		return fmt.Errorf("hora diaria inválida: %02d:%02d", s.Hour, s.Minute)
	}
	return nil
}

// Next primer instante de ejecución estrictamente posterior a after.
func (s Schedule) Next(after time.Time) time.Time {
	if s.Every > 0 {
		return after.Add(s.Every)
	}
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s Schedule) String() string {
	if s.Every > 0 {
		return "cada " + s.Every.String()
	}
	return fmt.Sprintf("diario %02d:%02d UTC", s.Hour, s.Minute)
}
