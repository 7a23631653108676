package entity

import "time"

// SyncLockStatus estado de la última sincronización de un SKU.
type SyncLockStatus string

const (
	SyncLockInProgress SyncLockStatus = "in_progress"
	SyncLockSuccess    SyncLockStatus = "success"
	SyncLockError      SyncLockStatus = "error"
)

// DefaultLockTTL tiempo tras el cual un lock in_progress se considera abandonado.
const DefaultLockTTL = 10 * time.Minute

// SyncLock marcador de exclusión mutua por SKU. Nunca se borra: la fila queda como
// registro de auditoría del último estado de sincronización.
type SyncLock struct {
	SKU        string
	Owner      string
	Status     SyncLockStatus
	AcquiredAt time.Time
	LastError  string
	UpdatedAt  time.Time
}

// IsTerminal indica si el estado ya no bloquea nuevas adquisiciones.
func (s SyncLockStatus) IsTerminal() bool {
	return s == SyncLockSuccess || s == SyncLockError
}

// Held indica si el lock sigue vigente en now para el ttl dado.
func (l *SyncLock) Held(now time.Time, ttl time.Duration) bool {
	return l.Status == SyncLockInProgress && now.Sub(l.AcquiredAt) < ttl
}
