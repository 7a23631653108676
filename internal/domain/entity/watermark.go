package entity

import "time"

// Watermark progreso de sincronización de una cuenta de marketplace.
// LastSyncTime no decrece salvo reset explícito.
type Watermark struct {
	AccountID    string
	LastSyncTime time.Time
	LastEventID  string
	UpdatedAt    time.Time
}
