package dto

import "time"

// Resultados de una unidad de sincronización (una oferta).
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Estados de un job de sincronización.
const (
	JobRunning  = "running"
	JobFinished = "finished"
)

// UpdateJob trabajo de actualización de una oferta.
type UpdateJob struct {
	AccountID    string `json:"account_id"`
	OfferID      string `json:"offer_id"`
	SKU          string `json:"sku"`
	TargetQty    int    `json:"target_qty"`
	PublishedQty int    `json:"published_qty"`
}

// SyncResultDTO resultado de un UpdateJob.
type SyncResultDTO struct {
	Job      UpdateJob `json:"job"`
	Outcome  string    `json:"outcome"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}

// JobStatusDTO respuesta de GET /api/sync/jobs/:id.
type JobStatusDTO struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	State      string     `json:"state"`
	Processed  int        `json:"processed"`
	InSync     int        `json:"in_sync"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SyncReportDTO informe final de un job, entregado a los ReportWriter.
type SyncReportDTO struct {
	Status  JobStatusDTO    `json:"status"`
	Results []SyncResultDTO `json:"results"`
}

// JobAcceptedResponse respuesta 202 de los endpoints de sincronización.
type JobAcceptedResponse struct {
	JobID string `json:"job_id"`
}

// SyncLockDTO estado de auditoría de un lock.
type SyncLockDTO struct {
	SKU        string    `json:"sku"`
	Owner      string    `json:"owner"`
	Status     string    `json:"status"`
	AcquiredAt time.Time `json:"acquired_at"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OrderPassDTO resultado de una pasada de ingesta de pedidos.
type OrderPassDTO struct {
	AccountID       string    `json:"account_id"`
	WindowFrom      time.Time `json:"window_from"`
	Fetched         int       `json:"fetched"`
	Inserted        int       `json:"inserted"`
	Updated         int       `json:"updated"`
	Deducted        int       `json:"deducted"`
	DeductionErrors int       `json:"deduction_errors"`
	NextWatermark   time.Time `json:"next_watermark"`
}
