package offersync

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stocksync/internal/application/dto"
)

// Tipos de job.
const (
	JobKindFull    = "full"
	JobKindAccount = "account"
	JobKindSKU     = "sku"
)

const maxRetainedJobs = 500

// job estado mutable de un job en curso.
type job struct {
	mu     sync.Mutex
	status dto.JobStatusDTO
	done   chan struct{}
}

// add suma los resultados de un lote. inSync son ofertas revisadas que no requerían cambio.
func (j *job) add(results []dto.SyncResultDTO, inSync int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Processed += inSync
	j.status.InSync += inSync
	for _, r := range results {
		j.status.Processed++
		switch r.Outcome {
		case dto.OutcomeUpdated:
			j.status.Updated++
		case dto.OutcomeSkipped:
			j.status.Skipped++
		default:
			j.status.Failed++
		}
	}
}

// final estado terminal del job sin publicarlo todavía.
func (j *job) final(at time.Time, errMsg string) dto.JobStatusDTO {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := j.status
	st.State = dto.JobFinished
	st.FinishedAt = &at
	st.Error = errMsg
	return st
}

// finish publica el estado terminal y libera a quienes esperan en done.
func (j *job) finish(st dto.JobStatusDTO) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = st
	close(j.done)
}

func (j *job) snapshot() dto.JobStatusDTO {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// jobRegistry jobs en memoria; conserva los últimos maxRetainedJobs.
type jobRegistry struct {
	mu    sync.Mutex
	jobs  map[string]*job
	order []string
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*job)}
}

func (r *jobRegistry) create(kind string, now time.Time) *job {
	j := &job{
		status: dto.JobStatusDTO{
			ID:        uuid.NewString(),
			Kind:      kind,
			State:     dto.JobRunning,
			StartedAt: now,
		},
		done: make(chan struct{}),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.status.ID] = j
	r.order = append(r.order, j.status.ID)
	for len(r.order) > maxRetainedJobs {
		delete(r.jobs, r.order[0])
		r.order = r.order[1:]
	}
	return j
}

func (r *jobRegistry) get(id string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}
