// Package scheduler ejecuta tareas periódicas en proceso. Un disparo que encuentra la
// ejecución anterior de la misma tarea todavía activa se omite.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/domain"
)

// Func cuerpo de una tarea.
type Func func(ctx context.Context) error

type task struct {
	name     string
	schedule Schedule
	fn       Func
	running  atomic.Bool
}

// Scheduler registro de tareas con su planificación.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	started bool
	now     func() time.Time
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New crea un scheduler sin tareas.
func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*task),
		now:    time.Now,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register añade una tarea. Debe llamarse antes de Start.
func (s *Scheduler) Register(name string, sched Schedule, fn Func) error {
	if name == "" || fn == nil {
		return domain.ErrInvalidInput
	}
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: tarea %s: %v", domain.ErrInvalidInput, name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: scheduler ya iniciado", domain.ErrConflict)
	}
	if _, dup := s.tasks[name]; dup {
		return fmt.Errorf("%w: tarea %s", domain.ErrDuplicate, name)
	}
	s.tasks[name] = &task{name: name, schedule: sched, fn: fn}
	return nil
}

// Start lanza un bucle por tarea. Llamadas repetidas no tienen efecto.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, t := range s.tasks {
		s.log.Info().Str("task", t.name).Str("schedule", t.schedule.String()).Msg("tarea programada")
		s.wg.Add(1)
		go s.loop(t)
	}
}

// Stop cancela los bucles y las ejecuciones en curso y espera a que terminen.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Trigger ejecuta la tarea ahora en segundo plano. false si ya estaba corriendo.
func (s *Scheduler) Trigger(name string) (bool, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return false, domain.ErrNotFound
	}
	return s.fire(t), nil
}

// Running indica si la tarea tiene una ejecución activa.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return ok && t.running.Load()
}

func (s *Scheduler) loop(t *task) {
	defer s.wg.Done()
	for {
		now := s.now()
		timer := time.NewTimer(t.schedule.Next(now).Sub(now))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if !s.fire(t) {
				s.log.Warn().Str("task", t.name).Msg("ejecución anterior aún activa, se omite el disparo")
			}
		}
	}
}

// fire inicia una ejecución si la tarea está libre.
func (s *Scheduler) fire(t *task) bool {
	if s.ctx.Err() != nil || !t.running.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer t.running.Store(false)
		start := s.now()
		err := t.fn(s.ctx)
		ev := s.log.Info()
		if err != nil && !errors.Is(err, context.Canceled) {
			ev = s.log.Error().Err(err)
		}
		ev.Str("task", t.name).Dur("elapsed", s.now().Sub(start)).Msg("tarea finalizada")
	}()
	return true
}
