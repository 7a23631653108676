package offersync

import "sync"

// Group barrera de fan-in: cuenta los lotes que reportan y acumula sus resultados.
// Cuando reporta el último, aplana los resultados en orden de llegada y ejecuta final
// exactamente una vez.
type Group[T any] struct {
	mu       sync.Mutex
	expected int
	reported int
	results  []T
	final    func([]T)
	once     sync.Once
	done     chan struct{}
}

// NewGroup crea la barrera para expected lotes. Con expected 0 final se ejecuta de inmediato.
func NewGroup[T any](expected int, final func([]T)) *Group[T] {
	g := &Group[T]{expected: expected, final: final, done: make(chan struct{})}
	if expected <= 0 {
		g.finish(nil)
	}
	return g
}

// Report entrega los resultados de un lote. Devuelve false si ya reportaron todos.
func (g *Group[T]) Report(batch []T) bool {
	g.mu.Lock()
	if g.reported >= g.expected {
		g.mu.Unlock()
		return false
	}
	g.reported++
	g.results = append(g.results, batch...)
	last := g.reported == g.expected
	var flat []T
	if last {
		flat = g.results
	}
	g.mu.Unlock()

	if last {
		g.finish(flat)
	}
	return true
}

// Done se cierra después de ejecutar final.
func (g *Group[T]) Done() <-chan struct{} {
	return g.done
}

func (g *Group[T]) finish(results []T) {
	g.once.Do(func() {
		if g.final != nil {
			g.final(results)
		}
		close(g.done)
	})
}
