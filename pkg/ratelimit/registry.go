package ratelimit

import "sync"

// Valores por defecto de cuota del marketplace (peticiones por minuto).
const (
	DefaultGlobalPerMinute  = 6000
	DefaultAccountPerMinute = 9000
)

// Factory crea el limitador para una clave de cuota.
type Factory func(key string, perMinute int) Limiter

// MemoryFactory limitadores en proceso.
func MemoryFactory(_ string, perMinute int) Limiter {
	return NewTokenBucket(perMinute)
}

// Registry mantiene una instancia por cuota: una global y una por cuenta.
// Todas las llamadas de una misma cuota comparten la misma instancia.
type Registry struct {
	mu         sync.Mutex
	factory    Factory
	accountRPM int
	global     Limiter
	accounts   map[string]Limiter
}

// NewRegistry crea el registro. factory nil = MemoryFactory.
func NewRegistry(globalPerMinute, accountPerMinute int, factory Factory) *Registry {
	if factory == nil {
		factory = MemoryFactory
	}
	if globalPerMinute <= 0 {
		globalPerMinute = DefaultGlobalPerMinute
	}
	if accountPerMinute <= 0 {
		accountPerMinute = DefaultAccountPerMinute
	}
	return &Registry{
		factory:    factory,
		accountRPM: accountPerMinute,
		global:     factory("global", globalPerMinute),
		accounts:   make(map[string]Limiter),
	}
}

// Global limitador compartido por todo el proceso.
func (r *Registry) Global() Limiter {
	return r.global
}

// Account limitador de la cuenta; se crea en el primer uso.
func (r *Registry) Account(accountID string) Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.accounts[accountID]
	if !ok {
		l = r.factory("account:"+accountID, r.accountRPM)
		r.accounts[accountID] = l
	}
	return l
}
