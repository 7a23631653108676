package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrNoAccounts        = errors.New("no hay cuentas de marketplace activas")
	ErrConflict          = errors.New("conflicto de estado concurrente")

	// Errores de coordinación y de llamadas externas.
	ErrLockContention   = errors.New("sku bloqueado por otra sincronización")
	ErrTransient        = errors.New("error transitorio de la API externa")
	ErrRateLimited      = errors.New("límite de peticiones excedido por el marketplace")
	ErrRateLimitTimeout = errors.New("tiempo de espera del rate limiter agotado")
	ErrRetriesExhausted = errors.New("reintentos agotados")
)

// IsRetryable indica si el error pertenece a la familia transitoria (red, 5xx, 429 o espera
// del limitador agotada). Validaciones locales, contención y datos inexistentes no se reintentan.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrRateLimitTimeout)
}
