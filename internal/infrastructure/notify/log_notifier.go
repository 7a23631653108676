package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/application/ports"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier registra las alertas en el log cuando no hay bot configurado.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendMessage(_ context.Context, text string) error {
	n.log.Warn().Str("alert", text).Msg("alerta de sincronización")
	return nil
}

// New elige Telegram si hay token y chat; si no, el log.
func New(baseURL, token, chatID string, log zerolog.Logger) ports.Notifier {
	if token == "" || chatID == "" {
		return NewLogNotifier(log)
	}
	return NewTelegramNotifier(baseURL, token, chatID, log)
}
