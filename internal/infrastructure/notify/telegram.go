package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stocksync/internal/application/ports"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/pkg/retry"
)

var _ ports.Notifier = (*TelegramNotifier)(nil)

// Límite de Telegram para el texto de un mensaje.
const maxMessageRunes = 4096

// TelegramNotifier envía alertas al chat configurado vía Bot API.
// Los 429 se reintentan respetando retry_after del cuerpo o la cabecera Retry-After.
type TelegramNotifier struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	policy     retry.Policy
	log        zerolog.Logger
}

// NewTelegramNotifier construye el notificador. baseURL vacío usa https://api.telegram.org.
func NewTelegramNotifier(baseURL, token, chatID string, log zerolog.Logger) *TelegramNotifier {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	n := &TelegramNotifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		policy:     retry.Exponential(5, time.Second, 30*time.Second, 0.2, domain.IsRetryable),
		log:        log,
	}
	n.policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		n.log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("telegram: reintentando envío")
	}
	return n
}

// WithPolicy reemplaza la política de reintentos (tests).
func (n *TelegramNotifier) WithPolicy(p retry.Policy) *TelegramNotifier {
	n.policy = p
	return n
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// throttledError 429 de Telegram.
type throttledError struct {
	wait time.Duration
}

func (e *throttledError) Error() string {
	return fmt.Sprintf("telegram: demasiadas peticiones, esperar %s", e.wait)
}

func (e *throttledError) Unwrap() error { return domain.ErrRateLimited }

func (e *throttledError) RetryAfter() time.Duration { return e.wait }

// SendMessage envía text al chat. Textos más largos que el límite se recortan.
func (n *TelegramNotifier) SendMessage(ctx context.Context, text string) error {
	if n.token == "" || n.chatID == "" {
		return fmt.Errorf("%w: telegram sin token o chat", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: truncateRunes(text, maxMessageRunes)})
	if err != nil {
		return fmt.Errorf("telegram: serializar mensaje: %w", err)
	}
	return n.policy.Do(ctx, func(int) error {
		return n.send(ctx, payload)
	})
}

func (n *TelegramNotifier) send(ctx context.Context, payload []byte) error {
	url := n.baseURL + "/bot" + n.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("telegram: crear request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: telegram: %v", domain.ErrTransient, redact(err.Error(), n.token))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body apiResponse
	_ = json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := time.Duration(body.Parameters.RetryAfter) * time.Second
		if h := retry.ParseRetryAfter(resp.Header); h > wait {
			wait = h
		}
		return &throttledError{wait: wait}
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: telegram HTTP %d", domain.ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 300 || (len(raw) > 0 && !body.OK):
		return retry.Permanent(fmt.Errorf("telegram HTTP %d: %s", resp.StatusCode, body.Description))
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// redact evita que el token del bot aparezca en logs a través de la URL del error.
func redact(msg, token string) string {
	if token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, token, "***")
}

// IsThrottled indica si el error final fue un 429 de Telegram.
func IsThrottled(err error) bool {
	var t *throttledError
	return errors.As(err, &t)
}
