// Package notify delivers promotion announcements to Telegram.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/promo"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second

	sendAttempts = 3
	sendDelay    = 500 * time.Millisecond
)

// TelegramConfig holds bot credentials and transport knobs.
type TelegramConfig struct {
	Token  string
	ChatID string
	// BaseURL overrides the Bot API host, for tests.
	BaseURL string
	Timeout time.Duration
}

// Telegram posts promotion messages through the Bot API. Full-variant
// notifications go out as sendPhoto with the composited banner; text-only
// ones as sendMessage. Both carry an inline button to the promo link.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	logger *zap.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Send dispatches one notification. Transient transport failures are
// retried a few times within the call; the caller treats any returned
// error as best-effort delivery loss, never as a reason to retry the key.
func (t *Telegram) Send(ctx context.Context, n promo.Notification) error {
	method, form := t.buildRequest(n)
	endpoint := fmt.Sprintf("%s/bot%s/%s", t.cfg.BaseURL, t.cfg.Token, method)

	err := retry.Do(
		func() error {
			return t.post(ctx, endpoint, form)
		},
		retry.Attempts(sendAttempts),
		retry.Delay(sendDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			t.logger.Warn("telegram send retry",
				zap.Uint("attempt", attempt),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return &promo.DispatchError{Err: err}
	}
	t.logger.Info("notification dispatched",
		zap.String("method", method),
		zap.String("variant", string(n.Variant)),
		zap.String("key", n.Key),
	)
	return nil
}

func (t *Telegram) buildRequest(n promo.Notification) (string, url.Values) {
	caption := buildCaption(n)
	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("parse_mode", "Markdown")
	if n.LinkURL != "" {
		form.Set("reply_markup", inlineKeyboard(n.LinkURL))
	}

	if n.Variant == promo.VariantFull && n.ImageURL != "" {
		form.Set("photo", n.ImageURL)
		form.Set("caption", caption)
		return "sendPhoto", form
	}
	form.Set("text", caption)
	return "sendMessage", form
}

func (t *Telegram) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("telegram status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return err
	}
	// Client errors (bad token, malformed markup) will not improve on retry.
	return retry.Unrecoverable(err)
}

func buildCaption(n promo.Notification) string {
	if n.ReturnToBaseline {
		return "↩️ *PROMO FINALIZADA*\n\nVolvió el cintillo habitual:\n*" + strings.ToUpper(n.Text) + "*"
	}
	return "🚨 *NUEVA PROMO DETECTADA!*\n\n*" + strings.ToUpper(n.Text) + "*"
}

func inlineKeyboard(link string) string {
	markup := map[string]any{
		"inline_keyboard": [][]map[string]string{
			{{"text": "🚀 Ver Ofertas", "url": link}},
		},
	}
	encoded, err := json.Marshal(markup)
	if err != nil {
		return ""
	}
	return string(encoded)
}
