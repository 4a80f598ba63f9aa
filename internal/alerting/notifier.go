package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

// PriceMove describes one fuel price change worth alerting on.
type PriceMove struct {
	StationID   int64
	StationName string
	Fuel        fuel.Key
	Old         decimal.Decimal
	New         decimal.Decimal
	Direction   fuel.Direction
}

// Notification bundles the moves detected by one refresh.
type Notification struct {
	CheckedAt time.Time
	Threshold decimal.Decimal
	Moves     []PriceMove
}

// Notifier dispatches price alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends one sendMessage call listing every move.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("checked_at", note.CheckedAt).
		Int("moves", len(note.Moves)).
		Msg("alert dispatched (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[CarbuAlert]\n")
	builder.WriteString(fmt.Sprintf("Checked: %s\n", note.CheckedAt.Format("02/01/2006 15:04")))
	builder.WriteString(fmt.Sprintf("Threshold: %s EUR/L\n", note.Threshold.StringFixed(3)))
	for _, move := range note.Moves {
		arrow := "="
		switch move.Direction {
		case fuel.DirectionUp:
			arrow = "▲"
		case fuel.DirectionDown:
			arrow = "▼"
		}
		diff := move.New.Sub(move.Old)
		sign := ""
		if diff.Sign() > 0 {
			sign = "+"
		}
		builder.WriteString(fmt.Sprintf("%s %s: %s → %s %s (%s%s)\n",
			move.StationName,
			move.Fuel.Label(),
			move.Old.StringFixed(3),
			move.New.StringFixed(3),
			arrow,
			sign,
			diff.StringFixed(3),
		))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
