// Package notify formats normalized earnings records into chat messages
// and dispatches them to a Telegram bot endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/models"
)

// printer renders grouped thousands separators for message values.
var printer = message.NewPrinter(language.English)

// Telegram sends messages through the bot sendMessage endpoint.
type Telegram struct {
	cfg        common.TelegramConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewTelegram creates a Telegram notifier from configuration.
func NewTelegram(cfg *common.Config, httpClient *http.Client, logger arbor.ILogger) *Telegram {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Telegram{
		cfg:        cfg.Telegram,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Enabled reports whether both bot token and chat target are configured.
func (t *Telegram) Enabled() bool {
	return t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

// sendMessageResponse is the subset of the bot API response we act on.
type sendMessageResponse struct {
	OK         bool `json:"ok"`
	ErrorCode  int  `json:"error_code"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts a message, retrying on rate limits by honoring the
// server-supplied backoff and on other failures with a fixed backoff.
// Exhausting retries returns false, never an error: the caller decides
// whether to mark the ledger.
func (t *Telegram) Send(ctx context.Context, text string) bool {
	if !t.Enabled() {
		t.logger.Warn().Msg("Telegram bot token or chat id not configured, skipping send")
		return false
	}

	text = capRunes(text, t.cfg.MessageLimit)

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":                  t.cfg.ChatID,
		"text":                     text,
		"disable_web_page_preview": false,
	})
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to marshal telegram payload")
		return false
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBaseURL, t.cfg.BotToken)

	for attempt := 0; attempt < t.cfg.MaxRetries; attempt++ {
		ok, retryAfter := t.sendOnce(ctx, url, payload)
		if ok {
			return true
		}

		if attempt == t.cfg.MaxRetries-1 {
			break
		}

		wait := t.cfg.RetryBackoff
		if retryAfter > 0 {
			wait = time.Duration(retryAfter) * time.Second
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}

	t.logger.Warn().Int("attempts", t.cfg.MaxRetries).Msg("Telegram send failed after retries")
	return false
}

// sendOnce performs a single sendMessage call. Returns delivered and, for
// rate-limited calls, the server-requested backoff in seconds.
func (t *Telegram) sendOnce(ctx context.Context, url string, payload []byte) (bool, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Debug().Err(err).Msg("Telegram request failed")
		return false, 0
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, 0
	}

	if result.OK {
		return true, 0
	}
	if result.ErrorCode == http.StatusTooManyRequests {
		retryAfter := result.Parameters.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 5
		}
		t.logger.Debug().Int("retry_after", retryAfter).Msg("Telegram rate limited")
		return false, retryAfter
	}
	return false, 0
}

// FormatEarningsMessage builds the notification text for one filer: a unit
// header, an identification line, one line per headline metric from the
// current-period scope, and the viewer link.
func FormatEarningsMessage(filer models.DisclosureRecord, long []models.NormalizedRecord, viewerURL string) string {
	lines := []string{
		"(단위: 백만원)",
		fmt.Sprintf("[%s] %s", filer.StockCode, filer.CorpName),
	}

	for _, metric := range models.HeadlineMetrics {
		rec, ok := findRecord(long, metric, models.ScopeCurrent)
		if !ok {
			continue
		}

		lines = append(lines, fmt.Sprintf("- %s: 당기 %s, 전기 %s (QoQ, %s) 전년동기 %s(YoY, %s)",
			metric,
			formatValue(rec.ValueCurrent),
			formatValue(rec.ValuePrev),
			formatPct(rec.QoQChangePct),
			formatValue(rec.ValueYoY),
			formatPct(rec.YoYChangePct),
		))
	}

	lines = append(lines, viewerURL)
	return strings.Join(lines, "\n")
}

func findRecord(long []models.NormalizedRecord, metric, scope string) (models.NormalizedRecord, bool) {
	for _, r := range long {
		if r.Metric == metric && r.Scope == scope {
			return r, true
		}
	}
	return models.NormalizedRecord{}, false
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.0f", *v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

// capRunes truncates text to the chat endpoint's message limit without
// splitting a multibyte character.
func capRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
