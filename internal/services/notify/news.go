package notify

import (
	"fmt"
	"strings"

	"github.com/ternarybob/kindwatch/internal/models"
)

// FormatNewsMessage builds one Telegram message for a keyword's articles,
// capped at maxItems headlines.
func FormatNewsMessage(keyword string, items []models.NewsItem, maxItems int) string {
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📰 [%s] 뉴스 (%d건)\n", keyword, len(items)))
	for _, it := range items {
		b.WriteString("\n• ")
		b.WriteString(it.Title)
		if it.Press != "" {
			b.WriteString(fmt.Sprintf(" (%s)", it.Press))
		}
		if it.OriginalURL != "" {
			b.WriteString("\n  ")
			b.WriteString(it.OriginalURL)
		}
	}
	return b.String()
}
