package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/kindwatch/internal/models"
)

// SheetAllNews holds every collected article; one extra sheet per
// keyword follows it.
const SheetAllNews = "All_News"

// Excel rejects sheet names containing \ / * ? : [ ] and longer than 31 chars.
const sheetNameLimit = 31

var (
	newsHeaders      = []string{"date", "keyword", "press", "title", "summary", "original_url"}
	sheetNamePattern = regexp.MustCompile(`[\\/*?:\[\]]`)
)

// WriteNewsWorkbook writes collected articles to naver_news_{date}.xlsx:
// an All_News sheet plus one sheet per keyword, and returns the file path.
func (w *Writer) WriteNewsWorkbook(date string, items []models.NewsItem) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("naver_news_%s.xlsx", date))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAllNews); err != nil {
		return "", fmt.Errorf("failed to name news sheet: %w", err)
	}
	writeNewsSheet(f, SheetAllNews, items)

	for _, keyword := range keywordOrder(items) {
		sheet := sanitizeSheetName(keyword)
		if sheet == SheetAllNews {
			continue
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to create keyword sheet %q: %w", sheet, err)
		}
		var subset []models.NewsItem
		for _, it := range items {
			if it.Keyword == keyword {
				subset = append(subset, it)
			}
		}
		writeNewsSheet(f, sheet, subset)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save news workbook: %w", err)
	}

	w.logger.Info().
		Str("path", path).
		Int("articles", len(items)).
		Msg("Saved news workbook")

	return path, nil
}

func writeNewsSheet(f *excelize.File, sheet string, items []models.NewsItem) {
	for c, h := range newsHeaders {
		setCell(f, sheet, c+1, 1, h)
	}
	for r, it := range items {
		row := r + 2
		values := []interface{}{it.Date, it.Keyword, it.Press, it.Title, it.Summary, it.OriginalURL}
		for c, v := range values {
			setCell(f, sheet, c+1, row, v)
		}
	}
}

// keywordOrder returns keywords in first-seen order.
func keywordOrder(items []models.NewsItem) []string {
	seen := make(map[string]struct{})
	var order []string
	for _, it := range items {
		if _, ok := seen[it.Keyword]; ok {
			continue
		}
		seen[it.Keyword] = struct{}{}
		order = append(order, it.Keyword)
	}
	return order
}

func sanitizeSheetName(name string) string {
	name = sheetNamePattern.ReplaceAllString(name, "")
	runes := []rune(name)
	if len(runes) > sheetNameLimit {
		runes = runes[:sheetNameLimit]
	}
	if len(runes) == 0 {
		return "keyword"
	}
	return string(runes)
}
