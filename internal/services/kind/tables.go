package kind

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/kindwatch/internal/models"
)

// Keyword scores for identifying the earnings table among all tables in a
// filing document. Required metric keywords dominate; period indicators and
// a plausible table shape add smaller bonuses.
const (
	metricKeywordScore = 10
	periodKeywordScore = 5
	shapeBonusScore    = 5

	minTableRows = 3
	maxTableRows = 30
	minTableCols = 3
	maxTableCols = 15
)

var requiredKeywords = []string{"매출액", "영업이익", "당기순이익"}

// ExtractBestTable parses every table in the document, scores each by
// domain keyword presence and shape, and returns the highest-scoring one.
// Ties resolve to the first-encountered table. Returns ok=false when no
// table scores above zero. The ranking is deliberately crude: no semantic
// validation happens here; rows the normalizer cannot map are dropped there.
func ExtractBestTable(html string) (*models.RawTable, bool) {
	if html == "" {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	var best *models.RawTable
	bestScore := 0

	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		table := flattenTable(sel)
		if table.RowCount() == 0 {
			return
		}

		score := scoreTable(table)
		if score > bestScore {
			bestScore = score
			best = table
		}
	})

	if best == nil {
		return nil, false
	}
	return best, true
}

// flattenTable converts a table selection into a rectangular cell matrix
// of trimmed text. Merged cells are expanded: a colspan cell repeats across
// the columns it covers, and a rowspan cell is carried down into each row
// it covers, so column indexes stay aligned across the whole grid. KIND
// earnings tables rowspan the metric label over the 당해실적/누계실적 row
// pair and colspan the header corner cell.
func flattenTable(sel *goquery.Selection) *models.RawTable {
	table := &models.RawTable{}

	// Cells spanning down from earlier rows, keyed by column index.
	type overhang struct {
		text string
		left int
	}
	hanging := map[int]*overhang{}

	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0

		// drain copies cells hanging over the current column(s) into the row.
		drain := func() {
			for h, ok := hanging[col]; ok; h, ok = hanging[col] {
				row = append(row, h.text)
				h.left--
				if h.left == 0 {
					delete(hanging, col)
				}
				col++
			}
		}

		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			drain()
			text := normalizeCell(cell.Text())
			down := spanOf(cell, "rowspan")
			for i := spanOf(cell, "colspan"); i > 0; i-- {
				if down > 1 {
					hanging[col] = &overhang{text: text, left: down - 1}
				}
				row = append(row, text)
				col++
			}
		})
		drain()

		if len(row) > 0 {
			table.Rows = append(table.Rows, row)
		}
	})
	return table
}

// spanOf reads a rowspan/colspan attribute, defaulting to 1 when the
// attribute is missing or malformed.
func spanOf(cell *goquery.Selection, attr string) int {
	v, ok := cell.Attr(attr)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// normalizeCell trims a cell and collapses internal whitespace runs.
func normalizeCell(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// scoreTable applies the keyword/shape heuristic from the scraping design:
// +10 per required metric keyword, +5 per period indicator, +5 for a
// plausible row/column count.
func scoreTable(table *models.RawTable) int {
	var sb strings.Builder
	for _, row := range table.Rows {
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteByte(' ')
		}
	}
	text := sb.String()

	score := 0
	for _, kw := range requiredKeywords {
		if strings.Contains(text, kw) {
			score += metricKeywordScore
		}
	}

	if strings.Contains(text, "당기") || strings.Contains(text, "당해") {
		score += periodKeywordScore
	}
	if strings.Contains(text, "전기") {
		score += periodKeywordScore
	}
	if strings.Contains(text, "전년동기") {
		score += periodKeywordScore
	}

	rows, cols := table.RowCount(), table.ColCount()
	if rows >= minTableRows && rows <= maxTableRows && cols >= minTableCols && cols <= maxTableCols {
		score += shapeBonusScore
	}

	return score
}
