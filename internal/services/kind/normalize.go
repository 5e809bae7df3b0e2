package kind

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/kindwatch/internal/models"
)

// Default column layout of the KIND preliminary-earnings table, used when
// no header row can be recognized:
//
//	col 0: metric label (매출액, 영업이익, ...)
//	col 1: scope label (당해실적, 누계실적)
//	col 2: current value      col 3: prior-period value
//	col 4: period-over-period %   col 5: period-over-period turnaround
//	col 6: prior-year value   col 7: year-over-year %
//	col 8: year-over-year turnaround
const (
	colValueCurrent  = 2
	colValuePrev     = 3
	colQoQPct        = 4
	colQoQTurnaround = 5
	colValueYoY      = 6
	colYoYPct        = 7
	colYoYTurnaround = 8
)

// headerScanRows bounds how deep into the table a header row is looked for.
const headerScanRows = 3

// columnMap locates the seven value columns of an earnings table.
type columnMap struct {
	valueCurrent  int
	valuePrev     int
	qoqPct        int
	qoqTurnaround int
	valueYoY      int
	yoyPct        int
	yoyTurnaround int
	confidence    string
}

// positionalColumns is the fixed-layout fallback mapping.
var positionalColumns = columnMap{
	valueCurrent:  colValueCurrent,
	valuePrev:     colValuePrev,
	qoqPct:        colQoQPct,
	qoqTurnaround: colQoQTurnaround,
	valueYoY:      colValueYoY,
	yoyPct:        colYoYPct,
	yoyTurnaround: colYoYTurnaround,
	confidence:    models.MappingPositional,
}

// resolveColumns looks for a header row naming the three value periods and
// derives the column mapping from it. Percent columns are the 증감 cells
// following each period pair, with the turnaround cell directly after.
// When no row carries all three period labels, the fixed layout is assumed
// and the lower confidence is reported on every record.
func resolveColumns(table *models.RawTable) columnMap {
	for r, row := range table.Rows {
		if r >= headerScanRows {
			break
		}

		current, prev, yoy := -1, -1, -1
		var pctCols []int
		for c, cell := range row {
			switch {
			case strings.Contains(cell, "전년동기"):
				if yoy < 0 {
					yoy = c
				}
			case strings.Contains(cell, "당기") || strings.Contains(cell, "당해"):
				if current < 0 {
					current = c
				}
			case strings.Contains(cell, "전기") || strings.Contains(cell, "전분기"):
				if prev < 0 {
					prev = c
				}
			}
			if strings.Contains(cell, "증감") {
				pctCols = append(pctCols, c)
			}
		}

		if current < 0 || prev < 0 || yoy < 0 {
			continue
		}

		m := columnMap{
			valueCurrent: current,
			valuePrev:    prev,
			valueYoY:     yoy,
			// Defaults when no 증감 column follows a period pair.
			qoqPct:        -1,
			qoqTurnaround: -1,
			yoyPct:        -1,
			yoyTurnaround: -1,
			confidence:    models.MappingHeader,
		}
		for _, c := range pctCols {
			if c > prev && c < yoy && m.qoqPct < 0 {
				m.qoqPct = c
				m.qoqTurnaround = c + 1
			}
			if c > yoy && m.yoyPct < 0 {
				m.yoyPct = c
				m.yoyTurnaround = c + 1
			}
		}
		return m
	}

	return positionalColumns
}

// Normalize maps the rows of an earnings table onto the fixed metric/scope
// ontology and returns the long-format records plus the wide display
// projection. Value columns are resolved from a header row when one is
// recognized, falling back to the fixed layout; each record carries the
// mapping confidence. Rows that match neither a known metric nor a known
// scope are dropped; that lossiness is the accepted policy, not an error.
func Normalize(table *models.RawTable, filer models.DisclosureRecord) ([]models.NormalizedRecord, []models.WideRow) {
	if table == nil || table.RowCount() == 0 {
		return nil, nil
	}

	cols := resolveColumns(table)

	var long []models.NormalizedRecord

	for _, row := range table.Rows {
		if len(row) < 3 {
			continue
		}

		col0 := strings.TrimSpace(row[0])

		metric := ""
		for _, m := range models.MetricOrder {
			if strings.Contains(col0, m) {
				metric = m
				break
			}
		}
		if metric == "" {
			continue
		}

		col1 := ""
		if len(row) > 1 {
			col1 = strings.TrimSpace(row[1])
		}

		scope := ""
		switch {
		case strings.Contains(col1, "당해") || strings.Contains(col0, "당해"):
			scope = models.ScopeCurrent
		case strings.Contains(col1, "누계") || strings.Contains(col0, "누계"):
			scope = models.ScopeCumulative
		}
		if scope == "" {
			continue
		}

		long = append(long, models.NormalizedRecord{
			CorpName:      filer.CorpName,
			StockCode:     filer.StockCode,
			AccessionID:   filer.AccessionID,
			ReportDate:    filer.Date,
			Metric:        metric,
			Scope:         scope,
			ValueCurrent:  CleanNumeric(cellAt(row, cols.valueCurrent)),
			ValuePrev:     CleanNumeric(cellAt(row, cols.valuePrev)),
			QoQChangePct:  CleanNumeric(cellAt(row, cols.qoqPct)),
			QoQTurnaround: StandardizeTurnaround(cellAt(row, cols.qoqTurnaround)),
			ValueYoY:      CleanNumeric(cellAt(row, cols.valueYoY)),
			YoYChangePct:  CleanNumeric(cellAt(row, cols.yoyPct)),
			YoYTurnaround: StandardizeTurnaround(cellAt(row, cols.yoyTurnaround)),
			UnitValue:     models.UnitKRWMillion,
			UnitPct:       models.UnitPercent,

			MappingConfidence: cols.confidence,
		})
	}

	return long, WideSummary(long)
}

// WideSummary projects long records into the wide display form, stable
// sorted by the fixed metric order then scope order. It carries no new
// information.
func WideSummary(long []models.NormalizedRecord) []models.WideRow {
	if len(long) == 0 {
		return nil
	}

	wide := make([]models.WideRow, 0, len(long))
	for _, r := range long {
		wide = append(wide, models.WideRow{
			CorpName:      r.CorpName,
			StockCode:     r.StockCode,
			Metric:        r.Metric,
			Scope:         r.Scope,
			ValueCurrent:  r.ValueCurrent,
			ValuePrev:     r.ValuePrev,
			ValueYoY:      r.ValueYoY,
			QoQChangePct:  r.QoQChangePct,
			YoYChangePct:  r.YoYChangePct,
			QoQTurnaround: r.QoQTurnaround,
			YoYTurnaround: r.YoYTurnaround,
		})
	}

	sort.SliceStable(wide, func(i, j int) bool {
		if wide[i].CorpName != wide[j].CorpName {
			return wide[i].CorpName < wide[j].CorpName
		}
		mi, mj := models.MetricRank(wide[i].Metric), models.MetricRank(wide[j].Metric)
		if mi != mj {
			return mi < mj
		}
		return models.ScopeRank(wide[i].Scope) < models.ScopeRank(wide[j].Scope)
	})

	return wide
}

// CleanNumeric parses a cell into a float, stripping thousands separators
// and percent signs and interpreting parenthesized values as negative.
// Placeholder dashes, empty cells and unparseable values yield nil.
func CleanNumeric(val string) *float64 {
	s := strings.TrimSpace(val)
	if s == "" || s == "-" {
		return nil
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// StandardizeTurnaround maps turnaround text onto the closed vocabulary:
// swing-to-profit (흑자전환), swing-to-loss (적자전환), or passthrough of
// the raw trimmed text; "-" stands for none.
func StandardizeTurnaround(val string) string {
	s := strings.TrimSpace(val)
	if s == "" {
		return "-"
	}

	if strings.Contains(s, "흑자") || strings.Contains(s, "흑전") {
		return "흑자전환"
	}
	if strings.Contains(s, "적자") || strings.Contains(s, "적전") {
		return "적자전환"
	}

	if s == "-" {
		return "-"
	}
	return s
}

// cellAt returns the cell at index i, or empty for an unmapped column or
// a short row.
func cellAt(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}
