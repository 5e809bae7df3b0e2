// Package models defines the domain records flowing through the disclosure pipeline.
package models

// Metric labels as they appear in KIND preliminary-earnings tables, in
// presentation order. Matching is substring containment against the first
// table cell, so label variants with prefixes or suffixes still resolve.
var MetricOrder = []string{
	"매출액",
	"영업이익",
	"법인세비용차감전계속사업이익",
	"당기순이익",
}

// Scope labels in presentation order: current period, then cumulative.
var ScopeOrder = []string{
	"당해실적",
	"누계실적",
}

// Headline metrics included in chat notifications.
var HeadlineMetrics = []string{"매출액", "영업이익", "당기순이익"}

const (
	ScopeCurrent    = "당해실적"
	ScopeCumulative = "누계실적"

	UnitKRWMillion = "KRW_million"
	UnitPercent    = "percent"

	// How the normalizer located the value columns: resolved from a
	// recognized header row, or assumed from the fixed layout.
	MappingHeader     = "header"
	MappingPositional = "positional"
)

// DisclosureRecord is one filing discovered on the KIND daily listing.
type DisclosureRecord struct {
	Time        string `json:"time"`       // Listing timestamp, source-local clock
	StockCode   string `json:"stock_code"` // 6 chars, zero-padded; empty if unresolved
	CorpName    string `json:"corp_name"`
	Title       string `json:"title"`
	AccessionID string `json:"acptno"` // Primary identity for dedup and the sent ledger
	Submitter   string `json:"submitter"`
	Date        string `json:"date"` // Query date, YYYYMMDD
}

// ViewerURL returns the public viewer link for a filing.
func (d DisclosureRecord) ViewerURL(baseURL string) string {
	return baseURL + "/common/disclsviewer.do?method=search&acptno=" + d.AccessionID
}

// RawTable is a tabular structure extracted from a fetched document.
// Cells are kept as trimmed text; empty string stands for "no value".
type RawTable struct {
	Rows [][]string
}

// RowCount returns the number of rows.
func (t *RawTable) RowCount() int {
	return len(t.Rows)
}

// ColCount returns the widest row length.
func (t *RawTable) ColCount() int {
	max := 0
	for _, row := range t.Rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// NormalizedRecord is one (metric, scope) observation for one filer,
// in long format. Nullable numerics are pointers; nil means the source
// cell was a placeholder or unparseable.
type NormalizedRecord struct {
	CorpName    string `json:"corp_name"`
	StockCode   string `json:"stock_code"`
	AccessionID string `json:"rcp_no"`
	ReportDate  string `json:"report_date"`

	Metric string `json:"metric"`
	Scope  string `json:"scope"`

	ValueCurrent  *float64 `json:"value_current"`  // Current period, KRW millions
	ValuePrev     *float64 `json:"value_prev"`     // Prior period
	QoQChangePct  *float64 `json:"qoq_change_pct"` // Period-over-period %
	QoQTurnaround string   `json:"qoq_turnaround"`
	ValueYoY      *float64 `json:"value_yoy"`      // Prior-year period
	YoYChangePct  *float64 `json:"yoy_change_pct"` // Year-over-year %
	YoYTurnaround string   `json:"yoy_turnaround"`

	UnitValue string `json:"unit_value"`
	UnitPct   string `json:"unit_pct"`

	// MappingConfidence is MappingHeader when the columns were resolved
	// from a header row, MappingPositional when the fixed layout was
	// assumed.
	MappingConfidence string `json:"mapping_confidence"`
}

// WideRow is a display projection of NormalizedRecords; regenerated on
// every run and never mutated in place.
type WideRow struct {
	CorpName      string   `json:"corp_name"`
	StockCode     string   `json:"stock_code"`
	Metric        string   `json:"metric"`
	Scope         string   `json:"scope"`
	ValueCurrent  *float64 `json:"value_current"`
	ValuePrev     *float64 `json:"value_prev"`
	ValueYoY      *float64 `json:"value_yoy"`
	QoQChangePct  *float64 `json:"qoq_change_pct"`
	YoYChangePct  *float64 `json:"yoy_change_pct"`
	QoQTurnaround string   `json:"qoq_turnaround"`
	YoYTurnaround string   `json:"yoy_turnaround"`
}

// MetricRank returns the presentation rank of a metric, 99 for unknown.
func MetricRank(metric string) int {
	for i, m := range MetricOrder {
		if m == metric {
			return i
		}
	}
	return 99
}

// ScopeRank returns the presentation rank of a scope, 99 for unknown.
func ScopeRank(scope string) int {
	for i, s := range ScopeOrder {
		if s == scope {
			return i
		}
	}
	return 99
}
