package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/kindwatch/internal/models"
)

func TestCleanNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"thousands separators", "1,234", ptr(1234)},
		{"parenthesized negative", "(500)", ptr(-500)},
		{"percent sign", "12.5%", ptr(12.5)},
		{"plain integer", "900", ptr(900)},
		{"negative sign", "-42.5", ptr(-42.5)},
		{"placeholder dash", "-", nil},
		{"empty cell", "", nil},
		{"whitespace only", "   ", nil},
		{"turnaround text", "흑자전환", nil},
		{"parenthesized with separators", "(1,250)", ptr(-1250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanNumeric(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestStandardizeTurnaround(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"흑자전환", "흑자전환"},
		{"흑전", "흑자전환"},
		{"적자전환", "적자전환"},
		{"적전", "적자전환"},
		{"적자지속", "적자전환"},
		{"", "-"},
		{"-", "-"},
		{"해당없음", "해당없음"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StandardizeTurnaround(tt.input), "input %q", tt.input)
	}
}

// StandardizeTurnaround already outputs canonical values, so running it
// twice must not change the result.
func TestStandardizeTurnaroundIdempotent(t *testing.T) {
	inputs := []string{"흑자전환", "적전", "", "-", "기타문구"}
	for _, in := range inputs {
		once := StandardizeTurnaround(in)
		assert.Equal(t, once, StandardizeTurnaround(once), "input %q", in)
	}
}

func TestNormalizeSingleRow(t *testing.T) {
	table := &models.RawTable{Rows: [][]string{
		{"매출액", "당해실적", "1,000", "800", "25.0", "-", "900", "11.1", "-"},
	}}
	filer := models.DisclosureRecord{
		CorpName:    "테스트전자",
		StockCode:   "005930",
		AccessionID: "20260828000123",
		Date:        "20260828",
	}

	long, wide := Normalize(table, filer)
	require.Len(t, long, 1)
	require.Len(t, wide, 1)

	rec := long[0]
	assert.Equal(t, "테스트전자", rec.CorpName)
	assert.Equal(t, "005930", rec.StockCode)
	assert.Equal(t, "20260828000123", rec.AccessionID)
	assert.Equal(t, "매출액", rec.Metric)
	assert.Equal(t, models.ScopeCurrent, rec.Scope)
	require.NotNil(t, rec.ValueCurrent)
	assert.Equal(t, 1000.0, *rec.ValueCurrent)
	require.NotNil(t, rec.ValuePrev)
	assert.Equal(t, 800.0, *rec.ValuePrev)
	require.NotNil(t, rec.QoQChangePct)
	assert.Equal(t, 25.0, *rec.QoQChangePct)
	assert.Equal(t, "-", rec.QoQTurnaround)
	require.NotNil(t, rec.ValueYoY)
	assert.Equal(t, 900.0, *rec.ValueYoY)
	require.NotNil(t, rec.YoYChangePct)
	assert.Equal(t, 11.1, *rec.YoYChangePct)
	assert.Equal(t, models.UnitKRWMillion, rec.UnitValue)
	assert.Equal(t, models.UnitPercent, rec.UnitPct)
	// No header row to resolve, so the fixed layout is assumed.
	assert.Equal(t, models.MappingPositional, rec.MappingConfidence)
}

func TestNormalizeResolvesColumnsFromHeader(t *testing.T) {
	// Header row present and the value columns shifted one to the right
	// of the fixed layout.
	table := &models.RawTable{Rows: [][]string{
		{"구분", "실적", "비고", "당기", "전기", "증감률", "비고", "전년동기", "증감률", "비고"},
		{"매출액", "당해실적", "", "1,000", "800", "25.0", "-", "900", "11.1", "-"},
	}}

	long, _ := Normalize(table, models.DisclosureRecord{CorpName: "테스트"})
	require.Len(t, long, 1)

	rec := long[0]
	assert.Equal(t, models.MappingHeader, rec.MappingConfidence)
	require.NotNil(t, rec.ValueCurrent)
	assert.Equal(t, 1000.0, *rec.ValueCurrent)
	require.NotNil(t, rec.ValuePrev)
	assert.Equal(t, 800.0, *rec.ValuePrev)
	require.NotNil(t, rec.QoQChangePct)
	assert.Equal(t, 25.0, *rec.QoQChangePct)
	require.NotNil(t, rec.ValueYoY)
	assert.Equal(t, 900.0, *rec.ValueYoY)
	require.NotNil(t, rec.YoYChangePct)
	assert.Equal(t, 11.1, *rec.YoYChangePct)
}

func TestNormalizeDropsUnknownRows(t *testing.T) {
	table := &models.RawTable{Rows: [][]string{
		{"구분", "실적", "당기", "전기", "증감률", "비고", "전년동기", "증감률", "비고"},
		{"매출액", "당해실적", "1,000", "800", "25.0", "-", "900", "11.1", "-"},
		{"자본총계", "당해실적", "5,000", "4,500", "11.1", "-", "4,000", "25.0", "-"},
		{"영업이익", "기타", "100", "90", "11.1", "-", "80", "25.0", "-"},
	}}

	long, _ := Normalize(table, models.DisclosureRecord{CorpName: "테스트"})

	// Header, unknown metric, and unknown scope rows all drop.
	require.Len(t, long, 1)
	assert.Equal(t, "매출액", long[0].Metric)
}

func TestNormalizeScopeFromMergedColumn(t *testing.T) {
	// Rowspan-merged tables carry the scope inside the metric cell.
	table := &models.RawTable{Rows: [][]string{
		{"영업이익(당해실적)", "", "120", "100", "20.0", "-", "90", "33.3", "-"},
	}}

	long, _ := Normalize(table, models.DisclosureRecord{CorpName: "테스트"})
	require.Len(t, long, 1)
	assert.Equal(t, "영업이익", long[0].Metric)
	assert.Equal(t, models.ScopeCurrent, long[0].Scope)
}

func TestNormalizeShortRowYieldsNilValues(t *testing.T) {
	table := &models.RawTable{Rows: [][]string{
		{"당기순이익", "누계실적", "450"},
	}}

	long, _ := Normalize(table, models.DisclosureRecord{CorpName: "테스트"})
	require.Len(t, long, 1)
	rec := long[0]
	require.NotNil(t, rec.ValueCurrent)
	assert.Equal(t, 450.0, *rec.ValueCurrent)
	assert.Nil(t, rec.ValuePrev)
	assert.Nil(t, rec.ValueYoY)
	assert.Equal(t, "-", rec.QoQTurnaround)
	assert.Equal(t, "-", rec.YoYTurnaround)
}

func TestWideSummaryOrdering(t *testing.T) {
	long := []models.NormalizedRecord{
		{CorpName: "나중회사", Metric: "매출액", Scope: models.ScopeCurrent},
		{CorpName: "가나전자", Metric: "당기순이익", Scope: models.ScopeCumulative},
		{CorpName: "가나전자", Metric: "매출액", Scope: models.ScopeCumulative},
		{CorpName: "가나전자", Metric: "매출액", Scope: models.ScopeCurrent},
		{CorpName: "가나전자", Metric: "영업이익", Scope: models.ScopeCurrent},
	}

	wide := WideSummary(long)
	require.Len(t, wide, 5)

	// Company first, then fixed metric order, then scope order.
	assert.Equal(t, "가나전자", wide[0].CorpName)
	assert.Equal(t, "매출액", wide[0].Metric)
	assert.Equal(t, models.ScopeCurrent, wide[0].Scope)
	assert.Equal(t, "매출액", wide[1].Metric)
	assert.Equal(t, models.ScopeCumulative, wide[1].Scope)
	assert.Equal(t, "영업이익", wide[2].Metric)
	assert.Equal(t, "당기순이익", wide[3].Metric)
	assert.Equal(t, "나중회사", wide[4].CorpName)
}

func TestNormalizeEmptyTable(t *testing.T) {
	long, wide := Normalize(nil, models.DisclosureRecord{})
	assert.Nil(t, long)
	assert.Nil(t, wide)

	long, wide = Normalize(&models.RawTable{}, models.DisclosureRecord{})
	assert.Nil(t, long)
	assert.Nil(t, wide)
}

func ptr(f float64) *float64 { return &f }
