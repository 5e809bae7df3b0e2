package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewerURL(t *testing.T) {
	d := DisclosureRecord{AccessionID: "20260828000001"}
	assert.Equal(t,
		"https://kind.krx.co.kr/common/disclsviewer.do?method=search&acptno=20260828000001",
		d.ViewerURL("https://kind.krx.co.kr"))
}

func TestRawTableCounts(t *testing.T) {
	table := &RawTable{Rows: [][]string{
		{"a", "b"},
		{"a", "b", "c", "d"},
		{"a"},
	}}
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, 4, table.ColCount())

	empty := &RawTable{}
	assert.Equal(t, 0, empty.RowCount())
	assert.Equal(t, 0, empty.ColCount())
}

func TestMetricAndScopeRank(t *testing.T) {
	assert.Equal(t, 0, MetricRank("매출액"))
	assert.Equal(t, 3, MetricRank("당기순이익"))
	assert.Equal(t, 99, MetricRank("자본총계"))

	assert.Equal(t, 0, ScopeRank(ScopeCurrent))
	assert.Equal(t, 1, ScopeRank(ScopeCumulative))
	assert.Equal(t, 99, ScopeRank("기타"))
}

func TestSkipCollector(t *testing.T) {
	c := NewSkipCollector()
	c.RecordSkip(SkipEvent{Stage: StageFetch, Reason: "r1", Key: "a"})
	c.RecordSkip(SkipEvent{Stage: StageFetch, Reason: "r2", Key: "b"})
	c.RecordSkip(SkipEvent{Stage: StageExtract, Reason: "r3", Key: "c"})

	assert.Len(t, c.Events(), 3)
	assert.Equal(t, 2, c.CountByStage(StageFetch))
	assert.Equal(t, 1, c.CountByStage(StageExtract))
	assert.Equal(t, 0, c.CountByStage(StageNotify))

	// Events returns a copy; mutating it must not affect the collector.
	events := c.Events()
	events[0].Key = "mutated"
	assert.Equal(t, "a", c.Events()[0].Key)
}
