package models

import "sync"

// Pipeline stages that can skip an item. Skips are policy, not failures:
// the scraping chain tolerates partial data by dropping what it cannot
// resolve, and each drop is reported to an observer so runs stay auditable.
const (
	StageList      = "list"
	StageFetch     = "fetch"
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageNotify    = "notify"
)

// SkipEvent records one skipped item: which stage dropped it, why, and
// the key identifying it (accession id, or page number during listing).
type SkipEvent struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Key    string `json:"key"`
}

// SkipObserver receives skip events emitted by pipeline stages.
type SkipObserver interface {
	RecordSkip(event SkipEvent)
}

// SkipCollector is a thread-safe SkipObserver that accumulates events.
type SkipCollector struct {
	mu     sync.Mutex
	events []SkipEvent
}

// NewSkipCollector creates an empty collector.
func NewSkipCollector() *SkipCollector {
	return &SkipCollector{}
}

// RecordSkip appends an event.
func (c *SkipCollector) RecordSkip(event SkipEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of the accumulated events.
func (c *SkipCollector) Events() []SkipEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SkipEvent, len(c.events))
	copy(out, c.events)
	return out
}

// CountByStage returns the number of events recorded for a stage.
func (c *SkipCollector) CountByStage(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Stage == stage {
			n++
		}
	}
	return n
}
