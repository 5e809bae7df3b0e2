package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/common"
)

func TestInActiveWindow(t *testing.T) {
	cfg := common.NewDefaultConfig() // 08:00 - 18:00
	m := New(cfg, arbor.NewLogger(), nil)

	at := func(hour int) time.Time {
		return time.Date(2026, 8, 28, hour, 30, 0, 0, time.Local)
	}

	assert.False(t, m.inActiveWindow(at(7)))
	assert.True(t, m.inActiveWindow(at(8)))
	assert.True(t, m.inActiveWindow(at(12)))
	assert.True(t, m.inActiveWindow(at(17)))
	// The end hour is exclusive.
	assert.False(t, m.inActiveWindow(at(18)))
	assert.False(t, m.inActiveWindow(at(23)))
}

func TestInActiveWindowCustomHours(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Monitor.ActiveStartHour = 0
	cfg.Monitor.ActiveEndHour = 24
	m := New(cfg, arbor.NewLogger(), nil)

	assert.True(t, m.inActiveWindow(time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)))
	assert.True(t, m.inActiveWindow(time.Date(2026, 8, 28, 23, 59, 0, 0, time.Local)))
}
