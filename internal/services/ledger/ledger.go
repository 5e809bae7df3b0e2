// Package ledger persists the set of accession ids already notified, so a
// monitoring cycle never re-sends a filing. This file is the only state
// that survives across process invocations.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// ledgerFile is the on-disk shape: an update timestamp and the full id
// list, read and rewritten wholesale rather than appended.
type ledgerFile struct {
	Updated    string   `json:"updated"`
	SentAcptno []string `json:"sent_acptno"`
}

// Ledger is the in-memory view over the sent-ledger file. At most one
// monitor process per ledger path is supported; the mutex only guards
// in-process access.
type Ledger struct {
	path   string
	logger arbor.ILogger

	mu   sync.Mutex
	sent map[string]bool
}

// New creates a ledger bound to the given path and loads the current
// contents. A missing or corrupt file starts an empty ledger; that is
// never an error.
func New(path string, logger arbor.ILogger) *Ledger {
	l := &Ledger{
		path:   path,
		logger: logger,
		sent:   make(map[string]bool),
	}
	l.Reload()
	return l
}

// Reload re-reads the ledger file, replacing the in-memory set. Called at
// the start of each monitoring cycle.
func (l *Ledger) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent = make(map[string]bool)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("Failed to read sent ledger, starting empty")
		}
		return
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).Msg("Failed to parse sent ledger, starting empty")
		return
	}

	for _, id := range lf.SentAcptno {
		l.sent[id] = true
	}
}

// Contains reports whether an accession id has already been notified.
func (l *Ledger) Contains(acptno string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent[acptno]
}

// MarkSent records an accession id and saves immediately. The ledger is
// written after a successful send, giving at-least-once delivery: a crash
// between send and write can duplicate a notification on the next run.
func (l *Ledger) MarkSent(acptno string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[acptno] = true
	return l.save()
}

// PurgeOld drops ids not belonging to the given date. Accession ids carry
// the filing date as their first eight characters.
func (l *Ledger) PurgeOld(date string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id := range l.sent {
		if !strings.HasPrefix(id, date) {
			delete(l.sent, id)
		}
	}
	return l.save()
}

// Size returns the number of recorded ids.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// save rewrites the ledger file wholesale. Caller holds the mutex.
func (l *Ledger) save() error {
	ids := make([]string, 0, len(l.sent))
	for id := range l.sent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(ledgerFile{
		Updated:    time.Now().Format("2006-01-02 15:04:05"),
		SentAcptno: ids,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sent ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sent ledger: %w", err)
	}
	return nil
}
