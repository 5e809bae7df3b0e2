// Package app wires the pipeline services and orchestrates a single
// collection run: list -> fetch -> extract -> normalize -> export -> notify.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/httpclient"
	"github.com/ternarybob/kindwatch/internal/models"
	"github.com/ternarybob/kindwatch/internal/services/export"
	"github.com/ternarybob/kindwatch/internal/services/kind"
	"github.com/ternarybob/kindwatch/internal/services/ledger"
	"github.com/ternarybob/kindwatch/internal/services/notify"
)

// Options selects per-run behavior.
type Options struct {
	Notify  bool // Dispatch chat notifications for collected filings
	OnlyNew bool // Process only filings absent from the sent ledger (monitoring mode)
}

// Result summarizes one pipeline run.
type Result struct {
	RunID        string
	Date         string
	Discovered   int // Qualifying filings on the listing
	Collected    int // Filings with a normalized earnings table
	Notified     int // Messages delivered
	WorkbookPath string
	Skips        []models.SkipEvent
}

// Pipeline holds the long-lived pieces of the collection run.
type Pipeline struct {
	config     *common.Config
	logger     arbor.ILogger
	httpClient *http.Client
	notifier   *notify.Telegram
	sentLedger *ledger.Ledger
	writer     *export.Writer
	limiter    *rate.Limiter
}

// New builds a pipeline from configuration. A nil logger falls back to
// the global console logger.
func New(config *common.Config, logger arbor.ILogger) *Pipeline {
	if logger == nil {
		logger = common.GetLogger()
	}

	client := httpclient.New(config.KIND.RequestTimeout, config.KIND.UserAgent)

	// The limiter spaces document fetches; politeness, not correctness.
	delay := config.KIND.RequestDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &Pipeline{
		config:     config,
		logger:     logger,
		httpClient: client,
		notifier:   notify.NewTelegram(config, httpclient.NewDefaultHTTPClient(15*time.Second), logger),
		sentLedger: ledger.New(config.Output.LedgerFile, logger),
		writer:     export.NewWriter(config.Output.Dir, logger),
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Ledger exposes the sent ledger for monitoring-mode maintenance.
func (p *Pipeline) Ledger() *ledger.Ledger {
	return p.sentLedger
}

// pendingMessage pairs an accession id with its formatted notification.
type pendingMessage struct {
	acptno string
	text   string
}

// Run executes one collection pass for the given date (YYYYMMDD; empty
// means today). The run never fails on per-filer problems: skips are
// collected and reported in the result, and a run that finds nothing
// returns zero counts.
func (p *Pipeline) Run(ctx context.Context, date string, opts Options) (*Result, error) {
	if date == "" {
		date = time.Now().Format("20060102")
	}

	runID := uuid.NewString()
	log := p.logger
	log.Info().
		Str("run_id", runID).
		Str("date", date).
		Bool("notify", opts.Notify).
		Bool("only_new", opts.OnlyNew).
		Msg("Starting disclosure run")

	skips := models.NewSkipCollector()
	lister := kind.NewLister(p.config, p.httpClient, log, skips)
	fetcher := kind.NewFetcher(p.config, p.httpClient, log, skips)

	if opts.OnlyNew {
		p.sentLedger.Reload()
	}

	disclosures := lister.ListDisclosures(ctx, date)
	discovered := len(disclosures)

	if opts.OnlyNew {
		disclosures = p.filterNew(disclosures)
		log.Info().
			Int("new", len(disclosures)).
			Int("already_sent", discovered-len(disclosures)).
			Msg("Filtered disclosures against sent ledger")
	}

	var (
		allRaw   []export.RawSheet
		allLong  []models.NormalizedRecord
		pending  []pendingMessage
		workbook string
	)

	for _, disc := range disclosures {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.result(runID, date, discovered, allRaw, workbook, skips), err
		}

		log.Debug().Str("acptno", disc.AccessionID).Str("corp", disc.CorpName).Msg("Processing filing")

		html, ok := fetcher.FetchDocument(ctx, disc.AccessionID)
		if !ok {
			continue
		}

		table, ok := kind.ExtractBestTable(html)
		if !ok {
			log.Warn().Str("acptno", disc.AccessionID).Str("corp", disc.CorpName).Msg("No earnings table found")
			skips.RecordSkip(models.SkipEvent{Stage: models.StageExtract, Reason: "no table scored above zero", Key: disc.AccessionID})
			continue
		}

		long, _ := kind.Normalize(table, disc)
		if len(long) == 0 {
			log.Warn().Str("acptno", disc.AccessionID).Str("corp", disc.CorpName).Msg("No rows matched the metric/scope ontology")
			skips.RecordSkip(models.SkipEvent{Stage: models.StageNormalize, Reason: "no rows matched ontology", Key: disc.AccessionID})
			continue
		}

		allRaw = append(allRaw, export.RawSheet{CorpName: disc.CorpName, Table: table})
		allLong = append(allLong, long...)

		pending = append(pending, pendingMessage{
			acptno: disc.AccessionID,
			text:   notify.FormatEarningsMessage(disc, long, disc.ViewerURL(p.config.KIND.BaseURL)),
		})

		log.Info().
			Str("corp", disc.CorpName).
			Str("stock_code", disc.StockCode).
			Int("rows", len(long)).
			Msg("Normalized filing")
	}

	if len(allLong) > 0 {
		path, err := p.writer.WriteWorkbook(date, allRaw, allLong, kind.WideSummary(allLong))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to save workbook")
		} else {
			workbook = path
		}
	}

	res := p.result(runID, date, discovered, allRaw, workbook, skips)

	if opts.Notify {
		res.Notified = p.dispatch(ctx, pending, skips)
		res.Skips = skips.Events()
	}

	log.Info().
		Str("run_id", runID).
		Int("discovered", res.Discovered).
		Int("collected", res.Collected).
		Int("notified", res.Notified).
		Int("skips", len(res.Skips)).
		Msg("Disclosure run complete")

	return res, nil
}

// dispatch sends pending messages serially, marking the ledger after each
// successful delivery (at-least-once ordering by design).
func (p *Pipeline) dispatch(ctx context.Context, pending []pendingMessage, skips *models.SkipCollector) int {
	sent := 0
	for i, msg := range pending {
		if p.notifier.Send(ctx, msg.text) {
			if err := p.sentLedger.MarkSent(msg.acptno); err != nil {
				p.logger.Warn().Err(err).Str("acptno", msg.acptno).Msg("Failed to persist sent ledger")
			}
			sent++
		} else {
			skips.RecordSkip(models.SkipEvent{Stage: models.StageNotify, Reason: "delivery failed", Key: msg.acptno})
		}

		if i < len(pending)-1 && p.config.Telegram.SendDelay > 0 {
			select {
			case <-ctx.Done():
				return sent
			case <-time.After(p.config.Telegram.SendDelay):
			}
		}
	}
	return sent
}

// filterNew drops filings whose accession id is already in the ledger.
func (p *Pipeline) filterNew(disclosures []models.DisclosureRecord) []models.DisclosureRecord {
	var fresh []models.DisclosureRecord
	for _, d := range disclosures {
		if !p.sentLedger.Contains(d.AccessionID) {
			fresh = append(fresh, d)
		}
	}
	return fresh
}

func (p *Pipeline) result(runID, date string, discovered int, raw []export.RawSheet, workbook string, skips *models.SkipCollector) *Result {
	return &Result{
		RunID:        runID,
		Date:         date,
		Discovered:   discovered,
		Collected:    len(raw),
		WorkbookPath: workbook,
		Skips:        skips.Events(),
	}
}
