// Package kind implements the KIND disclosure pipeline: listing the daily
// filings, fetching filing documents, extracting the earnings table and
// normalizing it into long/wide records.
package kind

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/models"
)

var (
	acptnoPattern    = regexp.MustCompile(`openDisclsViewer\('(\d+)'`)
	stockCodePattern = regexp.MustCompile(`companysummary_open\('(\d+)'`)
)

// Lister queries the KIND daily-disclosure listing for filings whose title
// carries the preliminary-results marker.
type Lister struct {
	baseURL    string
	marker     string
	pageSize   int
	maxPages   int
	pageDelay  time.Duration
	httpClient *http.Client
	logger     arbor.ILogger
	skips      models.SkipObserver
}

// NewLister creates a lister from configuration.
func NewLister(cfg *common.Config, httpClient *http.Client, logger arbor.ILogger, skips models.SkipObserver) *Lister {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Lister{
		baseURL:    cfg.KIND.BaseURL,
		marker:     cfg.KIND.TitleMarker,
		pageSize:   cfg.KIND.PageSize,
		maxPages:   cfg.KIND.MaxPages,
		pageDelay:  cfg.KIND.PageDelay,
		httpClient: httpClient,
		logger:     logger,
		skips:      skips,
	}
}

// ListDisclosures pages through the listing endpoint for the given date
// (YYYYMMDD) and returns the qualifying filings, deduplicated by accession
// id with the first occurrence kept. A page failure logs a warning and
// returns whatever was accumulated so far; it never aborts the whole run.
func (l *Lister) ListDisclosures(ctx context.Context, date string) []models.DisclosureRecord {
	var disclosures []models.DisclosureRecord
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		if page > l.maxPages {
			// Soft safety bound, not an error condition.
			l.logger.Info().Int("max_pages", l.maxPages).Msg("Listing page ceiling reached, stopping pagination")
			break
		}

		rows, err := l.fetchListingPage(ctx, date, page)
		if err != nil {
			l.logger.Warn().Err(err).Int("page", page).Str("date", date).Msg("Listing page failed, returning partial results")
			l.recordSkip(models.SkipEvent{Stage: models.StageList, Reason: err.Error(), Key: fmt.Sprintf("page-%d", page)})
			break
		}

		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			rec, ok := l.parseRow(row, date)
			if !ok {
				continue
			}
			if seen[rec.AccessionID] {
				continue
			}
			seen[rec.AccessionID] = true
			disclosures = append(disclosures, rec)
		}

		// A short page is the terminal page.
		if len(rows) < l.pageSize {
			break
		}

		if l.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return disclosures
			case <-time.After(l.pageDelay):
			}
		}
	}

	l.logger.Info().
		Str("date", date).
		Int("count", len(disclosures)).
		Msg("Listed preliminary-earnings disclosures")

	return disclosures
}

// fetchListingPage posts the form query for one listing page and returns
// the tbody rows.
func (l *Lister) fetchListingPage(ctx context.Context, date string, page int) ([]*goquery.Selection, error) {
	form := url.Values{
		"method":          {"searchTodayDisclosureSub"},
		"currentPageSize": {strconv.Itoa(l.pageSize)},
		"pageIndex":       {strconv.Itoa(page)},
		"orderMode":       {"0"},
		"orderStat":       {"D"},
		"forward":         {"todaydisclosure_sub"},
		"marketType":      {""},
		"disclosureType":  {""},
		"fromDate":        {date},
		"toDate":          {date},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/disclosure/todaydisclosure.do", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	var rows []*goquery.Selection
	doc.Find("tbody tr").Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, s)
	})
	return rows, nil
}

// parseRow turns one listing row into a DisclosureRecord. Rows without a
// clickable title, without the marker substring, or without a resolvable
// accession id are skipped silently per the lister contract.
func (l *Lister) parseRow(row *goquery.Selection, date string) (models.DisclosureRecord, bool) {
	cols := row.Find("td")
	if cols.Length() < 4 {
		return models.DisclosureRecord{}, false
	}

	titleElem := cols.Eq(2).Find("a").First()
	if titleElem.Length() == 0 {
		return models.DisclosureRecord{}, false
	}

	title := strings.TrimSpace(titleElem.Text())
	if !strings.Contains(title, l.marker) {
		return models.DisclosureRecord{}, false
	}

	onclick, _ := titleElem.Attr("onclick")
	m := acptnoPattern.FindStringSubmatch(onclick)
	if m == nil {
		return models.DisclosureRecord{}, false
	}
	acptno := m[1]

	companyElem := cols.Eq(1).Find("a#companysum").First()
	corpName := strings.TrimSpace(companyElem.Text())

	stockCode := ""
	if corpOnclick, ok := companyElem.Attr("onclick"); ok {
		if cm := stockCodePattern.FindStringSubmatch(corpOnclick); cm != nil {
			stockCode = zeroPad(cm[1], 6)
		}
	}

	return models.DisclosureRecord{
		Time:        strings.TrimSpace(cols.Eq(0).Text()),
		StockCode:   stockCode,
		CorpName:    corpName,
		Title:       title,
		AccessionID: acptno,
		Submitter:   strings.TrimSpace(cols.Eq(3).Text()),
		Date:        date,
	}, true
}

func (l *Lister) recordSkip(event models.SkipEvent) {
	if l.skips != nil {
		l.skips.RecordSkip(event)
	}
}

// zeroPad left-pads s with zeros to the given width.
func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
