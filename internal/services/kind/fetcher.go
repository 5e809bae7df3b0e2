package kind

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/models"
)

// setPathPattern extracts the real document URL from the embedded redirect
// expression in the viewer response.
var setPathPattern = regexp.MustCompile(`setPath\s*\([^,]*,\s*['"]([^'"]+)['"]`)

// Fetcher resolves an accession id to the raw filing document HTML.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	skips      models.SkipObserver
}

// NewFetcher creates a document fetcher from configuration.
func NewFetcher(cfg *common.Config, httpClient *http.Client, logger arbor.ILogger, skips models.SkipObserver) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		baseURL:    cfg.KIND.BaseURL,
		httpClient: httpClient,
		logger:     logger,
		skips:      skips,
	}
}

// FetchDocument performs the two-step resolution for an accession id:
// viewer page -> document token -> final document URL, then downloads
// the document applying the fallback decode chain. Any failure in the
// chain returns ok=false; callers treat that as "skip this filer".
func (f *Fetcher) FetchDocument(ctx context.Context, acptno string) (string, bool) {
	docNo, ok := f.resolveDocNo(ctx, acptno)
	if !ok {
		return "", false
	}

	docURL, ok := f.resolveDocURL(ctx, acptno, docNo)
	if !ok {
		return "", false
	}

	return f.downloadDocument(ctx, acptno, docURL)
}

// resolveDocNo loads the viewer page and extracts the first document token
// from the main document selection control.
func (f *Fetcher) resolveDocNo(ctx context.Context, acptno string) (string, bool) {
	viewerURL := fmt.Sprintf("%s/common/disclsviewer.do?method=search&acptno=%s", f.baseURL, acptno)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, viewerURL, nil)
	if err != nil {
		return "", f.skip(acptno, "viewer request failed: "+err.Error())
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", f.skip(acptno, "viewer fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", f.skip(acptno, fmt.Sprintf("viewer returned status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", f.skip(acptno, "viewer parse failed: "+err.Error())
	}

	docNo := ""
	doc.Find("select#mainDoc option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		val, _ := opt.Attr("value")
		if strings.Contains(val, "|") {
			docNo = strings.SplitN(val, "|", 2)[0]
			return false
		}
		return true
	})

	if docNo == "" {
		return "", f.skip(acptno, "no document selector on viewer page")
	}
	return docNo, true
}

// resolveDocURL posts the document token and extracts the final document
// URL from the redirect expression in the response body.
func (f *Fetcher) resolveDocURL(ctx context.Context, acptno, docNo string) (string, bool) {
	form := url.Values{
		"method": {"searchContents"},
		"docNo":  {docNo},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/common/disclsviewer.do", strings.NewReader(form.Encode()))
	if err != nil {
		return "", f.skip(acptno, "contents request failed: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", fmt.Sprintf("%s/common/disclsviewer.do?method=search&acptno=%s", f.baseURL, acptno))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", f.skip(acptno, "contents fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", f.skip(acptno, "contents read failed: "+err.Error())
	}

	m := setPathPattern.FindSubmatch(body)
	if m == nil {
		return "", f.skip(acptno, "no redirect expression in contents response")
	}

	docURL := string(m[1])
	if !strings.HasPrefix(docURL, "http") {
		docURL = f.baseURL + docURL
	}
	return docURL, true
}

// downloadDocument fetches the resolved document and decodes it.
func (f *Fetcher) downloadDocument(ctx context.Context, acptno, docURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", f.skip(acptno, "document request failed: "+err.Error())
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", f.skip(acptno, "document fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", f.skip(acptno, fmt.Sprintf("document returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", f.skip(acptno, "document read failed: "+err.Error())
	}

	f.logger.Debug().Str("acptno", acptno).Int("bytes", len(body)).Msg("Fetched disclosure document")

	return decodeDocument(body), true
}

// decodeDocument applies the fallback decode chain. KIND documents do not
// declare their encoding reliably: UTF-8 is tried first, then EUC-KR/CP949
// (one decoder in x/text, CP949 being the superset) with replacement of
// malformed sequences.
func decodeDocument(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}

	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// skip records a skip event and logs it; always returns false so call
// sites can return its result directly.
func (f *Fetcher) skip(acptno, reason string) bool {
	f.logger.Warn().Str("acptno", acptno).Str("reason", reason).Msg("Skipping document")
	if f.skips != nil {
		f.skips.RecordSkip(models.SkipEvent{Stage: models.StageFetch, Reason: reason, Key: acptno})
	}
	return false
}
