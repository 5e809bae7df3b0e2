// Package news queries the Naver open news search API and cleans the
// results into models.NewsItem values ready for export or dispatch.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/models"
)

const apiDisplayMax = 100

var (
	tagPattern = regexp.MustCompile(`<[^>]+>`)
	// titleKeyPattern strips punctuation so near-identical headlines from
	// different outlets collapse to the same dedup key.
	titleKeyPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// pressByDomain maps article hosts to publisher names. Articles from
// hosts outside the map are labelled 기타.
var pressByDomain = map[string]string{
	"chosun.com":     "조선일보",
	"joongang.co.kr": "중앙일보",
	"donga.com":      "동아일보",
	"hankyung.com":   "한국경제",
	"mk.co.kr":       "매일경제",
	"sedaily.com":    "서울경제",
	"fnnews.com":     "파이낸셜뉴스",
	"mt.co.kr":       "머니투데이",
	"edaily.co.kr":   "이데일리",
	"yna.co.kr":      "연합뉴스",
	"ytn.co.kr":      "YTN",
	"sbs.co.kr":      "SBS",
	"kbs.co.kr":      "KBS",
	"mbc.co.kr":      "MBC",
	"news1.kr":       "뉴스1",
	"newsis.com":     "뉴시스",
	"etnews.com":     "전자신문",
	"zdnet.co.kr":    "ZDNet",
	"bloter.net":     "블로터",
}

// Client searches the Naver news API.
type Client struct {
	cfg        common.NaverConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewClient creates a news search client from the shared configuration.
func NewClient(cfg *common.Config, httpClient *http.Client, logger arbor.ILogger) *Client {
	return &Client{
		cfg:        cfg.Naver,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Enabled reports whether API credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

type searchItem struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	PubDate      string `json:"pubDate"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// Search runs one query per keyword and returns the cleaned, deduplicated
// results. A failed keyword is logged and skipped so the remaining
// keywords still produce results. pressFilter limits results to the named
// publishers; an empty filter (or one containing 전체) keeps everything.
// fallbackDate (YYYY-MM-DD) is used when an article has no parseable date.
func (c *Client) Search(ctx context.Context, keywords []string, pressFilter []string, fallbackDate string) []models.NewsItem {
	if fallbackDate == "" {
		fallbackDate = time.Now().Format("2006-01-02")
	}

	var all []models.NewsItem
	for _, keyword := range keywords {
		items, err := c.searchKeyword(ctx, keyword)
		if err != nil {
			c.logger.Warn().Err(err).Str("keyword", keyword).Msg("News search failed, skipping keyword")
			continue
		}

		for _, it := range items {
			originalURL := it.OriginalLink
			if originalURL == "" {
				originalURL = it.Link
			}
			press := pressName(originalURL)
			if !pressAllowed(press, pressFilter) {
				continue
			}
			all = append(all, models.NewsItem{
				Date:        parsePubDate(it.PubDate, fallbackDate),
				Keyword:     keyword,
				Press:       press,
				Title:       cleanHTML(it.Title),
				Summary:     cleanHTML(it.Description),
				OriginalURL: originalURL,
			})
		}

		c.logger.Info().Str("keyword", keyword).Int("items", len(items)).Msg("News search complete")
	}

	deduped := dedupeByTitle(all)
	if removed := len(all) - len(deduped); removed > 0 {
		c.logger.Info().Int("removed", removed).Msg("Removed duplicate headlines")
	}
	return deduped
}

func (c *Client) searchKeyword(ctx context.Context, keyword string) ([]searchItem, error) {
	display := c.cfg.Display
	if display <= 0 || display > apiDisplayMax {
		display = apiDisplayMax
	}

	params := url.Values{}
	params.Set("query", keyword)
	params.Set("display", fmt.Sprintf("%d", display))
	params.Set("start", "1")
	params.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.cfg.ClientID)
	req.Header.Set("X-Naver-Client-Secret", c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Items, nil
}

// cleanHTML decodes entities, strips markup, and collapses runs of
// whitespace. The API returns titles with <b> highlighting around the
// matched keyword.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func pressName(originalURL string) string {
	for domain, press := range pressByDomain {
		if strings.Contains(originalURL, domain) {
			return press
		}
	}
	return "기타"
}

func pressAllowed(press string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, p := range filter {
		if p == "전체" || p == press {
			return true
		}
	}
	return false
}

// parsePubDate converts the API's RFC 2822 timestamp to YYYY-MM-DD,
// falling back to the search date when the field is absent or malformed.
func parsePubDate(pubDate, fallback string) string {
	dt, err := time.Parse(time.RFC1123Z, pubDate)
	if err != nil {
		return fallback
	}
	return dt.Format("2006-01-02")
}

// dedupeByTitle keeps the first occurrence of each headline, comparing
// lowercased titles with punctuation removed.
func dedupeByTitle(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		key := titleKeyPattern.ReplaceAllString(strings.ToLower(it.Title), "")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
