package kind

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/models"
)

const testAcptno = "20260828000123"

func testFetcherConfig(baseURL string) *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.KIND.BaseURL = baseURL
	return cfg
}

// newDocumentServer wires the full two-step resolution chain: viewer page
// with a document selector, contents endpoint with the redirect expression,
// and the final document body.
func newDocumentServer(t *testing.T, docBody []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/common/disclsviewer.do", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			require.Equal(t, testAcptno, r.URL.Query().Get("acptno"))
			fmt.Fprint(w, `<html><body>
<select id="mainDoc">
<option value="">선택</option>
<option value="20260828000123|Y">영업(잠정)실적</option>
</select>
</body></html>`)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "searchContents", r.PostForm.Get("method"))
		assert.Equal(t, "20260828000123", r.PostForm.Get("docNo"))
		fmt.Fprint(w, `<script>setPath('1', '/external/doc.htm', 'a');</script>`)
	})
	mux.HandleFunc("/external/doc.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write(docBody)
	})
	return httptest.NewServer(mux)
}

func TestFetchDocumentResolvesChain(t *testing.T) {
	srv := newDocumentServer(t, []byte("<html><body>매출액 1,000</body></html>"))
	defer srv.Close()

	fetcher := NewFetcher(testFetcherConfig(srv.URL), srv.Client(), arbor.NewLogger(), nil)
	html, ok := fetcher.FetchDocument(context.Background(), testAcptno)

	require.True(t, ok)
	assert.Contains(t, html, "매출액 1,000")
}

func TestFetchDocumentDecodesEUCKR(t *testing.T) {
	// Serve the document in EUC-KR, the legacy KIND encoding.
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte("<html><body>영업이익 120</body></html>"))
	require.NoError(t, err)

	srv := newDocumentServer(t, encoded)
	defer srv.Close()

	fetcher := NewFetcher(testFetcherConfig(srv.URL), srv.Client(), arbor.NewLogger(), nil)
	html, ok := fetcher.FetchDocument(context.Background(), testAcptno)

	require.True(t, ok)
	assert.Contains(t, html, "영업이익 120")
}

func TestFetchDocumentMissingSelectorSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>문서가 없습니다</body></html>`)
	}))
	defer srv.Close()

	skips := models.NewSkipCollector()
	fetcher := NewFetcher(testFetcherConfig(srv.URL), srv.Client(), arbor.NewLogger(), skips)
	_, ok := fetcher.FetchDocument(context.Background(), testAcptno)

	assert.False(t, ok)
	require.Equal(t, 1, skips.CountByStage(models.StageFetch))
	assert.Equal(t, testAcptno, skips.Events()[0].Key)
}

func TestFetchDocumentMissingRedirectSkips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/common/disclsviewer.do", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<select id="mainDoc"><option value="20260828000123|Y">본문</option></select>`)
			return
		}
		fmt.Fprint(w, `<html><body>리다이렉트 없음</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	skips := models.NewSkipCollector()
	fetcher := NewFetcher(testFetcherConfig(srv.URL), srv.Client(), arbor.NewLogger(), skips)
	_, ok := fetcher.FetchDocument(context.Background(), testAcptno)

	assert.False(t, ok)
	assert.Equal(t, 1, skips.CountByStage(models.StageFetch))
}

func TestFetchDocumentErrorStatusSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	skips := models.NewSkipCollector()
	fetcher := NewFetcher(testFetcherConfig(srv.URL), srv.Client(), arbor.NewLogger(), skips)
	_, ok := fetcher.FetchDocument(context.Background(), testAcptno)

	assert.False(t, ok)
	assert.Equal(t, 1, skips.CountByStage(models.StageFetch))
}

func TestDecodeDocumentPrefersUTF8(t *testing.T) {
	utf8Body := []byte("당기순이익 90")
	assert.Equal(t, "당기순이익 90", decodeDocument(utf8Body))

	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), utf8Body)
	require.NoError(t, err)
	assert.Equal(t, "당기순이익 90", decodeDocument(encoded))
}
