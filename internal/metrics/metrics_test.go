package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	Init()

	PageFetched()
	RecordEmitted()
	RecordSkipped()
	RecordDropped("normalize")
	RecordDropped("person")
	DimensionInsert("companies")
	CrawlStopped("max_page_reached")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, metric := range []string{
		"insider_registry_pages_fetched_total",
		"insider_records_emitted_total",
		"insider_records_skipped_total",
		`insider_records_dropped_total{stage="normalize"}`,
		`insider_dimension_inserts_total{table="companies"}`,
		`insider_crawl_stops_total{reason="max_page_reached"}`,
	} {
		require.True(t, strings.Contains(body, metric), "expected %s in scrape output", metric)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	PageFetched()
}
