package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"travi_content/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors are exported
	observability.ObserveHTTP("/api/guides", "GET", 200, 12*time.Millisecond)
	observability.ObserveStore("guides", "write", errors.New("disk full"), time.Millisecond)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, "travi_http_requests_total") {
		t.Fatalf("expected travi_http_requests_total in output")
	}
	if !strings.Contains(out, `travi_store_operations_total{op="write",resource="guides",result="error"} 1`) {
		t.Fatalf("expected failed store write sample, got:\n%s", out)
	}
}
