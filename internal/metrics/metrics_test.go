package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistryExposesCollectors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Recomputations.Inc()
	reg.CompositionWrites.WithLabelValues("insert").Inc()

	if got := testutil.ToFloat64(reg.Recomputations); got != 1 {
		t.Fatalf("Recomputations = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, name := range []string{"menu_calorie_recomputations_total", `menu_composition_writes_total{op="insert"}`} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
