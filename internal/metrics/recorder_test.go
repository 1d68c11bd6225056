package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

func TestRecorderObserveSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	r.ObserveSolve(recovery.SolverResult{Status: recovery.StatusConverged, Iterations: 8, FinalCOP: 1.7})
	r.ObserveSolve(recovery.SolverResult{Status: recovery.StatusFallback, Iterations: 1000, FinalCOP: 2.89, IsSourceLimited: true})
	r.ObserveSolve(recovery.SolverResult{Status: recovery.StatusConverged, Iterations: 5, FinalCOP: 3.5})

	if got := testutil.ToFloat64(r.solves.WithLabelValues("converged")); got != 2 {
		t.Fatalf("converged solves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.solves.WithLabelValues("fallback")); got != 1 {
		t.Fatalf("fallback solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sourceLimited); got != 1 {
		t.Fatalf("source limited = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.finalCOP); got != 3.5 {
		t.Fatalf("final cop = %v, want 3.5", got)
	}
	if got := testutil.CollectAndCount(r.iterations); got != 1 {
		t.Fatalf("iterations histogram series = %d, want 1", got)
	}
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("first NewRecorder: %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Fatal("expected an error registering the same collectors twice")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	r.ObserveSolve(recovery.SolverResult{Status: recovery.StatusConverged, Iterations: 3, FinalCOP: 2})

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{
		`heatrecovery_solves_total{status="converged"} 1`,
		"heatrecovery_solver_iterations_bucket",
		"heatrecovery_final_cop 2",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("missing %q in exposition:\n%s", name, body)
		}
	}
}
