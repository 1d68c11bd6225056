package recovery

import (
	"math"
	"reflect"
	"sync"
	"testing"
)

func newTestSolver(t *testing.T) *Solver {
	t.Helper()
	s, err := NewSolver(DefaultSolverParams())
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return s
}

func TestNewSolver_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params SolverParams
		want   error
	}{
		{"zero tolerance", SolverParams{Tolerance: 0, MaxIterations: 10}, ErrInvalidTolerance},
		{"negative tolerance", SolverParams{Tolerance: -1, MaxIterations: 10}, ErrInvalidTolerance},
		{"zero iterations", SolverParams{Tolerance: 0.5, MaxIterations: 0}, ErrInvalidMaxIter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSolver(tt.params)
			if err != tt.want {
				t.Fatalf("NewSolver err = %v, want %v", err, tt.want)
			}
			if s != nil {
				t.Fatalf("expected nil solver on error")
			}
		})
	}
}

func TestSinkLoad(t *testing.T) {
	req := DefaultSolverRequest()
	if got := SinkLoad(req); !almostEqual(got, 4070.694, 1e-3) {
		t.Fatalf("SinkLoad = %v, want about 4070.694", got)
	}
}

func TestSolve_ManualCOPConverges(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 40000
	req.IsManualCOP = true
	req.ManualCOP = 3.5

	res := s.Solve(req)

	if !res.Converged() {
		t.Fatalf("expected convergence, got %+v", res)
	}
	if res.FinalCOP != 3.5 {
		t.Fatalf("FinalCOP = %v, want 3.5", res.FinalCOP)
	}
	if res.Iterations < 1 || res.Iterations > 20 {
		t.Fatalf("Iterations = %d", res.Iterations)
	}
	if res.TargetLoadKW != 4070.7 || res.ActualLoadKW != res.TargetLoadKW {
		t.Fatalf("loads: target %v actual %v", res.TargetLoadKW, res.ActualLoadKW)
	}
	if res.ActualSinkOut != req.SinkOutTarget {
		t.Fatalf("ActualSinkOut = %v", res.ActualSinkOut)
	}
	if res.RequiredSourceOut < 34.2 || res.RequiredSourceOut > 34.7 {
		t.Fatalf("RequiredSourceOut = %v, want about 34.46", res.RequiredSourceOut)
	}
	if res.IsSourceLimited {
		t.Fatalf("converged result must not be source limited")
	}
	if res.Condensation == nil || res.Condensation.Condensed <= 0 {
		t.Fatalf("expected condensation below the dew point, got %+v", res.Condensation)
	}

	avail := FlueHeatRelease(req.SourceInTemp, res.RequiredSourceOut, req.SourceFlowVol, req.Fuel, req.ExcessAir)
	needed := SinkLoad(req) * 2.5 / 3.5
	if math.Abs(avail-needed) >= DefaultSolverParams().Tolerance {
		t.Fatalf("balance off at reported outlet: avail %v needed %v", avail, needed)
	}
}

func TestSolve_AbsorptionConverges(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.RecoveryType = RecoveryAbsorption

	res := s.Solve(req)

	if !res.Converged() {
		t.Fatalf("expected convergence, got %+v", res)
	}
	if res.FinalCOP != 1.70 {
		t.Fatalf("FinalCOP = %v, want 1.70", res.FinalCOP)
	}
	if res.RequiredSourceOut < 41.5 || res.RequiredSourceOut > 43 {
		t.Fatalf("RequiredSourceOut = %v, want about 42.1", res.RequiredSourceOut)
	}
}

func TestSolve_BalanceHoldsAtReportedOutlet(t *testing.T) {
	s := newTestSolver(t)
	tol := DefaultSolverParams().Tolerance

	for flow := 30000.0; flow <= 120000; flow += 5000 {
		req := DefaultSolverRequest()
		req.RecoveryType = RecoveryAbsorption
		req.SourceFlowVol = flow

		res := s.Solve(req)
		if !res.Converged() {
			t.Fatalf("flow=%v: expected convergence, got %q", flow, res.Status)
		}

		n := req.Normalize()
		cop := s.evaluateCOP(n, res.RequiredSourceOut)
		needed := SinkLoad(n) * copFactor(cop)
		avail := FlueHeatRelease(n.SourceInTemp, res.RequiredSourceOut, n.SourceFlowVol, n.Fuel, n.ExcessAir)
		if d := math.Abs(avail - needed); d >= tol {
			t.Fatalf("flow=%v: |avail-needed| = %v at outlet %v, tolerance %v", flow, d, res.RequiredSourceOut, tol)
		}
	}
}

// The default scenario cannot be balanced above its 30 °C outlet: the flue
// gas runs out before the MVR demand is met, so the solver falls back.
func TestSolve_DefaultScenarioFallsBackSourceLimited(t *testing.T) {
	s := newTestSolver(t)

	var last TraceEvent
	res := s.SolveTraced(DefaultSolverRequest(), TraceFunc(func(e TraceEvent) { last = e }))

	if res.Status != StatusFallback {
		t.Fatalf("Status = %q, want fallback", res.Status)
	}
	if res.Iterations != DefaultSolverParams().MaxIterations {
		t.Fatalf("Iterations = %d", res.Iterations)
	}
	if !res.IsSourceLimited {
		t.Fatalf("expected source limited: %+v", res)
	}
	if res.TargetLoadKW != 4070.7 {
		t.Fatalf("TargetLoadKW = %v", res.TargetLoadKW)
	}
	if !almostEqual(res.MaxLoadKW, 3782, 0.05) {
		t.Fatalf("MaxLoadKW = %v, want 3782", res.MaxLoadKW)
	}
	if !almostEqual(res.ActualSinkOut, 85, 0.05) {
		t.Fatalf("ActualSinkOut = %v, want 85", res.ActualSinkOut)
	}
	if res.FinalCOP != 2.89 {
		t.Fatalf("FinalCOP = %v, want 2.89", res.FinalCOP)
	}
	if res.RequiredSourceOut != 30 {
		t.Fatalf("RequiredSourceOut = %v, want 30", res.RequiredSourceOut)
	}
	if last.Phase != PhaseFallback || last.DiffKW >= 0 {
		t.Fatalf("last trace %+v, want a fallback with a heat deficit", last)
	}
}

func TestSolve_InfeasibleSourceFallsBack(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 1

	res := s.Solve(req)

	if res.Status != StatusFallback {
		t.Fatalf("Status = %q, want fallback", res.Status)
	}
	if res.Iterations != DefaultSolverParams().MaxIterations {
		t.Fatalf("Iterations = %d", res.Iterations)
	}
	if !res.IsSourceLimited {
		t.Fatalf("expected source limited")
	}
	if res.MaxLoadKW >= res.TargetLoadKW || res.ActualLoadKW > res.MaxLoadKW {
		t.Fatalf("loads: max %v actual %v target %v", res.MaxLoadKW, res.ActualLoadKW, res.TargetLoadKW)
	}
	if res.RequiredSourceOut != 30 || res.ActualSourceOut != 30 {
		t.Fatalf("outlet = %v/%v, want the user target 30", res.RequiredSourceOut, res.ActualSourceOut)
	}
	if res.ActualSinkOut != 20 {
		t.Fatalf("ActualSinkOut = %v, want 20", res.ActualSinkOut)
	}
	if res.FinalCOP != 2.89 {
		t.Fatalf("FinalCOP = %v, want 2.89", res.FinalCOP)
	}
	if res.Condensation == nil {
		t.Fatalf("expected a condensation report in fallback")
	}
}

func TestSolve_ManualCOPHonouredInFallback(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 1
	req.IsManualCOP = true
	req.ManualCOP = 3.5

	res := s.Solve(req)
	if res.Status != StatusFallback || res.FinalCOP != 3.5 {
		t.Fatalf("got status %q cop %v", res.Status, res.FinalCOP)
	}
}

func TestSolve_OutletNeverBelowFloor(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 1
	req.TargetSourceOut = 2

	var events []TraceEvent
	res := s.SolveTraced(req, TraceFunc(func(e TraceEvent) { events = append(events, e) }))

	if res.RequiredSourceOut != 5 {
		t.Fatalf("RequiredSourceOut = %v, want 5", res.RequiredSourceOut)
	}
	for _, e := range events {
		if e.SourceOut < 5 {
			t.Fatalf("candidate below floor: %+v", e)
		}
	}
}

func TestSolve_CandidateStaysBelowInlet(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 2000000
	req.SinkFlowKgH = 10

	var maxOut float64
	res := s.SolveTraced(req, TraceFunc(func(e TraceEvent) {
		maxOut = math.Max(maxOut, e.SourceOut)
	}))

	if maxOut >= req.SourceInTemp {
		t.Fatalf("candidate reached the inlet temperature: %v", maxOut)
	}
	if res.ActualSourceOut >= req.SourceInTemp {
		t.Fatalf("ActualSourceOut = %v", res.ActualSourceOut)
	}
}

func TestSolve_ResultConsistency(t *testing.T) {
	s := newTestSolver(t)
	for _, flow := range []float64{1000, 10000, 30000, 60000, 120000} {
		req := DefaultSolverRequest()
		req.SourceFlowVol = flow

		var last TraceEvent
		res := s.SolveTraced(req, TraceFunc(func(e TraceEvent) { last = e }))

		switch res.Status {
		case StatusConverged:
			if math.Abs(last.DiffKW) >= DefaultSolverParams().Tolerance {
				t.Fatalf("flow=%v: converged with |diff| = %v", flow, math.Abs(last.DiffKW))
			}
			if res.RequiredSourceOut != last.SourceOut {
				t.Fatalf("flow=%v: outlet %v, last candidate %v", flow, res.RequiredSourceOut, last.SourceOut)
			}
			if res.RequiredSourceOut < req.TargetSourceOut {
				t.Fatalf("flow=%v: outlet %v below the user target", flow, res.RequiredSourceOut)
			}
		case StatusFallback:
			if last.Phase != PhaseFallback {
				t.Fatalf("flow=%v: last phase %q", flow, last.Phase)
			}
			if res.RequiredSourceOut != req.TargetSourceOut {
				t.Fatalf("flow=%v: fallback outlet %v", flow, res.RequiredSourceOut)
			}
			if res.ActualSinkOut > req.SinkOutTarget {
				t.Fatalf("flow=%v: sink outlet %v above target", flow, res.ActualSinkOut)
			}
			if res.IsSourceLimited && res.MaxLoadKW >= res.TargetLoadKW {
				t.Fatalf("flow=%v: source limited with spare capacity %+v", flow, res)
			}
		default:
			t.Fatalf("flow=%v: unexpected status %q", flow, res.Status)
		}
	}
}

func TestSolve_SteamTargetCapped(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.Mode = ModeSteam
	req.SinkOutTarget = 150
	req.SinkFlowKgH = 5000
	req.SourceFlowVol = 1

	res := s.Solve(req)
	if res.TargetLoadKW != 3599.0 {
		t.Fatalf("TargetLoadKW = %v, want 3599.0 (capped at 98 °C)", res.TargetLoadKW)
	}
	if res.ActualSinkOut > steamTargetCap {
		t.Fatalf("ActualSinkOut = %v above the boiling cap", res.ActualSinkOut)
	}
}

func TestSolve_ElectricityHasNoCondensation(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.Fuel = FuelElectricity

	res := s.Solve(req)
	if res.Condensation != nil {
		t.Fatalf("expected no condensation report, got %+v", res.Condensation)
	}
}

func TestSolveTraced_Phases(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.SourceFlowVol = 40000
	req.IsManualCOP = true
	req.ManualCOP = 3.5

	var events []TraceEvent
	res := s.SolveTraced(req, TraceFunc(func(e TraceEvent) { events = append(events, e) }))

	if len(events) < 3 {
		t.Fatalf("expected start, iterate and converged events, got %d", len(events))
	}
	if events[0].Phase != PhaseStart {
		t.Fatalf("first phase = %q", events[0].Phase)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseConverged || last.Iteration != res.Iterations {
		t.Fatalf("last event = %+v, result iterations %d", last, res.Iterations)
	}
	if math.Abs(last.DiffKW) >= DefaultSolverParams().Tolerance {
		t.Fatalf("converged with |diff| = %v", math.Abs(last.DiffKW))
	}
}

func TestSolve_ConcurrentCallsAgree(t *testing.T) {
	s := newTestSolver(t)
	req := DefaultSolverRequest()
	req.RecoveryType = RecoveryAbsorption
	want := s.Solve(req)

	var wg sync.WaitGroup
	results := make([]SolverResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Solve(req)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("result %d differs:\n got %+v\nwant %+v", i, got, want)
		}
	}
}

func TestSolverRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SolverRequest)
		want   error
	}{
		{"defaults", func(*SolverRequest) {}, nil},
		{"unknown mode", func(r *SolverRequest) { r.Mode = ModeUnknown }, ErrInvalidMode},
		{"unknown strategy", func(r *SolverRequest) { r.Strategy = StrategyUnknown }, ErrInvalidStrategy},
		{"unknown recovery", func(r *SolverRequest) { r.RecoveryType = RecoveryUnknown }, ErrInvalidRecoveryType},
		{"no sink flow", func(r *SolverRequest) { r.SinkFlowKgH = 0 }, ErrInvalidSinkFlow},
		{"negative source flow", func(r *SolverRequest) { r.SourceFlowVol = -1 }, ErrInvalidSourceFlow},
		{"zero efficiency", func(r *SolverRequest) { r.Efficiency = 0 }, ErrInvalidEfficiency},
		{"excess air below one", func(r *SolverRequest) { r.ExcessAir = 0.5 }, ErrInvalidExcessAir},
		{"manual cop of one", func(r *SolverRequest) { r.IsManualCOP = true; r.ManualCOP = 1 }, ErrInvalidManualCOP},
		{"sink target below inlet", func(r *SolverRequest) { r.SinkOutTarget = 10 }, ErrSinkTemperatures},
		{"source outlet above inlet", func(r *SolverRequest) { r.TargetSourceOut = 140 }, ErrSourceTemperatures},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultSolverRequest()
			tt.mutate(&r)
			if err := r.Validate(); err != tt.want {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSolverRequestNormalize(t *testing.T) {
	r := DefaultSolverRequest()
	r.Mode = ModeSteam
	r.SinkOutTarget = 120
	r.ExcessAir = 0

	n := r.Normalize()
	if n.SinkOutTarget != 98 {
		t.Fatalf("SinkOutTarget = %v, want 98", n.SinkOutTarget)
	}
	if n.ExcessAir != 1.2 {
		t.Fatalf("ExcessAir = %v, want 1.2", n.ExcessAir)
	}
	if r.SinkOutTarget != 120 {
		t.Fatalf("Normalize mutated its receiver")
	}
}
