package recovery

import "math"

const (
	// Evaporator and condenser approach temperatures, K.
	approach = 5.0

	stepGain         = 0.01
	minSourceOut     = 5.0
	inletMargin      = 0.1
	sourceLimitRatio = 0.95

	traceEvery      = 50
	traceNearDiffKW = 5.0
)

// SolverParams configures the balance solver.
type SolverParams struct {
	Tolerance     float64 // kW
	MaxIterations int
}

func DefaultSolverParams() SolverParams {
	return SolverParams{Tolerance: 0.5, MaxIterations: 1000}
}

func (p SolverParams) Validate() error {
	if p.Tolerance <= 0 {
		return ErrInvalidTolerance
	}
	if p.MaxIterations <= 0 {
		return ErrInvalidMaxIter
	}
	return nil
}

// Solver searches the source outlet temperature at which the flue gas
// supplies exactly the evaporator heat the sink demand requires. It holds no
// state besides its parameters and is safe for concurrent use.
type Solver struct {
	params SolverParams
}

func NewSolver(params SolverParams) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Solver{params: params}, nil
}

func (s *Solver) Params() SolverParams {
	return s.params
}

// Solve is SolveTraced without a tracer.
func (s *Solver) Solve(req SolverRequest) SolverResult {
	return s.SolveTraced(req, nil)
}

// SolveTraced runs the damped fixed-point iteration and, when it does not
// converge within MaxIterations, evaluates the system at the user's target
// outlet temperature instead. tr may be nil.
func (s *Solver) SolveTraced(req SolverRequest, tr Tracer) SolverResult {
	req = req.Normalize()
	emit := func(e TraceEvent) {
		if tr != nil {
			tr.Trace(e)
		}
	}

	targetLoad := SinkLoad(req)
	floor := math.Max(minSourceOut, req.TargetSourceOut)
	t := floor
	emit(TraceEvent{Phase: PhaseStart, SourceOut: t, TargetLoadKW: round(targetLoad, 1)})

	for i := 0; i < s.params.MaxIterations; i++ {
		cop := s.evaluateCOP(req, t)
		needed := targetLoad * copFactor(cop)
		avail := FlueHeatRelease(req.SourceInTemp, t, req.SourceFlowVol, req.Fuel, req.ExcessAir)
		diff := avail - needed

		ev := TraceEvent{
			Phase:        PhaseIterate,
			Iteration:    i + 1,
			SourceOut:    t,
			COP:          cop,
			AvailableKW:  avail,
			NeededKW:     needed,
			DiffKW:       diff,
			TargetLoadKW: round(targetLoad, 1),
		}
		if i%traceEvery == 0 || math.Abs(diff) < traceNearDiffKW {
			emit(ev)
		}

		if math.Abs(diff) < s.params.Tolerance {
			res := SolverResult{
				Status:            StatusConverged,
				Iterations:        i + 1,
				TargetLoadKW:      round(targetLoad, 1),
				ActualLoadKW:      round(targetLoad, 1),
				MaxLoadKW:         round(maxLoad(avail, cop), 1),
				RequiredSourceOut: t,
				ActualSourceOut:   t,
				ActualSinkOut:     req.SinkOutTarget,
				FinalCOP:          cop,
				SourceTotalKW:     round(avail, 1),
				Condensation:      condensation(req, t),
			}
			ev.Phase = PhaseConverged
			emit(ev)
			return res
		}

		t += diff * stepGain
		if t >= req.SourceInTemp {
			t = req.SourceInTemp - inletMargin
		}
		if t < floor {
			t = floor
		}
	}

	return s.fallback(req, targetLoad, emit)
}

// fallback accepts the user's outlet temperature and reports what load the
// source can carry there.
func (s *Solver) fallback(req SolverRequest, targetLoad float64, emit func(TraceEvent)) SolverResult {
	t := math.Max(minSourceOut, req.TargetSourceOut)
	cop := s.evaluateCOP(req, t)
	avail := FlueHeatRelease(req.SourceInTemp, t, req.SourceFlowVol, req.Fuel, req.ExcessAir)
	limit := maxLoad(avail, cop)

	sinkOut := req.SinkInTemp
	if req.SinkFlowKgH > 0 {
		sinkOut = req.SinkInTemp + limit*3600/(req.SinkFlowKgH*waterCp)
	}
	sinkOut = math.Min(sinkOut, req.SinkOutTarget)

	res := SolverResult{
		Status:            StatusFallback,
		Iterations:        s.params.MaxIterations,
		TargetLoadKW:      round(targetLoad, 1),
		ActualLoadKW:      round(math.Min(limit, targetLoad), 1),
		MaxLoadKW:         round(limit, 1),
		RequiredSourceOut: round(t, 2),
		ActualSourceOut:   round(t, 2),
		ActualSinkOut:     round(sinkOut, 1),
		FinalCOP:          cop,
		SourceTotalKW:     round(avail, 1),
		IsSourceLimited:   limit < sourceLimitRatio*targetLoad,
		Condensation:      condensation(req, t),
	}
	emit(TraceEvent{
		Phase:        PhaseFallback,
		Iteration:    s.params.MaxIterations,
		SourceOut:    t,
		COP:          cop,
		AvailableKW:  avail,
		NeededKW:     targetLoad * copFactor(cop),
		DiffKW:       avail - targetLoad*copFactor(cop),
		TargetLoadKW: round(targetLoad, 1),
	})
	return res
}

func (s *Solver) evaluateCOP(req SolverRequest, sourceOut float64) float64 {
	if req.IsManualCOP {
		return req.ManualCOP
	}
	return ComputeCOP(CycleInputs{
		EvapTemp:     sourceOut - approach,
		CondTemp:     req.SinkOutTarget + approach,
		Efficiency:   req.Efficiency,
		Mode:         req.Mode,
		Strategy:     req.Strategy,
		RecoveryType: req.RecoveryType,
	}).COP
}

// SinkLoad is the heat the sink needs to go from inlet to target, kW.
func SinkLoad(req SolverRequest) float64 {
	hIn := Enthalpy(req.SinkInTemp, false)
	hOut := Enthalpy(req.SinkOutTarget, req.Mode == ModeSteam)
	return req.SinkFlowKgH * (hOut - hIn) / 3600.0
}

// copFactor is the share of delivered heat drawn from the source.
func copFactor(cop float64) float64 {
	if cop <= 1.0 {
		return 0
	}
	return (cop - 1) / cop
}

// maxLoad is the sink load a source delivering avail kW can support.
func maxLoad(avail, cop float64) float64 {
	f := copFactor(cop)
	if f <= 0 {
		return 0
	}
	return avail / f
}

func condensation(req SolverRequest, sourceOut float64) *Condensation {
	if req.Fuel == FuelElectricity {
		return nil
	}
	dp := AdjustedDewPoint(FuelFor(req.Fuel).DewPointRef, req.ExcessAir)
	c := CondensedWater(sourceOut, req.SourceFlowVol, FlueH2OPercent(req.Fuel, req.ExcessAir), dp)
	return &c
}
