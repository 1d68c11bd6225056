package recovery

import "math"

const (
	minEvapTemp  = -30.0
	maxCondTemp  = 160.0
	minLift      = 10.0
	maxCarnotCOP = 15.0
	minCOP       = 1.0
	maxCOP       = 8.0

	absorptionSteamGenCOP = 1.45
	absorptionCOP         = 1.70

	highLift        = 80.0
	highLiftPenalty = 0.85

	kelvin = 273.15
)

// CycleInputs describes one heat-pump operating point.
type CycleInputs struct {
	EvapTemp     float64
	CondTemp     float64
	Efficiency   float64 // fraction of Carnot
	Mode         Mode
	Strategy     Strategy
	RecoveryType RecoveryType
}

// CycleResult is the cycle model output. A non-empty Error marks an input
// outside the physical envelope; it is a normal result, not a failure.
type CycleResult struct {
	COP   float64 `json:"cop"`
	Lift  float64 `json:"lift"`
	Error string  `json:"error,omitempty"`
}

func (r CycleResult) InEnvelope() bool {
	return r.Error == ""
}

// ComputeCOP evaluates the cycle model.
func ComputeCOP(in CycleInputs) CycleResult {
	lift := in.CondTemp - in.EvapTemp

	if in.EvapTemp < minEvapTemp {
		return CycleResult{COP: minCOP, Lift: round(lift, 1), Error: EnvelopeEvapTooLow}
	}
	if in.CondTemp > maxCondTemp {
		return CycleResult{COP: minCOP, Lift: round(lift, 1), Error: EnvelopeCondTooHigh}
	}
	if lift <= minLift {
		return CycleResult{COP: maxCOP, Lift: round(lift, 1), Error: EnvelopeLiftTooSmall}
	}

	steamGen := in.Mode == ModeSteam && in.Strategy == StrategyGenerate

	if in.RecoveryType == RecoveryAbsorption {
		cop := absorptionCOP
		if steamGen {
			cop = absorptionSteamGenCOP
		}
		return CycleResult{COP: cop, Lift: round(lift, 1)}
	}

	evapK := in.EvapTemp + kelvin
	condK := in.CondTemp + kelvin
	carnot := math.Min(condK/(condK-evapK), maxCarnotCOP)

	penalty := 1.0
	if steamGen && lift > highLift {
		penalty = highLiftPenalty
	}

	cop := clamp(carnot*in.Efficiency*penalty, minCOP, maxCOP)
	return CycleResult{COP: round(cop, 2), Lift: round(lift, 1)}
}

// StandardRequest is the input of the simple COP lookup.
type StandardRequest struct {
	SourceTemp        float64  `json:"source_temp" yaml:"source_temp"`
	TargetTemp        float64  `json:"target_temp" yaml:"target_temp"`
	Efficiency        float64  `json:"efficiency" yaml:"efficiency"`
	Mode              Mode     `json:"mode" yaml:"mode"`
	Strategy          Strategy `json:"strategy" yaml:"strategy"`
	TargetPressureMPa float64  `json:"target_pressure_mpa,omitempty" yaml:"target_pressure_mpa"`
	AltitudeM         float64  `json:"altitude_m,omitempty" yaml:"altitude_m"`
}

func DefaultStandardRequest() StandardRequest {
	return StandardRequest{
		Efficiency: 0.55,
		Mode:       ModeWater,
		Strategy:   StrategyPreheat,
	}
}

func (r StandardRequest) Validate() error {
	if !r.Mode.Valid() {
		return ErrInvalidMode
	}
	if !r.Strategy.Valid() {
		return ErrInvalidStrategy
	}
	if r.Efficiency <= 0 || r.Efficiency > 1 {
		return ErrInvalidEfficiency
	}
	return nil
}

type StandardEcho struct {
	Source float64 `json:"source"`
	Target float64 `json:"target"`
}

type StandardResult struct {
	InputEcho        StandardEcho `json:"input_echo"`
	SimulationResult CycleResult  `json:"simulation_result"`
}

// StandardCOP derives evaporator and condenser temperatures with a 5 K
// approach on each side and evaluates a compressor cycle. In steam mode a
// target pressure, when given, replaces the target temperature with the
// saturation temperature at that pressure.
func StandardCOP(req StandardRequest) StandardResult {
	target := req.TargetTemp
	if req.Mode == ModeSteam && req.TargetPressureMPa > 0 {
		target = SaturationTemperature(req.TargetPressureMPa, AtmosphericPressure(req.AltitudeM))
	}
	res := ComputeCOP(CycleInputs{
		EvapTemp:     req.SourceTemp - 5.0,
		CondTemp:     target + 5.0,
		Efficiency:   req.Efficiency,
		Mode:         req.Mode,
		Strategy:     req.Strategy,
		RecoveryType: RecoveryMVR,
	})
	return StandardResult{
		InputEcho:        StandardEcho{Source: req.SourceTemp, Target: target},
		SimulationResult: res,
	}
}
