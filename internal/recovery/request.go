package recovery

// Boiling-safety cap on the sink target in steam mode, °C.
const steamTargetCap = 98.0

// SolverRequest describes the sink demand and the flue-gas source.
// Temperatures are °C, sink flow kg/h, source flow m³/h.
type SolverRequest struct {
	SinkInTemp      float64      `json:"sink_in_temp" yaml:"sink_in_temp"`
	SinkOutTarget   float64      `json:"sink_out_target" yaml:"sink_out_target"`
	SinkFlowKgH     float64      `json:"sink_flow_kg_h" yaml:"sink_flow_kg_h"`
	Mode            Mode         `json:"mode" yaml:"mode"`
	SourceInTemp    float64      `json:"source_in_temp" yaml:"source_in_temp"`
	TargetSourceOut float64      `json:"target_source_out" yaml:"target_source_out"`
	SourceFlowVol   float64      `json:"source_flow_vol" yaml:"source_flow_vol"`
	Fuel            FuelKind     `json:"fuel_type" yaml:"fuel_type"`
	Efficiency      float64      `json:"efficiency" yaml:"efficiency"`
	Strategy        Strategy     `json:"strategy" yaml:"strategy"`
	RecoveryType    RecoveryType `json:"recovery_type" yaml:"recovery_type"`
	ExcessAir       float64      `json:"excess_air" yaml:"excess_air"`
	IsManualCOP     bool         `json:"is_manual_cop" yaml:"is_manual_cop"`
	ManualCOP       float64      `json:"manual_cop" yaml:"manual_cop"`
}

// DefaultSolverRequest returns the defaults applied to fields a caller omits.
func DefaultSolverRequest() SolverRequest {
	return SolverRequest{
		SinkInTemp:      20,
		SinkOutTarget:   90,
		SinkFlowKgH:     50000,
		Mode:            ModeWater,
		SourceInTemp:    130,
		TargetSourceOut: 30,
		SourceFlowVol:   30000,
		Fuel:            FuelNaturalGas,
		Efficiency:      0.55,
		Strategy:        StrategyPreheat,
		RecoveryType:    RecoveryMVR,
		ExcessAir:       defaultExcessAir,
	}
}

// Normalize applies the steam boiling-safety cap and the default excess air.
func (r SolverRequest) Normalize() SolverRequest {
	if r.Mode == ModeSteam && r.SinkOutTarget > steamTargetCap {
		r.SinkOutTarget = steamTargetCap
	}
	if r.ExcessAir == 0 {
		r.ExcessAir = defaultExcessAir
	}
	return r
}

// Validate checks a request at the system boundary.
func (r SolverRequest) Validate() error {
	if !r.Mode.Valid() {
		return ErrInvalidMode
	}
	if !r.Strategy.Valid() {
		return ErrInvalidStrategy
	}
	if !r.RecoveryType.Valid() {
		return ErrInvalidRecoveryType
	}
	if r.SinkFlowKgH <= 0 {
		return ErrInvalidSinkFlow
	}
	if r.SourceFlowVol < 0 {
		return ErrInvalidSourceFlow
	}
	if r.Efficiency <= 0 || r.Efficiency > 1 {
		return ErrInvalidEfficiency
	}
	if r.ExcessAir != 0 && r.ExcessAir < 1 {
		return ErrInvalidExcessAir
	}
	if r.IsManualCOP && r.ManualCOP <= 1 {
		return ErrInvalidManualCOP
	}
	if r.SinkOutTarget <= r.SinkInTemp {
		return ErrSinkTemperatures
	}
	if r.TargetSourceOut >= r.SourceInTemp {
		return ErrSourceTemperatures
	}
	return nil
}

// Status tells how the operating point was found. Both values are successful
// outcomes.
type Status string

const (
	// StatusConverged: the source outlet temperature balancing supply and
	// demand was found.
	StatusConverged Status = "converged"
	// StatusFallback: the iteration cap was reached and the system was
	// evaluated at the user's target outlet temperature.
	StatusFallback Status = "fallback"
)

// SolverResult is the operating point. Loads are kW, temperatures °C.
// Source outlet temperatures are the solver's candidate as is, so the heat
// balance holds within tolerance at exactly the reported value.
type SolverResult struct {
	Status            Status        `json:"status"`
	Iterations        int           `json:"iterations"`
	TargetLoadKW      float64       `json:"target_load_kw"`
	ActualLoadKW      float64       `json:"actual_load_kw"`
	MaxLoadKW         float64       `json:"max_load_kw"`
	RequiredSourceOut float64       `json:"required_source_out"`
	ActualSourceOut   float64       `json:"actual_source_out"`
	ActualSinkOut     float64       `json:"actual_sink_out"`
	FinalCOP          float64       `json:"final_cop"`
	SourceTotalKW     float64       `json:"source_total_kw"`
	IsSourceLimited   bool          `json:"is_source_limited"`
	Condensation      *Condensation `json:"condensation,omitempty"`
}

func (r SolverResult) Converged() bool {
	return r.Status == StatusConverged
}
