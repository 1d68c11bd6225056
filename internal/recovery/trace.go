package recovery

type Phase string

const (
	PhaseStart     Phase = "start"
	PhaseIterate   Phase = "iterate"
	PhaseConverged Phase = "converged"
	PhaseFallback  Phase = "fallback"
)

// TraceEvent is a diagnostic snapshot of the solver. It is not part of the
// result contract.
type TraceEvent struct {
	Phase        Phase   `json:"phase"`
	Iteration    int     `json:"iteration"`
	SourceOut    float64 `json:"source_out"`
	COP          float64 `json:"cop"`
	AvailableKW  float64 `json:"available_kw"`
	NeededKW     float64 `json:"needed_kw"`
	DiffKW       float64 `json:"diff_kw"`
	TargetLoadKW float64 `json:"target_load_kw"`
}

type Tracer interface {
	Trace(TraceEvent)
}

// TraceFunc adapts a function to Tracer.
type TraceFunc func(TraceEvent)

func (f TraceFunc) Trace(e TraceEvent) { f(e) }
