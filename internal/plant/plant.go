package plant

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

var (
	ErrUnknownField = errors.New("unknown scenario field")
	ErrMissingValue = errors.New("missing value")
	ErrInvalidValue = errors.New("invalid value")
	ErrInvalidID    = errors.New("device id is required")
)

// Snapshot is the plant state exposed to controllers.
type Snapshot struct {
	DeviceID  string                 `json:"device_id"`
	Request   recovery.SolverRequest `json:"request"`
	Result    recovery.SolverResult  `json:"result"`
	Solves    uint64                 `json:"solves"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Observer receives every solve outcome. metrics.Recorder implements it.
type Observer interface {
	ObserveSolve(recovery.SolverResult)
}

type Option func(*Plant)

func WithLogger(l *log.Logger) Option {
	return func(p *Plant) { p.log = log.NewEntry(l) }
}

func WithObserver(o Observer) Option {
	return func(p *Plant) { p.obs = o }
}

func withClock(now func() time.Time) Option {
	return func(p *Plant) { p.now = now }
}

// Plant is a heat-recovery station: one active scenario and its last
// operating point. Ad-hoc calculations do not touch the scenario.
type Plant struct {
	id     string
	solver *recovery.Solver
	log    *log.Entry
	obs    Observer
	now    func() time.Time

	mu sync.RWMutex
	s  Snapshot
}

// New validates and solves the initial scenario.
func New(id string, solver *recovery.Solver, initial recovery.SolverRequest, opts ...Option) (*Plant, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	p := &Plant{
		id:     id,
		solver: solver,
		log:    log.NewEntry(log.StandardLogger()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("device_id", id)

	if err := initial.Validate(); err != nil {
		return nil, err
	}
	p.s = Snapshot{DeviceID: id}
	p.apply(initial)
	return p, nil
}

func (p *Plant) Get() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.s
}

// Solve computes the operating point of req without changing the scenario.
func (p *Plant) Solve(req recovery.SolverRequest) (recovery.SolverResult, error) {
	return p.SolveTraced(req, nil)
}

// SolveTraced is Solve with solver trace events forwarded to tr. At debug
// level the events are logged as well.
func (p *Plant) SolveTraced(req recovery.SolverRequest, tr recovery.Tracer) (recovery.SolverResult, error) {
	if err := req.Validate(); err != nil {
		return recovery.SolverResult{}, err
	}
	return p.solve(req, tr), nil
}

// SetScenario replaces the active scenario and re-solves it.
func (p *Plant) SetScenario(req recovery.SolverRequest) (recovery.SolverResult, error) {
	return p.UpdateScenario(func(r *recovery.SolverRequest) error {
		*r = req
		return nil
	})
}

// UpdateScenario runs fn on a copy of the active scenario and applies the
// result if fn succeeds and the request validates. The read, the change and
// the solve happen under one lock, so concurrent partial updates never
// overwrite each other.
func (p *Plant) UpdateScenario(fn func(*recovery.SolverRequest) error) (recovery.SolverResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := p.s.Request
	if err := fn(&req); err != nil {
		return recovery.SolverResult{}, err
	}
	if err := req.Validate(); err != nil {
		return recovery.SolverResult{}, err
	}
	return p.apply(req), nil
}

// SetField changes one scenario field from its JSON value and re-solves.
func (p *Plant) SetField(name string, value []byte) error {
	if !IsField(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return ErrMissingValue
	}
	doc, err := json.Marshal(map[string]json.RawMessage{name: json.RawMessage(value)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	_, err = p.UpdateScenario(func(req *recovery.SolverRequest) error {
		if err := json.Unmarshal(doc, req); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
		return nil
	})
	return err
}

func (p *Plant) Standard(req recovery.StandardRequest) (recovery.StandardResult, error) {
	if err := req.Validate(); err != nil {
		return recovery.StandardResult{}, err
	}
	res := recovery.StandardCOP(req)
	p.log.WithFields(log.Fields{
		"source": res.InputEcho.Source,
		"target": res.InputEcho.Target,
		"cop":    res.SimulationResult.COP,
	}).Debug("standard cop")
	return res, nil
}

func (p *Plant) SourcePotential(b recovery.BoilerSpec) (recovery.SourcePotential, error) {
	if err := b.Validate(); err != nil {
		return recovery.SourcePotential{}, err
	}
	return recovery.EstimateSourcePotential(b), nil
}

// Economics prices a heat-pump project. Like Standard it leaves the scenario
// alone.
func (p *Plant) Economics(req recovery.EconomicsRequest) (recovery.EconomicsResult, error) {
	if err := req.Validate(); err != nil {
		return recovery.EconomicsResult{}, err
	}
	res := recovery.Economics(req)
	p.log.WithFields(log.Fields{
		"topology":      res.Topology,
		"recovered_kw":  res.RecoveredKW,
		"annual_saving": res.AnnualSaving,
		"payback_years": res.PaybackYears,
	}).Debug("economics")
	return res, nil
}

func (p *Plant) Dispatch(req recovery.DispatchRequest) (recovery.DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return recovery.DispatchResult{}, err
	}
	return recovery.HybridDispatch(req), nil
}

// apply solves req and stores it as the scenario. Callers hold p.mu, except
// New.
func (p *Plant) apply(req recovery.SolverRequest) recovery.SolverResult {
	res := p.solve(req, nil)
	p.s.Request = req
	p.s.Result = res
	p.s.Solves++
	p.s.UpdatedAt = p.now()
	return res
}

func (p *Plant) solve(req recovery.SolverRequest, tr recovery.Tracer) recovery.SolverResult {
	res := p.solver.SolveTraced(req, p.tracer(tr))

	fields := log.Fields{
		"status":      res.Status,
		"iterations":  res.Iterations,
		"final_cop":   res.FinalCOP,
		"source_out":  res.RequiredSourceOut,
		"target_load": res.TargetLoadKW,
		"actual_load": res.ActualLoadKW,
	}
	if res.IsSourceLimited {
		p.log.WithFields(fields).Warn("source limited")
	} else {
		p.log.WithFields(fields).Info("solved")
	}

	if p.obs != nil {
		p.obs.ObserveSolve(res)
	}
	return res
}

func (p *Plant) tracer(tr recovery.Tracer) recovery.Tracer {
	if !p.log.Logger.IsLevelEnabled(log.DebugLevel) {
		return tr
	}
	return recovery.TraceFunc(func(e recovery.TraceEvent) {
		p.log.WithFields(log.Fields{
			"phase":      e.Phase,
			"iteration":  e.Iteration,
			"source_out": e.SourceOut,
			"cop":        e.COP,
			"diff_kw":    e.DiffKW,
		}).Debug("solver trace")
		if tr != nil {
			tr.Trace(e)
		}
	})
}
