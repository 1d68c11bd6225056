package testutil

import (
	"sync"

	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

// FakeRecoveryService is a reusable fake implementing ports.RecoveryService.
// Put ONLY what multiple test packages need here.
type FakeRecoveryService struct {
	mu sync.Mutex
	S  plant.Snapshot

	SolveCalled bool
	SolveArg    recovery.SolverRequest
	SolveResult recovery.SolverResult
	SolveErr    error
	// Trace is replayed to the tracer passed to SolveTraced.
	Trace []recovery.TraceEvent

	// UpdateScenarioArg is the scenario after the update function ran.
	UpdateScenarioCalled bool
	UpdateScenarioArg    recovery.SolverRequest
	UpdateScenarioErr    error

	SetFieldCalled bool
	SetFieldName   string
	SetFieldValue  []byte
	SetFieldErr    error

	StandardCalled bool
	StandardArg    recovery.StandardRequest
	StandardResult recovery.StandardResult
	StandardErr    error

	SourcePotentialCalled bool
	SourcePotentialArg    recovery.BoilerSpec
	SourcePotentialResult recovery.SourcePotential
	SourcePotentialErr    error

	EconomicsCalled bool
	EconomicsArg    recovery.EconomicsRequest
	EconomicsResult recovery.EconomicsResult
	EconomicsErr    error

	DispatchArg    recovery.DispatchRequest
	DispatchResult recovery.DispatchResult
	DispatchErr    error
}

func NewFakeRecoveryService() *FakeRecoveryService {
	return &FakeRecoveryService{
		S: plant.Snapshot{
			DeviceID: "fake",
			Request:  recovery.DefaultSolverRequest(),
			Result: recovery.SolverResult{
				Status:            recovery.StatusConverged,
				Iterations:        8,
				TargetLoadKW:      4070.7,
				ActualLoadKW:      4070.7,
				MaxLoadKW:         4070.7,
				RequiredSourceOut: 42.15,
				ActualSourceOut:   42.15,
				ActualSinkOut:     90,
				FinalCOP:          1.7,
				SourceTotalKW:     1676.6,
			},
			Solves: 1,
		},
	}
}

func (f *FakeRecoveryService) Get() plant.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.S
}

func (f *FakeRecoveryService) Solve(req recovery.SolverRequest) (recovery.SolverResult, error) {
	return f.SolveTraced(req, nil)
}

func (f *FakeRecoveryService) SolveTraced(req recovery.SolverRequest, tr recovery.Tracer) (recovery.SolverResult, error) {
	f.mu.Lock()
	f.SolveCalled = true
	f.SolveArg = req
	res, err, trace := f.SolveResult, f.SolveErr, f.Trace
	f.mu.Unlock()

	if err != nil {
		return recovery.SolverResult{}, err
	}
	if tr != nil {
		for _, e := range trace {
			tr.Trace(e)
		}
	}
	return res, nil
}

func (f *FakeRecoveryService) UpdateScenario(fn func(*recovery.SolverRequest) error) (recovery.SolverResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateScenarioCalled = true
	req := f.S.Request
	if err := fn(&req); err != nil {
		return recovery.SolverResult{}, err
	}
	f.UpdateScenarioArg = req
	if f.UpdateScenarioErr != nil {
		return recovery.SolverResult{}, f.UpdateScenarioErr
	}
	f.S.Request = req
	f.S.Solves++
	return f.S.Result, nil
}

func (f *FakeRecoveryService) SetField(name string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetFieldCalled = true
	f.SetFieldName = name
	f.SetFieldValue = append([]byte(nil), value...)
	if f.SetFieldErr != nil {
		return f.SetFieldErr
	}
	f.S.Solves++
	return nil
}

func (f *FakeRecoveryService) Standard(req recovery.StandardRequest) (recovery.StandardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StandardCalled = true
	f.StandardArg = req
	if f.StandardErr != nil {
		return recovery.StandardResult{}, f.StandardErr
	}
	return f.StandardResult, nil
}

func (f *FakeRecoveryService) SourcePotential(b recovery.BoilerSpec) (recovery.SourcePotential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SourcePotentialCalled = true
	f.SourcePotentialArg = b
	if f.SourcePotentialErr != nil {
		return recovery.SourcePotential{}, f.SourcePotentialErr
	}
	return f.SourcePotentialResult, nil
}

func (f *FakeRecoveryService) Economics(req recovery.EconomicsRequest) (recovery.EconomicsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EconomicsCalled = true
	f.EconomicsArg = req
	if f.EconomicsErr != nil {
		return recovery.EconomicsResult{}, f.EconomicsErr
	}
	return f.EconomicsResult, nil
}

func (f *FakeRecoveryService) Dispatch(req recovery.DispatchRequest) (recovery.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DispatchArg = req
	if f.DispatchErr != nil {
		return recovery.DispatchResult{}, f.DispatchErr
	}
	return f.DispatchResult, nil
}

// LastSolve reports the last request given to Solve or SolveTraced. Safe to
// call while a controller goroutine is using the fake.
func (f *FakeRecoveryService) LastSolve() (recovery.SolverRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SolveArg, f.SolveCalled
}

func (f *FakeRecoveryService) LastSetField() (string, []byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SetFieldName, f.SetFieldValue, f.SetFieldCalled
}

func (f *FakeRecoveryService) LastUpdateScenario() (recovery.SolverRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.UpdateScenarioArg, f.UpdateScenarioCalled
}

// SetSolveOutcome changes what Solve returns while a controller may be
// calling it.
func (f *FakeRecoveryService) SetSolveOutcome(res recovery.SolverResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SolveResult = res
	f.SolveErr = err
}
