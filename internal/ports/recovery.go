package ports

import (
	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

// RecoveryService is the control-plane port used by controllers (HTTP/MQTT/Modbus).
type RecoveryService interface {
	Get() plant.Snapshot
	Solve(recovery.SolverRequest) (recovery.SolverResult, error)
	SolveTraced(recovery.SolverRequest, recovery.Tracer) (recovery.SolverResult, error)
	UpdateScenario(func(*recovery.SolverRequest) error) (recovery.SolverResult, error)
	SetField(name string, value []byte) error
	Standard(recovery.StandardRequest) (recovery.StandardResult, error)
	SourcePotential(recovery.BoilerSpec) (recovery.SourcePotential, error)
	Economics(recovery.EconomicsRequest) (recovery.EconomicsResult, error)
	Dispatch(recovery.DispatchRequest) (recovery.DispatchResult, error)
}
