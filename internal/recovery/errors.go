package recovery

import "errors"

var (
	ErrInvalidMode         = errors.New("invalid mode")
	ErrInvalidStrategy     = errors.New("invalid strategy")
	ErrInvalidRecoveryType = errors.New("invalid recovery type")
	ErrInvalidSinkFlow     = errors.New("sink mass flow must be greater than zero")
	ErrInvalidSourceFlow   = errors.New("source volumetric flow must not be negative")
	ErrInvalidEfficiency   = errors.New("cycle efficiency must be in (0, 1]")
	ErrInvalidExcessAir    = errors.New("excess air ratio must be zero (default) or at least 1")
	ErrInvalidManualCOP    = errors.New("manual COP must be greater than 1")
	ErrSinkTemperatures    = errors.New("sink target temperature must be above sink inlet temperature")
	ErrSourceTemperatures  = errors.New("target source outlet temperature must be below source inlet temperature")
	ErrInvalidBoilerLoad   = errors.New("boiler load must be greater than zero")
	ErrInvalidTolerance    = errors.New("solver tolerance must be greater than zero")
	ErrInvalidMaxIter      = errors.New("solver iteration cap must be greater than zero")
	ErrInvalidTopology     = errors.New("invalid topology")
	ErrFlueTooCold         = errors.New("flue inlet temperature below 70 °C has no recovery value")
	ErrInvalidLoad         = errors.New("heat load must be greater than zero")
	ErrInvalidPrice        = errors.New("prices, hours and unit costs must not be negative")
	ErrInvalidCOP          = errors.New("COP must be greater than zero")
)

// In-band envelope messages reported by ComputeCOP.
const (
	EnvelopeEvapTooLow   = "evaporator temperature too low"
	EnvelopeCondTooHigh  = "condenser temperature too high"
	EnvelopeLiftTooSmall = "temperature lift too small"
)
