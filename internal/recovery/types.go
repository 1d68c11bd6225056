package recovery

import "fmt"

// Mode is the sink duty: hot water or steam.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeWater
	ModeSteam
)

func (m Mode) Valid() bool {
	return m == ModeWater || m == ModeSteam
}

func (m Mode) String() string {
	switch m {
	case ModeWater:
		return "WATER"
	case ModeSteam:
		return "STEAM"
	default:
		return "UNKNOWN"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "WATER":
		return ModeWater, nil
	case "STEAM":
		return ModeSteam, nil
	default:
		return ModeUnknown, fmt.Errorf("invalid mode: %q", s)
	}
}

// MarshalText encodes an unset or invalid value as "", which decodes back
// to ModeUnknown.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return []byte{}, nil
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = ModeUnknown
		return nil
	}
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Strategy selects how steam duty is served: feed-water preheat or direct generation.
type Strategy int

const (
	StrategyUnknown Strategy = iota
	StrategyPreheat
	StrategyGenerate
)

func (s Strategy) Valid() bool {
	return s == StrategyPreheat || s == StrategyGenerate
}

func (s Strategy) String() string {
	switch s {
	case StrategyPreheat:
		return "STRATEGY_PRE"
	case StrategyGenerate:
		return "STRATEGY_GEN"
	default:
		return "UNKNOWN"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "STRATEGY_PRE":
		return StrategyPreheat, nil
	case "STRATEGY_GEN":
		return StrategyGenerate, nil
	default:
		return StrategyUnknown, fmt.Errorf("invalid strategy: %q", s)
	}
}

// MarshalText encodes an unset or invalid value as "", which decodes back
// to StrategyUnknown.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = StrategyUnknown
		return nil
	}
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// RecoveryType is the heat-pump technology.
type RecoveryType int

const (
	RecoveryUnknown RecoveryType = iota
	RecoveryMVR
	RecoveryAbsorption
)

func (r RecoveryType) Valid() bool {
	return r == RecoveryMVR || r == RecoveryAbsorption
}

func (r RecoveryType) String() string {
	switch r {
	case RecoveryMVR:
		return "MVR"
	case RecoveryAbsorption:
		return "ABSORPTION_HP"
	default:
		return "UNKNOWN"
	}
}

// ParseRecoveryType also accepts ELECTRIC_HP, the front-end name of the compressor cycle.
func ParseRecoveryType(s string) (RecoveryType, error) {
	switch s {
	case "MVR", "ELECTRIC_HP":
		return RecoveryMVR, nil
	case "ABSORPTION_HP":
		return RecoveryAbsorption, nil
	default:
		return RecoveryUnknown, fmt.Errorf("invalid recovery type: %q", s)
	}
}

// MarshalText encodes an unset or invalid value as "", which decodes back
// to RecoveryUnknown.
func (r RecoveryType) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

func (r *RecoveryType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RecoveryUnknown
		return nil
	}
	v, err := ParseRecoveryType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// FuelKind identifies a row of the fuel table.
type FuelKind int

const (
	FuelUnknown FuelKind = iota
	FuelNaturalGas
	FuelCoal
	FuelDiesel
	FuelElectricity
)

func (f FuelKind) Valid() bool {
	return f == FuelNaturalGas || f == FuelCoal || f == FuelDiesel || f == FuelElectricity
}

func (f FuelKind) String() string {
	switch f {
	case FuelNaturalGas:
		return "NATURAL_GAS"
	case FuelCoal:
		return "COAL"
	case FuelDiesel:
		return "DIESEL"
	case FuelElectricity:
		return "ELECTRICITY"
	default:
		return "UNKNOWN"
	}
}

func ParseFuelKind(s string) (FuelKind, error) {
	switch s {
	case "NATURAL_GAS":
		return FuelNaturalGas, nil
	case "COAL":
		return FuelCoal, nil
	case "DIESEL":
		return FuelDiesel, nil
	case "ELECTRICITY":
		return FuelElectricity, nil
	default:
		return FuelUnknown, fmt.Errorf("invalid fuel kind: %q", s)
	}
}

func (f FuelKind) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return []byte{}, nil
	}
	return []byte(f.String()), nil
}

// UnmarshalText never fails: an unrecognised fuel decodes to FuelUnknown and
// is served by the natural-gas row (see FuelFor).
func (f *FuelKind) UnmarshalText(b []byte) error {
	v, err := ParseFuelKind(string(b))
	if err != nil {
		*f = FuelUnknown
		return nil
	}
	*f = v
	return nil
}
