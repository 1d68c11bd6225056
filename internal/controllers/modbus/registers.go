package modbusctrl

import (
	"errors"
	"math"

	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

// Register scales. Temperatures are signed hundredths of a degree.
const (
	TemperatureScale = 100
	RatioScale       = 100
)

var errBadCode = errors.New("modbus: invalid enum code")

// holdingRegister maps one holding register onto a scenario field.
type holdingRegister struct {
	field string
	read  func(recovery.SolverRequest) uint16
	// value converts a raw register into the field's JSON value.
	value func(uint16) (any, error)
}

// Holding registers 0..12, read/write.
var holdingRegisters = []holdingRegister{
	{"sink_in_temp", func(r recovery.SolverRequest) uint16 { return encodeTemp(r.SinkInTemp) }, tempValue},
	{"sink_out_target", func(r recovery.SolverRequest) uint16 { return encodeTemp(r.SinkOutTarget) }, tempValue},
	{"sink_flow_kg_h", func(r recovery.SolverRequest) uint16 { return encodeUnsigned(r.SinkFlowKgH) }, unsignedValue},
	{"source_in_temp", func(r recovery.SolverRequest) uint16 { return encodeTemp(r.SourceInTemp) }, tempValue},
	{"target_source_out", func(r recovery.SolverRequest) uint16 { return encodeTemp(r.TargetSourceOut) }, tempValue},
	{"source_flow_vol", func(r recovery.SolverRequest) uint16 { return encodeUnsigned(r.SourceFlowVol) }, unsignedValue},
	{"efficiency", func(r recovery.SolverRequest) uint16 { return encodeRatio(r.Efficiency) }, ratioValue},
	{"excess_air", func(r recovery.SolverRequest) uint16 { return encodeRatio(r.ExcessAir) }, ratioValue},
	{"manual_cop", func(r recovery.SolverRequest) uint16 { return encodeRatio(r.ManualCOP) }, ratioValue},
	{"mode", func(r recovery.SolverRequest) uint16 { return uint16(r.Mode) }, func(u uint16) (any, error) {
		m := recovery.Mode(u)
		if !m.Valid() {
			return nil, errBadCode
		}
		return m, nil
	}},
	{"strategy", func(r recovery.SolverRequest) uint16 { return uint16(r.Strategy) }, func(u uint16) (any, error) {
		s := recovery.Strategy(u)
		if !s.Valid() {
			return nil, errBadCode
		}
		return s, nil
	}},
	{"recovery_type", func(r recovery.SolverRequest) uint16 { return uint16(r.RecoveryType) }, func(u uint16) (any, error) {
		t := recovery.RecoveryType(u)
		if !t.Valid() {
			return nil, errBadCode
		}
		return t, nil
	}},
	{"fuel_type", func(r recovery.SolverRequest) uint16 { return uint16(r.Fuel) }, func(u uint16) (any, error) {
		f := recovery.FuelKind(u)
		if !f.Valid() {
			return nil, errBadCode
		}
		return f, nil
	}},
}

// Input registers 0..11 expose the last operating point.
const inputRegisterCount = 12

func inputRegisters(s plant.Snapshot) []uint16 {
	r := s.Result
	status := uint16(0)
	if r.Status == recovery.StatusFallback {
		status = 1
	}
	limited := uint16(0)
	if r.IsSourceLimited {
		limited = 1
	}
	condensed := 0.0
	if r.Condensation != nil {
		condensed = r.Condensation.Condensed
	}
	return []uint16{
		status,
		encodeUnsigned(float64(r.Iterations)),
		encodeUnsigned(r.TargetLoadKW),
		encodeUnsigned(r.ActualLoadKW),
		encodeUnsigned(r.MaxLoadKW),
		encodeTemp(r.RequiredSourceOut),
		encodeTemp(r.ActualSourceOut),
		encodeTemp(r.ActualSinkOut),
		encodeRatio(r.FinalCOP),
		encodeUnsigned(r.SourceTotalKW),
		limited,
		encodeUnsigned(condensed),
	}
}

func tempValue(u uint16) (any, error)     { return decodeTemp(u), nil }
func unsignedValue(u uint16) (any, error) { return float64(u), nil }
func ratioValue(u uint16) (any, error)    { return decodeRatio(u), nil }

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*TemperatureScale)), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	return float64(int16(u)) / TemperatureScale
}

func encodeUnsigned(v float64) uint16 {
	return uint16(min(max(int(math.Round(v)), 0), math.MaxUint16))
}

func encodeRatio(v float64) uint16 {
	return encodeUnsigned(v * RatioScale)
}

func decodeRatio(u uint16) float64 {
	return float64(u) / RatioScale
}
