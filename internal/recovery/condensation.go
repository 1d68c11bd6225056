package recovery

import "math"

const (
	stpTemp     = 273.15  // K
	stpPressure = 101.325 // kPa
	rH2O        = 0.4615  // kJ/(kg·K)
)

// Condensation is the water balance of a flue-gas stream, kg/h.
type Condensation struct {
	Condensed float64 `json:"condensed_water_kg_h"`
	Initial   float64 `json:"initial_water_kg_h"`
	Final     float64 `json:"final_water_kg_h"`
}

// CondensedWater estimates the water dropped out when flue gas carrying
// h2oVolPercent water vapour is cooled to tOut. Nothing condenses at or above
// the dew point.
func CondensedWater(tOut, flowVol, h2oVolPercent, dewPoint float64) Condensation {
	if tOut >= dewPoint {
		return Condensation{}
	}

	fraction := h2oVolPercent / 100
	density := stpPressure / (rH2O * stpTemp)
	initial := flowVol * fraction * density

	pInitial := stpPressure * fraction
	pFinal := math.Min(SaturationPressure(tOut), pInitial)
	final := pFinal * pFinal * flowVol / (rH2O * stpPressure * stpTemp)

	return Condensation{
		Condensed: round(math.Max(0, initial-final), 2),
		Initial:   round(initial, 2),
		Final:     round(final, 2),
	}
}
