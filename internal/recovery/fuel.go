package recovery

// FuelProperties holds the combustion constants of one fuel. Volumes are per
// unit of fuel (m³ for gas, kg for coal, L for diesel).
type FuelProperties struct {
	Name               string
	CalorificValue     float64 // MJ/unit
	CO2Factor          float64 // kg/unit
	TheoreticalAirNeed float64 // m³ air per unit at α = 1
	TheoreticalGas     float64 // m³ flue gas per unit at α = 1
	DewPointRef        float64 // °C, adiabatic dew point at α = 1
	MaxLatentRatio     float64 // fraction of fuel input recoverable as latent heat
	MaxLatentPerM3     float64 // kJ per m³ of flue gas at full condensation
}

var fuelTable = map[FuelKind]FuelProperties{
	FuelNaturalGas: {
		Name:               "Natural Gas",
		CalorificValue:     36.0,
		CO2Factor:          2.18,
		TheoreticalAirNeed: 9.5,
		TheoreticalGas:     10.5,
		DewPointRef:        58.0,
		MaxLatentRatio:     0.11,
		MaxLatentPerM3:     160.0,
	},
	FuelCoal: {
		Name:               "Coal",
		CalorificValue:     29.3,
		CO2Factor:          2.6,
		TheoreticalAirNeed: 8.5,
		TheoreticalGas:     9.0,
		DewPointRef:        45.0,
	},
	FuelDiesel: {
		Name:               "Diesel",
		CalorificValue:     42.0,
		CO2Factor:          3.1,
		TheoreticalAirNeed: 11.0,
		TheoreticalGas:     12.0,
		DewPointRef:        48.0,
		MaxLatentRatio:     0.06,
	},
	FuelElectricity: {
		Name:           "Electricity",
		CalorificValue: 3.6,
		CO2Factor:      0.58,
	},
}

// LookupFuel returns the table row for kind and whether it exists.
func LookupFuel(kind FuelKind) (FuelProperties, bool) {
	p, ok := fuelTable[kind]
	return p, ok
}

// FuelFor returns the row for kind, or the natural-gas row on a miss.
func FuelFor(kind FuelKind) FuelProperties {
	if p, ok := LookupFuel(kind); ok {
		return p
	}
	return fuelTable[FuelNaturalGas]
}

// Fixed flue-gas water vapour fractions (vol %) for fuels without a
// stoichiometric estimate.
const (
	coalH2OPercent    = 8.0
	dieselH2OPercent  = 11.0
	defaultH2OPercent = 10.0
)

// FlueH2OPercent estimates the water vapour volume fraction of the flue gas.
// Natural gas follows CH4 + 2 O2 -> CO2 + 2 H2O spread over the actual flue
// volume at the given excess-air ratio.
func FlueH2OPercent(kind FuelKind, excessAir float64) float64 {
	switch kind {
	case FuelElectricity:
		return 0
	case FuelNaturalGas:
		ng := fuelTable[FuelNaturalGas]
		vol := ActualFlueVolume(ng.TheoreticalGas, ng.TheoreticalAirNeed, excessAir)
		if vol <= 0 {
			return 0
		}
		return 2.0 / vol * 100
	case FuelCoal:
		return coalH2OPercent
	case FuelDiesel:
		return dieselH2OPercent
	default:
		return defaultH2OPercent
	}
}
