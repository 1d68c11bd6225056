package recovery

import "math"

const (
	waterCp = 4.187 // kJ/(kg·K)

	steamEnthalpyRef = 2676.0 // kJ/kg, saturated steam at 100 °C
	steamSuperheatCp = 0.5

	dewPointDecay    = 17.0 // °C per unit of excess air above stoichiometric
	defaultExcessAir = 1.2

	// Antoine constants for water, T in °C, P in mmHg.
	antoineA = 8.07131
	antoineB = 1730.63
	antoineC = 233.426

	mmHgToKPa = 0.133322
	mpaToMmHg = 7500.62

	seaLevelPressure = 101.325 // kPa
)

// Enthalpy is a simplified specific enthalpy in kJ/kg: liquid water uses a
// constant Cp, steam is saturated steam at 100 °C plus a superheat slope.
func Enthalpy(tempC float64, steam bool) float64 {
	if !steam {
		return waterCp * tempC
	}
	return steamEnthalpyRef + steamSuperheatCp*(tempC-100)
}

func effectiveExcessAir(alpha float64) float64 {
	if alpha == 0 {
		alpha = defaultExcessAir
	}
	return math.Max(1.0, alpha)
}

// AdjustedDewPoint lowers the reference dew point as excess air dilutes the
// water vapour. An alpha of zero selects the default of 1.2.
func AdjustedDewPoint(refDewPoint, alpha float64) float64 {
	if refDewPoint <= 0 {
		return 0
	}
	adjusted := refDewPoint - dewPointDecay*(effectiveExcessAir(alpha)-1.0)
	return round(adjusted, 1)
}

// ActualFlueVolume is V_theo + (α-1)·V_air_theo, per unit of fuel.
func ActualFlueVolume(theoGas, theoAir, alpha float64) float64 {
	return theoGas + (effectiveExcessAir(alpha)-1.0)*theoAir
}

// SaturationPressure returns the water vapour saturation pressure in kPa.
func SaturationPressure(tempC float64) float64 {
	logP := antoineA - antoineB/(antoineC+tempC)
	return math.Pow(10, logP) * mmHgToKPa
}

// SaturationTemperature inverts the Antoine equation. Pressures below 0.5 MPa
// are read as gauge and the atmospheric pressure is added.
func SaturationTemperature(pressureMPa, atmosphericKPa float64) float64 {
	if pressureMPa <= 0 {
		return 100.0
	}
	abs := pressureMPa
	if pressureMPa < 0.5 {
		abs += atmosphericKPa / 1000
	}
	pMmHg := abs * mpaToMmHg
	return round(antoineB/(antoineA-math.Log10(pMmHg))-antoineC, 1)
}

// AtmosphericPressure follows the ISA troposphere model, kPa. Altitudes
// below sea level are treated as sea level.
func AtmosphericPressure(altitudeM float64) float64 {
	const (
		t0 = 288.15    // K
		l  = 0.0065    // K/m
		g  = 9.80665   // m/s²
		m  = 0.0289644 // kg/mol
		r  = 8.31447   // J/(mol·K)
	)
	if altitudeM < 0 {
		altitudeM = 0
	}
	exp := g * m / (r * l)
	return round(seaLevelPressure*math.Pow(1-l*altitudeM/t0, exp), 3)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
