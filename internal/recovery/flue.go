package recovery

const (
	// Averaged flue-gas volumetric heat capacity, kWh/(m³·K).
	flueCpKWh = 0.00038
	flueCpMJ  = flueCpKWh * 3600

	// Temperature at which all recoverable latent heat is released.
	condensationFloor = 30.0
)

// FlueHeat splits the heat released by a flue-gas stream, kW.
type FlueHeat struct {
	Sensible float64
	Latent   float64
	DewPoint float64
}

func (h FlueHeat) Total() float64 {
	return h.Sensible + h.Latent
}

// condensationFactor ramps linearly from 0 at the dew point to 1 at the floor.
func condensationFactor(dewPoint, tOut float64) float64 {
	if tOut >= dewPoint || dewPoint <= condensationFloor {
		return 0
	}
	return clamp((dewPoint-tOut)/(dewPoint-condensationFloor), 0, 1)
}

// FlueHeatBreakdown computes the sensible and latent heat released when a
// flue-gas stream of flowVol m³/h cools from tIn to tOut.
func FlueHeatBreakdown(tIn, tOut, flowVol float64, fuel FuelKind, excessAir float64) FlueHeat {
	props := FuelFor(fuel)
	dp := AdjustedDewPoint(props.DewPointRef, excessAir)

	h := FlueHeat{
		Sensible: flowVol * flueCpMJ * (tIn - tOut) / 3600.0,
		DewPoint: dp,
	}
	if tOut < dp {
		potential := flowVol * props.MaxLatentPerM3 / 3600.0
		h.Latent = potential * condensationFactor(dp, tOut)
	}
	return h
}

// FlueHeatRelease is the total heat released, kW.
func FlueHeatRelease(tIn, tOut, flowVol float64, fuel FuelKind, excessAir float64) float64 {
	return FlueHeatBreakdown(tIn, tOut, flowVol, fuel, excessAir).Total()
}

// BoilerSpec describes a boiler whose flue gas is the recovery source.
type BoilerSpec struct {
	Fuel       FuelKind `json:"fuel_type" yaml:"fuel_type"`
	LoadKW     float64  `json:"load_kw" yaml:"load_kw"`
	Efficiency float64  `json:"efficiency" yaml:"efficiency"`
	FlueIn     float64  `json:"flue_in_temp" yaml:"flue_in_temp"`
	FlueOut    float64  `json:"flue_out_temp" yaml:"flue_out_temp"`
	ExcessAir  float64  `json:"excess_air" yaml:"excess_air"`
}

func DefaultBoilerSpec() BoilerSpec {
	return BoilerSpec{
		Fuel:       FuelNaturalGas,
		Efficiency: 0.92,
		ExcessAir:  defaultExcessAir,
	}
}

func (b BoilerSpec) Validate() error {
	if b.LoadKW <= 0 {
		return ErrInvalidBoilerLoad
	}
	if b.Efficiency <= 0 || b.Efficiency > 1 {
		return ErrInvalidEfficiency
	}
	if b.ExcessAir != 0 && b.ExcessAir < 1 {
		return ErrInvalidExcessAir
	}
	if b.FlueOut >= b.FlueIn {
		return ErrSourceTemperatures
	}
	return nil
}

// SourcePotential is the theoretical flue-gas heat of a boiler. FuelRate is
// in fuel units per hour and FlowVol in m³/h.
type SourcePotential struct {
	InputKW    float64 `json:"input_kw"`
	FuelRate   float64 `json:"fuel_rate"`
	FlowVol    float64 `json:"flow_vol"`
	DewPoint   float64 `json:"dew_point"`
	SensibleKW float64 `json:"sensible_kw"`
	LatentKW   float64 `json:"latent_kw"`
	TotalKW    float64 `json:"total_kw"`
	CO2KgPerH  float64 `json:"co2_kg_h"`
}

// EstimateSourcePotential derives the flue-gas stream of a boiler from its
// load and fuel, then the heat recoverable between FlueIn and FlueOut. Latent
// heat is bounded by the fuel's maximum latent ratio of the boiler input.
func EstimateSourcePotential(b BoilerSpec) SourcePotential {
	props := FuelFor(b.Fuel)
	inputKW := b.LoadKW / b.Efficiency

	var fuelRate float64
	if props.CalorificValue > 0 {
		fuelRate = inputKW * 3.6 / props.CalorificValue
	}
	flow := fuelRate * ActualFlueVolume(props.TheoreticalGas, props.TheoreticalAirNeed, b.ExcessAir)
	dp := AdjustedDewPoint(props.DewPointRef, b.ExcessAir)

	sensible := flow * flueCpKWh * (b.FlueIn - b.FlueOut)
	var latent float64
	if b.FlueOut < dp {
		latent = inputKW * props.MaxLatentRatio * condensationFactor(dp, b.FlueOut)
	}

	return SourcePotential{
		InputKW:    round(inputKW, 1),
		FuelRate:   round(fuelRate, 2),
		FlowVol:    round(flow, 1),
		DewPoint:   dp,
		SensibleKW: round(sensible, 1),
		LatentKW:   round(latent, 1),
		TotalKW:    round(sensible+latent, 1),
		CO2KgPerH:  round(fuelRate*props.CO2Factor, 1),
	}
}
