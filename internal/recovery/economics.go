package recovery

import (
	"fmt"
	"math"
)

const (
	// Flue gas below this inlet temperature is not worth recovering.
	minRecoveryFlueTemp = 70.0

	// kW per ton of steam per hour.
	kWPerSteamTon = 700.0

	defaultElecPEF = 2.5
	// Primary energy factor of fuel burnt to drive an absorption unit.
	fuelPEF = 1.05

	// Payback reported when a project never pays back, years.
	noPayback = 99.0

	dispatchMinCOP    = 2.0
	dispatchBoilerEff = 0.9
)

// Dispatch strategies.
const (
	HeatPumpFirst = "HEAT_PUMP_FIRST"
	BoilerFirst   = "BOILER_FIRST"
)

// Topology is how the heat pump sits next to the boiler.
type Topology int

const (
	TopologyUnknown Topology = iota
	// TopologyParallel: an air-source unit carries the load instead of the boiler.
	TopologyParallel
	// TopologyCoupled: a unit on a waste-water source carries the load.
	TopologyCoupled
	// TopologyRecovery: the unit recovers the boiler's own flue gas.
	TopologyRecovery
)

func (t Topology) Valid() bool {
	return t >= TopologyParallel && t <= TopologyRecovery
}

func (t Topology) String() string {
	switch t {
	case TopologyParallel:
		return "PARALLEL"
	case TopologyCoupled:
		return "COUPLED"
	case TopologyRecovery:
		return "RECOVERY"
	default:
		return "UNKNOWN"
	}
}

func ParseTopology(s string) (Topology, error) {
	switch s {
	case "PARALLEL":
		return TopologyParallel, nil
	case "COUPLED":
		return TopologyCoupled, nil
	case "RECOVERY":
		return TopologyRecovery, nil
	default:
		return TopologyUnknown, fmt.Errorf("invalid topology: %q", s)
	}
}

func (t Topology) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return []byte{}, nil
	}
	return []byte(t.String()), nil
}

func (t *Topology) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = TopologyUnknown
		return nil
	}
	v, err := ParseTopology(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// EconomicsRequest describes a boiler house and a heat-pump project for it.
// Prices are per kWh of electricity and per unit of fuel; capex is per kW
// of heat-pump capacity.
type EconomicsRequest struct {
	Topology     Topology     `json:"topology"`
	Mode         Mode         `json:"mode"`
	Strategy     Strategy     `json:"strategy"`
	RecoveryType RecoveryType `json:"recovery_type"`
	Fuel         FuelKind     `json:"fuel_type"`

	LoadKW  float64 `json:"load_kw"`
	LoadIn  float64 `json:"load_in_temp"`
	LoadOut float64 `json:"load_out_temp"`
	// TargetTemp is the delivery temperature. In steam mode a positive
	// TargetPressureMPa replaces it with the saturation temperature.
	TargetTemp        float64 `json:"target_temp"`
	TargetPressureMPa float64 `json:"target_pressure_mpa,omitempty"`
	AltitudeM         float64 `json:"altitude_m,omitempty"`

	// SourceTemp is the heat source of the standalone topologies.
	SourceTemp float64 `json:"source_temp"`
	FlueIn     float64 `json:"flue_in_temp"`
	FlueOut    float64 `json:"flue_out_temp"`
	ExcessAir  float64 `json:"excess_air"`

	BoilerEfficiency float64 `json:"boiler_efficiency"`
	Efficiency       float64 `json:"efficiency"` // fraction of Carnot

	ElecPrice   float64 `json:"elec_price"`
	FuelPrice   float64 `json:"fuel_price"`
	AnnualHours float64 `json:"annual_hours"`
	CapexHP     float64 `json:"capex_hp"`
	CapexBase   float64 `json:"capex_base"`
	ElecPEF     float64 `json:"elec_pef,omitempty"`
}

func DefaultEconomicsRequest() EconomicsRequest {
	return EconomicsRequest{
		Topology:         TopologyRecovery,
		Mode:             ModeWater,
		Strategy:         StrategyPreheat,
		RecoveryType:     RecoveryMVR,
		Fuel:             FuelNaturalGas,
		LoadKW:           2000,
		LoadIn:           50,
		LoadOut:          70,
		TargetTemp:       70,
		SourceTemp:       35,
		FlueIn:           130,
		FlueOut:          40,
		ExcessAir:        defaultExcessAir,
		BoilerEfficiency: 0.92,
		Efficiency:       0.45,
		ElecPrice:        0.7,
		FuelPrice:        4.0,
		AnnualHours:      6000,
		CapexHP:          2500,
		CapexBase:        200,
		ElecPEF:          defaultElecPEF,
	}
}

func (r EconomicsRequest) Validate() error {
	if !r.Topology.Valid() {
		return ErrInvalidTopology
	}
	if !r.Mode.Valid() {
		return ErrInvalidMode
	}
	if !r.Strategy.Valid() {
		return ErrInvalidStrategy
	}
	if r.LoadKW <= 0 {
		return ErrInvalidLoad
	}
	if r.BoilerEfficiency <= 0 || r.BoilerEfficiency > 1 || r.Efficiency <= 0 || r.Efficiency > 1 {
		return ErrInvalidEfficiency
	}
	if r.ElecPrice < 0 || r.FuelPrice < 0 || r.AnnualHours < 0 || r.CapexHP < 0 || r.CapexBase < 0 || r.ElecPEF < 0 {
		return ErrInvalidPrice
	}
	if r.Topology != TopologyRecovery {
		return nil
	}

	if !r.RecoveryType.Valid() {
		return ErrInvalidRecoveryType
	}
	if r.ExcessAir != 0 && r.ExcessAir < 1 {
		return ErrInvalidExcessAir
	}
	if r.FlueOut >= r.FlueIn {
		return ErrSourceTemperatures
	}
	if r.FlueIn < minRecoveryFlueTemp {
		return ErrFlueTooCold
	}
	if r.LoadOut <= r.LoadIn {
		return ErrSinkTemperatures
	}
	return nil
}

// Baseline is the boiler running alone.
type Baseline struct {
	InputKW     float64 `json:"input_kw"`
	FuelRate    float64 `json:"fuel_rate"` // fuel units per hour
	CostPerHour float64 `json:"cost_per_hour"`
	CO2PerHour  float64 `json:"co2_kg_h"`
}

// SteamTons splits the load in tons of steam per hour.
type SteamTons struct {
	Total    float64 `json:"total"`
	HeatPump float64 `json:"heat_pump"`
	Boiler   float64 `json:"boiler"`
}

// EconomicsResult is the project outcome. A Cycle outside the envelope
// carries its Error and leaves the money fields at zero.
type EconomicsResult struct {
	Topology Topology    `json:"topology"`
	Target   float64     `json:"target_temp"`
	Cycle    CycleResult `json:"cycle"`
	Baseline Baseline    `json:"baseline"`

	Source          *SourcePotential `json:"source,omitempty"`
	RecoveredKW     float64          `json:"recovered_kw"`
	DriveKW         float64          `json:"drive_kw"`
	IsSinkLimited   bool             `json:"is_sink_limited"`
	IsSourceLimited bool             `json:"is_source_limited"`

	HourlySaving    float64   `json:"hourly_saving"`
	AnnualSaving    float64   `json:"annual_saving"`
	Investment      float64   `json:"investment"`
	PaybackYears    float64   `json:"payback_years"`
	CostPerHour     float64   `json:"cost_per_hour"`
	CO2ReductionPct float64   `json:"co2_reduction_pct"`
	PER             float64   `json:"per"`
	Tons            SteamTons `json:"tons"`
}

// Economics prices a heat-pump project against the boiler it relieves.
// The request must be valid.
func Economics(req EconomicsRequest) EconomicsResult {
	if req.ElecPEF == 0 {
		req.ElecPEF = defaultElecPEF
	}
	fuel := FuelFor(req.Fuel)
	base := baseline(req, fuel)
	res := EconomicsResult{
		Topology: req.Topology,
		Target:   economicsTarget(req),
		Baseline: base,
	}
	if req.Topology == TopologyRecovery {
		recoveryEconomics(req, fuel, &res)
	} else {
		standardEconomics(req, &res)
	}
	return res
}

func economicsTarget(req EconomicsRequest) float64 {
	if req.Mode == ModeSteam && req.TargetPressureMPa > 0 {
		return SaturationTemperature(req.TargetPressureMPa, AtmosphericPressure(req.AltitudeM))
	}
	return req.TargetTemp
}

// fuelUnits converts heat input in kW to fuel units per hour.
func fuelUnits(kw float64, fuel FuelProperties) float64 {
	if fuel.CalorificValue <= 0 {
		return 0
	}
	return kw * 3.6 / fuel.CalorificValue
}

func baseline(req EconomicsRequest, fuel FuelProperties) Baseline {
	input := req.LoadKW / req.BoilerEfficiency
	rate := fuelUnits(input, fuel)
	return Baseline{
		InputKW:     input,
		FuelRate:    rate,
		CostPerHour: rate * req.FuelPrice,
		CO2PerHour:  rate * fuel.CO2Factor,
	}
}

func recoveryEconomics(req EconomicsRequest, fuel FuelProperties, res *EconomicsResult) {
	src := EstimateSourcePotential(BoilerSpec{
		Fuel:       req.Fuel,
		LoadKW:     req.LoadKW,
		Efficiency: req.BoilerEfficiency,
		FlueIn:     req.FlueIn,
		FlueOut:    req.FlueOut,
		ExcessAir:  req.ExcessAir,
	})
	res.Source = &src

	res.Cycle = ComputeCOP(CycleInputs{
		EvapTemp:     req.FlueOut - approach,
		CondTemp:     res.Target + approach,
		Efficiency:   req.Efficiency,
		Mode:         req.Mode,
		Strategy:     req.Strategy,
		RecoveryType: req.RecoveryType,
	})
	if !res.Cycle.InEnvelope() {
		return
	}
	cop := res.Cycle.COP

	sinkLimit := req.LoadKW
	if req.Mode == ModeSteam && req.Strategy == StrategyPreheat {
		// Preheat can only warm the boiler's feed water.
		hIn := Enthalpy(req.LoadIn, false)
		feed := req.LoadKW / (Enthalpy(res.Target, true) - hIn)
		sinkLimit = feed * (Enthalpy(req.LoadOut, false) - hIn)
	}
	fromSource := maxLoad(src.TotalKW, cop)

	recovered := math.Min(fromSource, sinkLimit)
	drive := recovered / cop
	res.RecoveredKW = recovered
	res.DriveKW = drive
	res.IsSinkLimited = recovered >= sinkLimit-0.1
	res.IsSourceLimited = recovered >= fromSource-0.1

	replacedFuel := fuelUnits(recovered/req.BoilerEfficiency, fuel)
	saved := replacedFuel * req.FuelPrice

	var driveCost, driveCO2, drivePrimary float64
	if req.RecoveryType == RecoveryMVR {
		elec := fuelTable[FuelElectricity]
		driveCost = drive * req.ElecPrice
		driveCO2 = drive * elec.CO2Factor
		drivePrimary = drive * req.ElecPEF
	} else {
		driveInput := drive / req.BoilerEfficiency
		driveFuel := fuelUnits(driveInput, fuel)
		driveCost = driveFuel * req.FuelPrice
		driveCO2 = driveFuel * fuel.CO2Factor
		drivePrimary = driveInput * fuelPEF
	}

	res.HourlySaving = saved - driveCost
	res.AnnualSaving = res.HourlySaving * req.AnnualHours
	res.Investment = recovered * req.CapexHP
	res.PaybackYears = payback(res.Investment, res.AnnualSaving)
	res.CostPerHour = res.Baseline.CostPerHour - res.HourlySaving

	current := res.Baseline.CO2PerHour - replacedFuel*fuel.CO2Factor + driveCO2
	res.CO2ReductionPct = reduction(res.Baseline.CO2PerHour, current)
	if drivePrimary > 0 {
		res.PER = recovered / drivePrimary
	}
	res.Tons = SteamTons{
		Total:    req.LoadKW / kWPerSteamTon,
		HeatPump: recovered / kWPerSteamTon,
		Boiler:   (req.LoadKW - recovered) / kWPerSteamTon,
	}
}

// standardEconomics replaces the boiler with an electric unit carrying the
// whole load from SourceTemp.
func standardEconomics(req EconomicsRequest, res *EconomicsResult) {
	res.Cycle = ComputeCOP(CycleInputs{
		EvapTemp:     req.SourceTemp - approach,
		CondTemp:     res.Target + approach,
		Efficiency:   req.Efficiency,
		Mode:         req.Mode,
		Strategy:     req.Strategy,
		RecoveryType: RecoveryMVR,
	})
	if !res.Cycle.InEnvelope() {
		return
	}

	power := req.LoadKW / res.Cycle.COP
	hpCost := power * req.ElecPrice
	hpCO2 := power * fuelTable[FuelElectricity].CO2Factor

	res.RecoveredKW = req.LoadKW
	res.DriveKW = power
	res.HourlySaving = res.Baseline.CostPerHour - hpCost
	res.AnnualSaving = res.HourlySaving * req.AnnualHours
	res.Investment = req.LoadKW * (req.CapexHP - req.CapexBase)
	res.PaybackYears = payback(res.Investment, res.AnnualSaving)
	res.CostPerHour = hpCost
	res.CO2ReductionPct = reduction(res.Baseline.CO2PerHour, hpCO2)
	if p := power * req.ElecPEF; p > 0 {
		res.PER = req.LoadKW / p
	}
	res.Tons = SteamTons{
		Total:    req.LoadKW / kWPerSteamTon,
		HeatPump: req.LoadKW / kWPerSteamTon,
	}
}

func payback(invest, annual float64) float64 {
	if annual <= 0 {
		return noPayback
	}
	return invest / annual
}

func reduction(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (before - after) / before * 100
}

// DispatchRequest compares running a heat pump against a gas boiler for the
// same load. GasPrice is per m³ of natural gas.
type DispatchRequest struct {
	LoadKW    float64 `json:"load_kw"`
	COP       float64 `json:"cop"`
	ElecPrice float64 `json:"elec_price"`
	GasPrice  float64 `json:"gas_price"`
}

func (r DispatchRequest) Validate() error {
	if r.LoadKW <= 0 {
		return ErrInvalidLoad
	}
	if r.COP <= 0 {
		return ErrInvalidCOP
	}
	if r.ElecPrice < 0 || r.GasPrice < 0 {
		return ErrInvalidPrice
	}
	return nil
}

type DispatchResult struct {
	Strategy      string  `json:"strategy"`
	CostPerHour   float64 `json:"cost_per_hour"`
	HeatPumpRatio float64 `json:"heat_pump_ratio"` // percent of the load
	PowerKW       float64 `json:"power_kw"`
	HeatPumpCost  float64 `json:"heat_pump_cost"`
	BoilerCost    float64 `json:"boiler_cost"`
}

// HybridDispatch picks the cheaper of heat pump and boiler. A heat pump
// below COP 2 never runs first.
func HybridDispatch(req DispatchRequest) DispatchResult {
	power := req.LoadKW / req.COP
	hpCost := power * req.ElecPrice

	gasKWh := fuelTable[FuelNaturalGas].CalorificValue / 3.6
	boilerCost := req.LoadKW / (gasKWh * dispatchBoilerEff) * req.GasPrice

	res := DispatchResult{HeatPumpCost: hpCost, BoilerCost: boilerCost}
	if req.COP < dispatchMinCOP || hpCost > boilerCost {
		res.Strategy = BoilerFirst
		res.CostPerHour = boilerCost
		return res
	}
	res.Strategy = HeatPumpFirst
	res.CostPerHour = hpCost
	res.HeatPumpRatio = 100
	res.PowerKW = power
	return res
}
