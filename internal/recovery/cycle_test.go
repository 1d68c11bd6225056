package recovery

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func mvr(evap, cond, eff float64) CycleInputs {
	return CycleInputs{
		EvapTemp:     evap,
		CondTemp:     cond,
		Efficiency:   eff,
		Mode:         ModeWater,
		Strategy:     StrategyPreheat,
		RecoveryType: RecoveryMVR,
	}
}

func TestComputeCOP_Guards(t *testing.T) {
	tests := []struct {
		name    string
		in      CycleInputs
		wantCOP float64
		wantErr string
	}{
		{"evaporator too low", mvr(-31, 60, 0.55), 1.0, EnvelopeEvapTooLow},
		{"evaporator far too low", mvr(-80, 20, 0.55), 1.0, EnvelopeEvapTooLow},
		{"condenser too high", mvr(20, 161, 0.55), 1.0, EnvelopeCondTooHigh},
		{"both out: evaporator wins", mvr(-40, 170, 0.55), 1.0, EnvelopeEvapTooLow},
		{"lift exactly 10", mvr(50, 60, 0.55), 8.0, EnvelopeLiftTooSmall},
		{"negative lift", mvr(80, 60, 0.55), 8.0, EnvelopeLiftTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCOP(tt.in)
			if got.COP != tt.wantCOP {
				t.Errorf("COP = %v, want %v", got.COP, tt.wantCOP)
			}
			if got.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantErr)
			}
			if got.InEnvelope() {
				t.Errorf("InEnvelope() = true, want false")
			}
		})
	}
}

func TestComputeCOP_GuardsHoldForAllInputs(t *testing.T) {
	for evap := -100.0; evap < -30; evap += 7.5 {
		if got := ComputeCOP(mvr(evap, 90, 0.6)); got.COP != 1.0 || got.Error == "" {
			t.Fatalf("evap=%v: got %+v", evap, got)
		}
	}
	for cond := 160.5; cond < 300; cond += 11 {
		if got := ComputeCOP(mvr(40, cond, 0.6)); got.COP != 1.0 || got.Error == "" {
			t.Fatalf("cond=%v: got %+v", cond, got)
		}
	}
	for lift := -20.0; lift <= 10; lift += 2.5 {
		if got := ComputeCOP(mvr(30, 30+lift, 0.6)); got.COP != 8.0 {
			t.Fatalf("lift=%v: got %+v", lift, got)
		}
	}
}

func TestComputeCOP_Absorption(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		strategy Strategy
		want     float64
	}{
		{"steam generation", ModeSteam, StrategyGenerate, 1.45},
		{"steam preheat", ModeSteam, StrategyPreheat, 1.70},
		{"water preheat", ModeWater, StrategyPreheat, 1.70},
		{"water generation", ModeWater, StrategyGenerate, 1.70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, temps := range [][2]float64{{25, 95}, {-10, 150}, {60, 75}} {
				got := ComputeCOP(CycleInputs{
					EvapTemp:     temps[0],
					CondTemp:     temps[1],
					Efficiency:   0.55,
					Mode:         tt.mode,
					Strategy:     tt.strategy,
					RecoveryType: RecoveryAbsorption,
				})
				if got.COP != tt.want {
					t.Fatalf("temps=%v COP = %v, want %v", temps, got.COP, tt.want)
				}
				if !got.InEnvelope() {
					t.Fatalf("unexpected envelope error %q", got.Error)
				}
				if got.Lift != round(temps[1]-temps[0], 1) {
					t.Fatalf("Lift = %v, want %v", got.Lift, temps[1]-temps[0])
				}
			}
		})
	}
}

func TestComputeCOP_Compressor(t *testing.T) {
	tests := []struct {
		name     string
		in       CycleInputs
		wantCOP  float64
		wantLift float64
	}{
		{"hot water", mvr(25, 95, 0.55), 2.89, 70},
		{"carnot cap then clamp to 8", mvr(60, 75, 1.0), 8.0, 15},
		{"clamped to 1", mvr(0, 150, 0.2), 1.0, 150},
		{
			name: "steam generation high lift penalty",
			in: CycleInputs{
				EvapTemp: 5, CondTemp: 100, Efficiency: 0.55,
				Mode: ModeSteam, Strategy: StrategyGenerate, RecoveryType: RecoveryMVR,
			},
			wantCOP:  1.84,
			wantLift: 95,
		},
		{
			name: "steam preheat no penalty",
			in: CycleInputs{
				EvapTemp: 5, CondTemp: 100, Efficiency: 0.55,
				Mode: ModeSteam, Strategy: StrategyPreheat, RecoveryType: RecoveryMVR,
			},
			wantCOP:  2.16,
			wantLift: 95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCOP(tt.in)
			if got.COP != tt.wantCOP {
				t.Errorf("COP = %v, want %v", got.COP, tt.wantCOP)
			}
			if got.Lift != tt.wantLift {
				t.Errorf("Lift = %v, want %v", got.Lift, tt.wantLift)
			}
			if !got.InEnvelope() {
				t.Errorf("unexpected envelope error %q", got.Error)
			}
		})
	}
}

func TestComputeCOP_CompressorRange(t *testing.T) {
	for evap := -30.0; evap <= 100; evap += 5 {
		for cond := evap + 10.5; cond <= 160; cond += 7 {
			for _, eff := range []float64{0.1, 0.55, 1.0} {
				got := ComputeCOP(mvr(evap, cond, eff))
				if got.COP < 1.0 || got.COP > 8.0 {
					t.Fatalf("evap=%v cond=%v eff=%v: COP %v out of [1, 8]", evap, cond, eff, got.COP)
				}
			}
		}
	}
}

func TestComputeCOP_MonotonicAsLiftShrinks(t *testing.T) {
	prev := 0.0
	for evap := -30.0; evap < 84; evap += 1 {
		got := ComputeCOP(mvr(evap, 95, 0.15))
		if got.COP < prev {
			t.Fatalf("evap=%v: COP %v dropped below %v", evap, got.COP, prev)
		}
		prev = got.COP
	}
}

func TestStandardCOP(t *testing.T) {
	req := DefaultStandardRequest()
	req.SourceTemp = 30
	req.TargetTemp = 90

	got := StandardCOP(req)
	if got.SimulationResult.COP != 2.89 {
		t.Fatalf("COP = %v, want 2.89", got.SimulationResult.COP)
	}
	if got.InputEcho.Source != 30 || got.InputEcho.Target != 90 {
		t.Fatalf("unexpected echo %+v", got.InputEcho)
	}
}

func TestStandardCOP_SteamPressureTarget(t *testing.T) {
	req := DefaultStandardRequest()
	req.SourceTemp = 60
	req.TargetTemp = 120
	req.Mode = ModeSteam
	req.TargetPressureMPa = 0.5

	got := StandardCOP(req)
	if got.InputEcho.Target != 151.4 {
		t.Fatalf("saturation target = %v, want 151.4", got.InputEcho.Target)
	}
	if got.SimulationResult.Lift != 101.4 {
		t.Fatalf("Lift = %v, want 101.4", got.SimulationResult.Lift)
	}
}

func TestStandardRequestValidate(t *testing.T) {
	req := DefaultStandardRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Efficiency = 1.5
	if err := req.Validate(); err != ErrInvalidEfficiency {
		t.Fatalf("expected ErrInvalidEfficiency, got %v", err)
	}
	req = DefaultStandardRequest()
	req.Mode = ModeUnknown
	if err := req.Validate(); err != ErrInvalidMode {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
