package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := "recovery_type: ABSORPTION_HP\nfuel_type: COAL\nsink_flow_kg_h: 20000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	req, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if req.RecoveryType != recovery.RecoveryAbsorption || req.Fuel != recovery.FuelCoal {
		t.Fatalf("enums not decoded: %+v", req)
	}
	if req.SinkFlowKgH != 20000 || req.SourceInTemp != 130 {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing scenario")
	}
}

func TestSweepTargetSourceOut(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sweep.csv")
	req := recovery.DefaultSolverRequest()
	req.RecoveryType = recovery.RecoveryAbsorption

	if err := SweepTargetSourceOut(req, 20, 40, 5, out); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d want 6 (header + 5 points)", len(rows))
	}
	if rows[1][0] != "20.00" || rows[5][0] != "40.00" {
		t.Fatalf("unexpected sweep range: %v .. %v", rows[1][0], rows[5][0])
	}

	if err := SweepTargetSourceOut(req, 20, 40, 0, out); err == nil {
		t.Fatalf("expected error for zero step")
	}
}
