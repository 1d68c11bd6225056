package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

// LoadScenario reads a YAML scenario. Omitted fields keep their defaults.
func LoadScenario(path string) (recovery.SolverRequest, error) {
	req := recovery.DefaultSolverRequest()
	if path == "" {
		return req, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse scenario: %w", err)
	}
	return req, nil
}

// SweepTargetSourceOut solves req for every target source outlet temperature
// in [from, to] and writes one CSV row per point.
func SweepTargetSourceOut(req recovery.SolverRequest, from, to, step float64, filename string) error {
	if step <= 0 {
		return fmt.Errorf("step must be positive, got %v", step)
	}
	solver, err := recovery.NewSolver(recovery.DefaultSolverParams())
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{
		"TargetSourceOut", "Status", "Iterations", "ActualSourceOut", "ActualSinkOut",
		"TargetLoadKW", "ActualLoadKW", "FinalCOP", "SourceLimited", "CondensedKgH",
	}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for i := 0; ; i++ {
		t := from + float64(i)*step
		if t > to {
			break
		}
		r := req
		r.TargetSourceOut = t
		if err := r.Validate(); err != nil {
			log.WithError(err).WithField("target_source_out", t).Warn("skipping point")
			continue
		}

		res := solver.Solve(r)
		condensed := 0.0
		if res.Condensation != nil {
			condensed = res.Condensation.Condensed
		}
		if err := writer.Write([]string{
			f(t),
			string(res.Status),
			strconv.Itoa(res.Iterations),
			f(res.ActualSourceOut),
			f(res.ActualSinkOut),
			f(res.TargetLoadKW),
			f(res.ActualLoadKW),
			f(res.FinalCOP),
			strconv.FormatBool(res.IsSourceLimited),
			f(condensed),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}
	return nil
}

func main() {
	scenario := flag.String("scenario", "", "YAML scenario file (defaults when empty)")
	out := flag.String("out", "sweep.csv", "output CSV file")
	from := flag.Float64("from", 20, "first target source outlet temperature, °C")
	to := flag.Float64("to", 80, "last target source outlet temperature, °C")
	step := flag.Float64("step", 2, "temperature step, K")
	flag.Parse()

	req, err := LoadScenario(*scenario)
	if err != nil {
		log.Fatal(err)
	}
	if err := SweepTargetSourceOut(req, *from, *to, *step, *out); err != nil {
		log.Fatal(err)
	}
	log.WithField("out", *out).Info("sweep written")
}
