package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

const envPrefix = "HEATRECOVERY_"

type Config struct {
	DeviceID    string            `koanf:"device_id"`
	Log         LogConfig         `koanf:"log"`
	Controllers ControllersConfig `koanf:"controllers"`
	Solver      SolverConfig      `koanf:"solver"`
	Scenario    ScenarioConfig    `koanf:"scenario"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	MODBUS ModbusConfig `koanf:"modbus"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "text" | "json"
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Metrics bool   `koanf:"metrics"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

type SolverConfig struct {
	Tolerance     float64 `koanf:"tolerance"` // kW
	MaxIterations int     `koanf:"max_iterations"`
}

// ScenarioConfig is the scenario the plant starts with. Enum fields use
// their wire names (WATER, STRATEGY_PRE, MVR, NATURAL_GAS, ...).
type ScenarioConfig struct {
	SinkInTemp      float64 `koanf:"sink_in_temp"`
	SinkOutTarget   float64 `koanf:"sink_out_target"`
	SinkFlowKgH     float64 `koanf:"sink_flow_kg_h"`
	Mode            string  `koanf:"mode"`
	SourceInTemp    float64 `koanf:"source_in_temp"`
	TargetSourceOut float64 `koanf:"target_source_out"`
	SourceFlowVol   float64 `koanf:"source_flow_vol"`
	Fuel            string  `koanf:"fuel_type"`
	Efficiency      float64 `koanf:"efficiency"`
	Strategy        string  `koanf:"strategy"`
	RecoveryType    string  `koanf:"recovery_type"`
	ExcessAir       float64 `koanf:"excess_air"`
	IsManualCOP     bool    `koanf:"is_manual_cop"`
	ManualCOP       float64 `koanf:"manual_cop"`
}

func defaultConfig() Config {
	req := recovery.DefaultSolverRequest()
	params := recovery.DefaultSolverParams()

	var cfg Config
	cfg.DeviceID = "default"
	cfg.Log = LogConfig{Level: "info", Format: "text"}
	cfg.Controllers.HTTP = HTTPConfig{Enabled: true, Addr: ":8080", Metrics: true}
	cfg.Controllers.MQTT = MQTTConfig{BrokerURL: "tcp://localhost:1883", PublishInterval: 1 * time.Second}
	cfg.Controllers.MODBUS = ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1}
	cfg.Solver = SolverConfig{Tolerance: params.Tolerance, MaxIterations: params.MaxIterations}
	cfg.Scenario = ScenarioConfig{
		SinkInTemp:      req.SinkInTemp,
		SinkOutTarget:   req.SinkOutTarget,
		SinkFlowKgH:     req.SinkFlowKgH,
		Mode:            req.Mode.String(),
		SourceInTemp:    req.SourceInTemp,
		TargetSourceOut: req.TargetSourceOut,
		SourceFlowVol:   req.SourceFlowVol,
		Fuel:            req.Fuel.String(),
		Efficiency:      req.Efficiency,
		Strategy:        req.Strategy.String(),
		RecoveryType:    req.RecoveryType.String(),
		ExcessAir:       req.ExcessAir,
	}
	return cfg
}

// LoadConfig layers defaults, the config file at path and HEATRECOVERY_*
// environment variables. An empty or missing path means defaults only.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return Config{}, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	applyPort(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// sections whose keys are one level deep below the section name.
var flatSections = []string{"solver", "scenario", "log"}

// envKeyTransform maps an environment key (prefix already stripped) to a
// koanf path: CONTROLLERS_HTTP_ADDR -> controllers.http.addr,
// SOLVER_MAX_ITERATIONS -> solver.max_iterations, DEVICE_ID -> device_id.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return ""
	}

	if strings.HasPrefix(k, "controllers_") {
		parts := strings.SplitN(k, "_", 3)
		if len(parts) < 3 {
			return k
		}
		return parts[0] + "." + parts[1] + "." + parts[2]
	}

	for _, s := range flatSections {
		if rest, ok := strings.CutPrefix(k, s+"_"); ok {
			return s + "." + rest
		}
	}
	return k
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	c := &cfg.Controllers
	if !c.HTTP.Enabled && !c.MQTT.Enabled && !c.MODBUS.Enabled {
		c.HTTP.Enabled = true
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.MQTT.PublishInterval <= 0 {
		c.MQTT.PublishInterval = 1 * time.Second
	}
	if c.MODBUS.UnitID == 0 {
		c.MODBUS.UnitID = 1
	}
}

// applyPort supports PORT (common in containers) unless the HTTP address was
// set explicitly through the environment.
func applyPort(cfg *Config) {
	if os.Getenv(envPrefix+"CONTROLLERS_HTTP_ADDR") != "" {
		return
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Controllers.HTTP.Addr = ":" + v
	}
}

func (c SolverConfig) Params() recovery.SolverParams {
	return recovery.SolverParams{Tolerance: c.Tolerance, MaxIterations: c.MaxIterations}
}

// Request converts the configured scenario and validates it.
func (s ScenarioConfig) Request() (recovery.SolverRequest, error) {
	mode, err := recovery.ParseMode(strings.ToUpper(s.Mode))
	if err != nil {
		return recovery.SolverRequest{}, err
	}
	strategy, err := recovery.ParseStrategy(strings.ToUpper(s.Strategy))
	if err != nil {
		return recovery.SolverRequest{}, err
	}
	rt, err := recovery.ParseRecoveryType(strings.ToUpper(s.RecoveryType))
	if err != nil {
		return recovery.SolverRequest{}, err
	}
	fuel, err := recovery.ParseFuelKind(strings.ToUpper(s.Fuel))
	if err != nil {
		return recovery.SolverRequest{}, err
	}

	req := recovery.SolverRequest{
		SinkInTemp:      s.SinkInTemp,
		SinkOutTarget:   s.SinkOutTarget,
		SinkFlowKgH:     s.SinkFlowKgH,
		Mode:            mode,
		SourceInTemp:    s.SourceInTemp,
		TargetSourceOut: s.TargetSourceOut,
		SourceFlowVol:   s.SourceFlowVol,
		Fuel:            fuel,
		Efficiency:      s.Efficiency,
		Strategy:        strategy,
		RecoveryType:    rt,
		ExcessAir:       s.ExcessAir,
		IsManualCOP:     s.IsManualCOP,
		ManualCOP:       s.ManualCOP,
	}
	if err := req.Validate(); err != nil {
		return recovery.SolverRequest{}, fmt.Errorf("scenario: %w", err)
	}
	return req, nil
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger() (*log.Logger, error) {
	l := log.New()
	l.SetOutput(os.Stderr)

	level := c.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)

	switch strings.ToLower(c.Format) {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", c.Format)
	}
	return l, nil
}
