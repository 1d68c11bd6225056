package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/heatrecovery/cmd/app"
	httpctrl "github.com/Agrid-Dev/heatrecovery/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/heatrecovery/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/heatrecovery/internal/controllers/mqtt"
	"github.com/Agrid-Dev/heatrecovery/internal/metrics"
	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("heatrecovery exited")
	}
}

func run(cfg app.Config, logger *log.Logger) error {
	l := logger.WithField("device_id", cfg.DeviceID)

	solver, err := recovery.NewSolver(cfg.Solver.Params())
	if err != nil {
		return err
	}
	initial, err := cfg.Scenario.Request()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	p, err := plant.New(cfg.DeviceID, solver, initial, plant.WithLogger(logger), plant.WithObserver(rec))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	c := cfg.Controllers
	if c.HTTP.Enabled {
		opts := []httpctrl.Option{httpctrl.WithLogger(logger)}
		if c.HTTP.Metrics {
			opts = append(opts, httpctrl.WithMetricsHandler(metrics.Handler(reg)))
		}
		srv := httpctrl.New(p, c.HTTP.Addr, cfg.DeviceID, opts...)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if c.MQTT.Enabled {
		mc, err := mqttctrl.New(p, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       c.MQTT.BrokerURL,
			ClientID:        c.MQTT.ClientID,
			BaseTopic:       c.MQTT.BaseTopic,
			QoS:             c.MQTT.QoS,
			RetainSnapshot:  c.MQTT.RetainSnapshot,
			PublishInterval: c.MQTT.PublishInterval,
			Username:        c.MQTT.Username,
			Password:        c.MQTT.Password,
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return mc.Run(ctx) })
	}

	if c.MODBUS.Enabled {
		mb, err := modbusctrl.New(p, modbusctrl.Config{
			DeviceID: cfg.DeviceID,
			Addr:     c.MODBUS.Addr,
			UnitID:   c.MODBUS.UnitID,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return mb.Run(ctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	l.Info("shutdown complete")
	return nil
}
