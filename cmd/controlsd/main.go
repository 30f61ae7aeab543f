// Command controlsd runs the 100 Hz control supervisor: flag/env parsing,
// config load, bus-adapter selection (mock/sim), wiring, and the
// blocking Run loop. Grounded on cmd/decision/main.go's flag-parsing +
// mode-selection + wiring shape, trimmed to the supervisor's single
// long-running loop instead of a one-shot evaluate-and-exit pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/openctrl/controlsd/internal/actuation"
	"github.com/openctrl/controlsd/internal/busio"
	"github.com/openctrl/controlsd/internal/config"
	"github.com/openctrl/controlsd/internal/observ"
	"github.com/openctrl/controlsd/internal/publish"
	"github.com/openctrl/controlsd/internal/supervisor"
)

func main() {
	var cfgPath string
	var simFlag string
	var lateralFlag string
	var metricsAddr string
	var oneShot bool
	flag.StringVar(&cfgPath, "config", "config/controlsd.yaml", "config path")
	flag.StringVar(&simFlag, "sim", "", "run against a simulated bus adapter instead of the default mock one: straight|curve|lead")
	flag.StringVar(&lateralFlag, "lateral", "pid", "lateral controller variant: angle|pid|indi|lqr")
	flag.StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:8091", "metrics/health listen address")
	flag.BoolVar(&oneShot, "oneshot", false, "run a single tick and exit (for smoke tests)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		observ.Log("config_load_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	simulation := os.Getenv("SIMULATION") != "" || simFlag != ""
	if os.Getenv("NOSENSOR") != "" {
		cfg.Debug.NoSensor = true
	}
	if os.Getenv("NO_CAN_TIMEOUT") != "" {
		cfg.Debug.NoCANTimeout = true
	}
	if os.Getenv("REPLAY") != "" {
		cfg.Debug.Replay = true
	}
	cfg.Debug.Simulation = simulation

	adapter := buildAdapter(simFlag)
	defer adapter.Close()

	store := publish.NewParamStore(cfg.Persist.ParamsCachePath, cfg.Persist.ControlsReadyPath)
	if ready, err := store.LoadControlsReady(); err != nil {
		observ.Log("controls_ready_load_error", map[string]any{"error": err.Error()})
	} else {
		observ.Log("startup", map[string]any{
			"config":             cfgPath,
			"simulation":         simulation,
			"sim_scenario":       simFlag,
			"lateral_controller": lateralFlag,
			"previously_ready":   ready.Ready,
		})
	}

	lateral := actuation.NewLateralController(actuation.ControlType(lateralFlag))
	sup := supervisor.New(supervisor.Deps{
		Config:     cfg,
		Adapter:    adapter,
		Lateral:    lateral,
		ParamStore: store,
		Simulation: simulation,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observ.Handler())
		mux.Handle("/health", observ.Health())
		mux.Handle("/healthz", observ.HealthHandler())
		mux.HandleFunc("/cumlag", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "%.3f\n", sup.CumLagMs())
		})
		observ.Log("metrics_listen", map[string]any{"addr": metricsAddr})
		go func() { _ = http.ListenAndServe(metricsAddr, mux) }()
	}

	if oneShot {
		if _, err := sup.Step(ctx); err != nil {
			observ.Log("tick_error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		observ.Log("oneshot_done", nil)
		return
	}

	observ.Log("run_start", map[string]any{"hz": 100})
	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		observ.Log("run_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	observ.Log("run_stop", map[string]any{"reason": "signal"})
}

// buildAdapter selects a bus adapter from the -sim flag, matching the
// teacher's config-driven adapter-factory pattern (adapters.NewQuotesAdapterFactory)
// narrowed to this repo's four canned choices: mock, and the three scenario
// generators (straight, curve, lead).
func buildAdapter(sim string) busio.BusAdapter {
	switch sim {
	case "curve":
		return busio.NewSimAdapter(busio.ScenarioConstantCurve, 20.0)
	case "lead":
		return busio.NewSimAdapter(busio.ScenarioClosingLead, 22.0)
	case "straight":
		return busio.NewSimAdapter(busio.ScenarioStraightCruise, 15.0)
	default:
		return busio.NewMockAdapter()
	}
}
