package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	LineSearch struct {
		DecreaseFactor  float64 `env:"LS_DECREASE_FACTOR" envDefault:"0.0001"`
		CurvatureFactor float64 `env:"LS_CURVATURE_FACTOR" envDefault:"0.9"`
		StepTolerance   float64 `env:"LS_STEP_TOLERANCE" envDefault:"1e-10"`
		MinStep         float64 `env:"LS_MIN_STEP" envDefault:"1e-8"`
		MaxStep         float64 `env:"LS_MAX_STEP" envDefault:"1e20"`
		MaxIterations   int     `env:"LS_MAX_ITERATIONS" envDefault:"50"`
	}
	Solver struct {
		MaxIterations     int     `env:"SOLVER_MAX_ITERATIONS" envDefault:"500"`
		GradientTolerance float64 `env:"SOLVER_GRADIENT_TOLERANCE" envDefault:"1e-6"`
		InitialStep       float64 `env:"SOLVER_INITIAL_STEP" envDefault:"1.0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development defaults to verbose logging unless overridden
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
