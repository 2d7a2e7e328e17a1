package main

import (
	"context"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"

	"mstransform/internal/api"
	"mstransform/internal/config"
	"mstransform/internal/engine"
	"mstransform/internal/logger"
	"mstransform/internal/predicate"
)

func main() {
	flags := pflag.NewFlagSet("mstransform-server", pflag.ExitOnError)
	cfgPath := flags.String("config", "", "config file (toml, yaml or json)")
	flags.String("data-dir", "data", "directory holding the dataset catalog")
	flags.String("bind", ":8080", "listen address")
	flags.String("log-level", "info", "debug, info, warn, error or off")
	flags.Int("workers", 0, "engine workers, 0 for one per CPU")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgPath, flags)
	if err != nil {
		logger.NewStderr().Errorf("%v", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.LogLevel)

	// 1. Initialize Echo (Starts Instantly)
	e := echo.New()
	e.HideBanner = true
	e.Logger = log.Gommon()
	e.JSONSerializer = api.JSONSerializer{}
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// 2. Initialize Handler with NIL catalog
	// The API is live but returns 503 until the catalog is loaded
	eng := engine.New(engine.Options{
		Logger:    log.WithPrefix("engine"),
		Workers:   cfg.Workers,
		Predicate: predicate.Evaluator{},
	})
	h := api.NewHandler(eng, log.WithPrefix("api"))
	h.RegisterRoutes(e)

	// 3. Load the catalog in the background
	go func() {
		log.Infof("loading catalog from %s", cfg.DataDir)
		t0 := time.Now()

		cat, err := api.LoadCatalog(context.Background(), cfg.DataDir)
		if err != nil {
			log.Errorf("loading catalog: %v", err)
			return
		}
		h.SetCatalog(cat)

		log.Infof("catalog loaded in %v: %d datasets", time.Since(t0), len(cat.Infos()))
	}()

	// 4. Start Server
	log.Infof("server ready on %s (catalog loading in background)", cfg.Bind)
	e.Logger.Fatal(e.Start(cfg.Bind))
}
