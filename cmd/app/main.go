package main

import (
	"flag"
	"log"
	"os"

	"FinSim/internal/di"
	"FinSim/internal/signalers"
	"FinSim/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbol=%s tf=%s", cfg.Environment, cfg.Backtest.Symbol, cfg.Backtest.Timeframe)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Built-in signal generators; deployments can register more before Run
	app.RegisterSignaler(signalers.NewSMACross())
	app.RegisterSignaler(signalers.NewMomentum())

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v jobs_topic=%s", cfg.Kafka.Brokers, cfg.Kafka.JobsTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
