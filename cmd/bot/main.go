package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andreyk/breakout_bot/internal/domain"
	"github.com/andreyk/breakout_bot/internal/infrastructure/broker"
	"github.com/andreyk/breakout_bot/internal/infrastructure/logger"
	"github.com/andreyk/breakout_bot/internal/infrastructure/storage"
	"github.com/andreyk/breakout_bot/internal/usecase"
	"github.com/andreyk/breakout_bot/internal/web"
)

type Config struct {
	Broker struct {
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"broker"`
	Strategy struct {
		Name                 string  `yaml:"name"`
		StopLossPercent      float64 `yaml:"stop_loss_percent"`
		TakeProfitPercent    float64 `yaml:"take_profit_percent"`
		TakeProfitPercent2   float64 `yaml:"take_profit_percent_2"`
		TakeProfitPercent3   float64 `yaml:"take_profit_percent_3"`
		BreakoutPercent      float64 `yaml:"breakout_percent"`
		ReentryPercent       float64 `yaml:"reentry_percent"`
		SessionOpen          string  `yaml:"session_open"`
		Cutoff               string  `yaml:"cutoff"`
		EveningStart         string  `yaml:"evening_start"`
		ForcedExit           string  `yaml:"forced_exit"`
		VolatileClass        string  `yaml:"volatile_class"`
		VolatileRangeLimit   float64 `yaml:"volatile_range_limit"`
		CascadeAllTiers      bool    `yaml:"cascade_all_tiers"`
		CancelConfirmTimeout int     `yaml:"cancel_confirm_timeout_sec"`
		CancelRetryLimit     int     `yaml:"cancel_retry_limit"`
		LoadActiveTrades     bool    `yaml:"load_active_trades"`
	} `yaml:"strategy"`
	Instruments []struct {
		Symbol    string  `yaml:"symbol"`
		Class     string  `yaml:"class"`
		PriceStep float64 `yaml:"price_step"`
		Volume    float64 `yaml:"volume"`
	} `yaml:"instruments"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mustParseTime(s, fallback string) usecase.TimeOfDay {
	if s == "" {
		s = fallback
	}
	t, err := usecase.ParseTimeOfDay(s)
	if err != nil {
		fmt.Printf("Invalid time in config: %v\n", err)
		os.Exit(1)
	}
	return t
}

func main() {
	// .env overrides for credentials, optional
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("BROKER_API_SECRET"); v != "" {
		cfg.Broker.APISecret = v
	}

	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	bridge := broker.NewBridge(
		cfg.Broker.APIKey,
		cfg.Broker.APISecret,
		cfg.Broker.RESTEndpoint,
		cfg.Broker.WSEndpoint,
		log,
	)

	universe := make([]*domain.Instrument, 0, len(cfg.Instruments))
	volumes := make(map[string]float64, len(cfg.Instruments))
	symbols := make([]string, 0, len(cfg.Instruments))
	for _, ic := range cfg.Instruments {
		universe = append(universe, &domain.Instrument{
			Symbol:    ic.Symbol,
			Class:     ic.Class,
			PriceStep: ic.PriceStep,
		})
		volumes[ic.Symbol] = ic.Volume
		symbols = append(symbols, ic.Symbol)
	}
	if len(universe) == 0 {
		log.Fatal("No instruments configured")
	}

	strategyCfg := usecase.StrategyConfig{
		Name:                 cfg.Strategy.Name,
		StopLossPercent:      cfg.Strategy.StopLossPercent,
		TakeProfitPercent:    cfg.Strategy.TakeProfitPercent,
		TakeProfitPercent2:   cfg.Strategy.TakeProfitPercent2,
		TakeProfitPercent3:   cfg.Strategy.TakeProfitPercent3,
		BreakoutPercent:      cfg.Strategy.BreakoutPercent,
		ReentryPercent:       cfg.Strategy.ReentryPercent,
		SessionOpen:          mustParseTime(cfg.Strategy.SessionOpen, "10:00"),
		Cutoff:               mustParseTime(cfg.Strategy.Cutoff, "11:00"),
		EveningStart:         mustParseTime(cfg.Strategy.EveningStart, "19:00"),
		ForcedExit:           mustParseTime(cfg.Strategy.ForcedExit, "23:35"),
		VolatileClass:        cfg.Strategy.VolatileClass,
		VolatileRangeLimit:   cfg.Strategy.VolatileRangeLimit,
		CascadeAllTiers:      cfg.Strategy.CascadeAllTiers,
		CancelConfirmTimeout: time.Duration(cfg.Strategy.CancelConfirmTimeout) * time.Second,
		CancelRetryLimit:     cfg.Strategy.CancelRetryLimit,
		Volumes:              volumes,
		LoadActiveTrades:     cfg.Strategy.LoadActiveTrades,
	}

	engine := usecase.NewEngine(strategyCfg, universe, bridge, bridge, store, log)
	engine.Bind(bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bridge.Connect(ctx); err != nil {
		log.Fatal("Failed to connect broker stream", zap.Error(err))
	}
	defer bridge.Close()

	if err := bridge.Subscribe(symbols); err != nil {
		log.Fatal("Failed to subscribe bar streams", zap.Error(err))
	}

	if err := engine.Start(ctx); err != nil {
		log.Fatal("Failed to start engine", zap.Error(err))
	}
	go engine.Run(ctx)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, engine, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
