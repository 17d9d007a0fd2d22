package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andreyk/breakout_bot/internal/infrastructure/broker"
)

type Config struct {
	Broker struct {
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"broker"`
	Instruments []struct {
		Symbol string `yaml:"symbol"`
	} `yaml:"instruments"`
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

func main() {
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Instruments) == 0 {
		fmt.Println("No instruments configured")
		os.Exit(1)
	}

	symbol := cfg.Instruments[0].Symbol
	fmt.Printf("Testing gateway interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Broker.RESTEndpoint)
	fmt.Printf("Symbol: %s\n", symbol)

	log, _ := zap.NewDevelopment()
	bridge := broker.NewBridge(
		cfg.Broker.APIKey,
		cfg.Broker.APISecret,
		cfg.Broker.RESTEndpoint,
		cfg.Broker.WSEndpoint,
		log,
	)
	ctx := context.Background()

	// last hour of tape
	to := time.Now()
	from := to.Add(-time.Hour)
	trades, err := bridge.TradesBetween(ctx, symbol, from, to)
	if err != nil {
		fmt.Printf("FAILED to fetch tape: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK fetched %d tape prints\n", len(trades))

	if len(trades) > 0 {
		high, low := trades[0].Price, trades[0].Price
		for _, t := range trades[1:] {
			if t.Price > high {
				high = t.Price
			}
			if t.Price < low {
				low = t.Price
			}
		}
		fmt.Printf("Range over window: high=%f low=%f width=%f\n", high, low, high-low)
	}
}
