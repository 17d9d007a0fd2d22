package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
	"github.com/andreyk/breakout_bot/internal/infrastructure/metrics"
)

// RangeService computes the morning price extremes from the trade tape and
// writes them into the store. Scheduling of the next computation is the
// engine's job so that the timer lands on the reactor goroutine.
type RangeService struct {
	cfg      StrategyConfig
	universe []*domain.Instrument
	tape     domain.TradeTape
	store    *TradeStore
	logger   *zap.Logger
}

func NewRangeService(cfg StrategyConfig, universe []*domain.Instrument, tape domain.TradeTape, store *TradeStore, logger *zap.Logger) *RangeService {
	cfg.applyDefaults()
	return &RangeService{
		cfg:      cfg,
		universe: universe,
		tape:     tape,
		store:    store,
		logger:   logger,
	}
}

// Compute pulls the morning tape for every instrument and overwrites the
// day's ranges. When the tape has no trades within the first two seconds of
// the session the pass is aborted without mutating state: the data feed is
// not ready, and the next bar-close freshness check will retry.
func (s *RangeService) Compute(ctx context.Context, day time.Time) bool {
	s.logger.Info("computing morning ranges")

	open := s.cfg.SessionOpen.On(day)
	cutoff := s.cfg.Cutoff.On(day)

	for _, inst := range s.universe {
		trades, err := s.tape.TradesBetween(ctx, inst.Symbol, open, cutoff)
		if err != nil {
			s.logger.Error("trade tape unavailable",
				zap.String("symbol", inst.Symbol), zap.Error(err))
			return false
		}
		if len(trades) == 0 || !anyBefore(trades, open.Add(2*time.Second)) {
			s.logger.Warn("morning trades missing, skipping range pass",
				zap.String("symbol", inst.Symbol))
			return false
		}

		high, low := extremes(trades)
		last := trades[len(trades)-1].Time
		rng := &domain.DailyRange{
			Symbol: inst.Symbol,
			High:   high,
			Low:    low,
			Date:   time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location()),
		}
		s.store.RecordRange(rng)
		metrics.RangesComputed.Inc()

		s.logger.Info("morning range",
			zap.String("symbol", inst.Symbol),
			zap.Float64("high", high),
			zap.Float64("low", low),
			zap.Time("date", rng.Date))
	}

	return true
}

func anyBefore(trades []domain.TapeTrade, t time.Time) bool {
	for _, tr := range trades {
		if tr.Time.Before(t) {
			return true
		}
	}
	return false
}

func extremes(trades []domain.TapeTrade) (high, low float64) {
	high, low = trades[0].Price, trades[0].Price
	for _, tr := range trades[1:] {
		if tr.Price > high {
			high = tr.Price
		}
		if tr.Price < low {
			low = tr.Price
		}
	}
	return high, low
}
