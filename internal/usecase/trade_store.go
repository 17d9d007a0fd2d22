package usecase

import (
	"sync"
	"time"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// TradeStore owns the open-trade set, the pending-order set and the
// daily-range table. All mutation happens on the reactor goroutine through
// the named operations below; the lock exists only so snapshot readers
// (web handlers) can observe consistent state.
type TradeStore struct {
	mu       sync.RWMutex
	trades   map[string]*domain.ActiveTrade
	orders   map[string]*domain.Order
	ranges   map[string]*domain.DailyRange
	onChange []func()
}

func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string]*domain.ActiveTrade),
		orders: make(map[string]*domain.Order),
		ranges: make(map[string]*domain.DailyRange),
	}
}

// OnChange registers a callback fired after every open-trade mutation.
// The notification carries no payload: observers re-read through snapshots.
func (s *TradeStore) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *TradeStore) notify() {
	s.mu.RLock()
	callbacks := s.onChange
	s.mu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}

// --- ranges ---

// RecordRange overwrites the instrument's range in place: the table never
// holds more than one range per instrument.
func (s *TradeStore) RecordRange(r *domain.DailyRange) {
	s.mu.Lock()
	s.ranges[r.Symbol] = r
	s.mu.Unlock()
}

func (s *TradeStore) Range(symbol string) *domain.DailyRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ranges[symbol]
}

// HasFreshRange reports whether any instrument has a range computed on the
// given day.
func (s *TradeStore) HasFreshRange(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.ranges {
		if r.Fresh(day) {
			return true
		}
	}
	return false
}

func (s *TradeStore) RangeSnapshot() []domain.DailyRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DailyRange, 0, len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, *r)
	}
	return out
}

// --- trades ---

func (s *TradeStore) OpenTrade(t *domain.ActiveTrade) {
	s.mu.Lock()
	s.trades[t.ID] = t
	s.mu.Unlock()
	s.notify()
}

// CloseTrade removes the trade from the open set and returns it, or nil when
// it was already gone.
func (s *TradeStore) CloseTrade(id string) *domain.ActiveTrade {
	s.mu.Lock()
	t, ok := s.trades[id]
	if ok {
		delete(s.trades, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	s.notify()
	return t
}

// MutateTrade applies fn to the trade under the write lock, so snapshot
// readers never observe a half-written struct. Returns the trade, or nil when
// it has already left the open set. Fires the change notification.
func (s *TradeStore) MutateTrade(id string, fn func(*domain.ActiveTrade)) *domain.ActiveTrade {
	s.mu.Lock()
	t, ok := s.trades[id]
	if ok {
		fn(t)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	s.notify()
	return t
}

func (s *TradeStore) Trade(id string) *domain.ActiveTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades[id]
}

func (s *TradeStore) Trades() []*domain.ActiveTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ActiveTrade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, t)
	}
	return out
}

func (s *TradeStore) TradesBySymbol(symbol string) []*domain.ActiveTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ActiveTrade
	for _, t := range s.trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

func (s *TradeStore) HasTrades(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trades {
		if t.Symbol == symbol {
			return true
		}
	}
	return false
}

func (s *TradeStore) TradeSnapshot() []domain.ActiveTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActiveTrade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, *t)
	}
	return out
}

// --- pending orders ---

func (s *TradeStore) RecordOrder(o *domain.Order) {
	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()
}

func (s *TradeStore) Order(id string) *domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id]
}

func (s *TradeStore) RemoveOrder(id string) {
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
}

// ActiveEntryOrders returns the live entry orders for a symbol.
func (s *TradeStore) ActiveEntryOrders(symbol string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Order
	for _, o := range s.orders {
		if o.Symbol == symbol && o.Kind == domain.OrderKindEntry && !o.State.Terminal() {
			out = append(out, o)
		}
	}
	return out
}

// ActiveOrdersForTrade returns every live order tagged to the trade.
func (s *TradeStore) ActiveOrdersForTrade(tradeID string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Order
	for _, o := range s.orders {
		if o.TradeID == tradeID && !o.State.Terminal() {
			out = append(out, o)
		}
	}
	return out
}
