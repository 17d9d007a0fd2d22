package broker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// Bridge talks to the broker's order-routing service: signed REST for order
// submission, cancellation and the trade tape, plus a websocket stream for
// order lifecycle events and bar closes.
type Bridge struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	client    *http.Client
	logger    *zap.Logger

	mu             sync.Mutex
	wsConn         *websocket.Conn
	wsDone         chan struct{}
	orderCallbacks []func(domain.OrderEvent)
	barCallbacks   []func(domain.Bar)
	subscribed     []string
}

func NewBridge(apiKey, apiSecret, baseURL, wsURL string, logger *zap.Logger) *Bridge {
	return &Bridge{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		wsURL:     wsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// --- REST API ---

func (b *Bridge) sign(params string, timestamp int64, recvWindow int) string {
	toSign := fmt.Sprintf("%d%s%d%s", timestamp, b.apiKey, recvWindow, params)
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(toSign))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *Bridge) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	timestamp := time.Now().UnixMilli()
	recvWindow := 5000

	var body []byte
	var paramsStr string

	if payload != nil {
		jsonBody, _ := json.Marshal(payload)
		body = jsonBody
		paramsStr = string(jsonBody)
	} else if method == "GET" {
		if idx := strings.Index(path, "?"); idx != -1 {
			paramsStr = path[idx+1:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	signature := b.sign(paramsStr, timestamp, recvWindow)

	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("X-API-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-API-SIGN", signature)
	req.Header.Set("X-API-RECV-WINDOW", strconv.Itoa(recvWindow))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

// Submit registers the order with the broker. The engine's own order id
// rides along as the client order id, so lifecycle events map back directly.
func (b *Bridge) Submit(ctx context.Context, o *domain.Order) error {
	orderType := "limit"
	switch {
	case o.Kind == domain.OrderKindStop:
		orderType = "stop_limit"
	case o.Price == 0:
		orderType = "market"
	}

	payload := map[string]interface{}{
		"client_order_id": o.ID,
		"symbol":          o.Symbol,
		"side":            strings.ToLower(string(o.Side)),
		"type":            orderType,
		"qty":             fmt.Sprintf("%f", o.Volume),
		"comment":         o.Comment,
	}
	if o.Price > 0 {
		payload["price"] = fmt.Sprintf("%f", o.Price)
	}
	if o.TriggerPrice > 0 {
		payload["trigger_price"] = fmt.Sprintf("%f", o.TriggerPrice)
	}
	if !o.Expiry.IsZero() {
		payload["expiry"] = o.Expiry.UnixMilli()
	}

	resp, err := b.sendRequest(ctx, "POST", "/v1/orders", payload)
	if err != nil {
		return err
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}
	if result.RetCode != 0 {
		return fmt.Errorf("broker order error: %s", result.RetMsg)
	}
	return nil
}

func (b *Bridge) Cancel(ctx context.Context, orderID string) error {
	payload := map[string]interface{}{
		"client_order_id": orderID,
	}
	resp, err := b.sendRequest(ctx, "POST", "/v1/orders/cancel", payload)
	if err != nil {
		return err
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}
	if result.RetCode != 0 {
		return fmt.Errorf("broker cancel error: %s", result.RetMsg)
	}
	return nil
}

// TradesBetween pulls tape prints for the window, ordered by time.
func (b *Bridge) TradesBetween(ctx context.Context, symbol string, from, to time.Time) ([]domain.TapeTrade, error) {
	path := fmt.Sprintf("/v1/tape?symbol=%s&from=%d&to=%d", symbol, from.UnixMilli(), to.UnixMilli())
	resp, err := b.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			List []struct {
				Price string `json:"price"`
				Time  int64  `json:"time"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	trades := make([]domain.TapeTrade, 0, len(result.Result.List))
	for _, item := range result.Result.List {
		price, err := strconv.ParseFloat(item.Price, 64)
		if err != nil {
			continue
		}
		trades = append(trades, domain.TapeTrade{
			Price: price,
			Time:  time.UnixMilli(item.Time),
		})
	}
	return trades, nil
}

// --- WebSocket stream ---

func (b *Bridge) OnOrderEvent(callback func(domain.OrderEvent)) {
	b.mu.Lock()
	b.orderCallbacks = append(b.orderCallbacks, callback)
	b.mu.Unlock()
}

func (b *Bridge) OnBarClose(callback func(domain.Bar)) {
	b.mu.Lock()
	b.barCallbacks = append(b.barCallbacks, callback)
	b.mu.Unlock()
}

// Connect dials the stream, authenticates and starts the read loop.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}

	ts := time.Now().UnixMilli()
	auth := map[string]interface{}{
		"op":   "auth",
		"args": []interface{}{b.apiKey, ts, b.sign("", ts, 5000)},
	}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("ws auth: %w", err)
	}

	b.wsConn = conn
	b.wsDone = make(chan struct{})
	go b.readLoop(conn, b.wsDone)
	go b.pingLoop(conn, b.wsDone)

	// order stream is always on
	if err := conn.WriteJSON(map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"orders"},
	}); err != nil {
		return err
	}

	return nil
}

// Subscribe starts the bar streams for the given symbols.
func (b *Bridge) Subscribe(symbols []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn == nil {
		return fmt.Errorf("not connected")
	}

	args := make([]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, "bars."+s)
	}
	b.subscribed = append(b.subscribed, symbols...)

	return b.wsConn.WriteJSON(map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	})
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn == nil {
		return nil
	}
	close(b.wsDone)
	err := b.wsConn.Close()
	b.wsConn = nil
	return err
}

func (b *Bridge) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.mu.Lock()
			_ = conn.WriteJSON(map[string]string{"op": "ping"})
			b.mu.Unlock()
		}
	}
}

type streamEnvelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type orderMessage struct {
	ClientOrderID string  `json:"client_order_id"`
	Status        string  `json:"status"`
	Price         float64 `json:"price"`
	Qty           float64 `json:"qty"`
	Time          int64   `json:"time"`
}

type barMessage struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
	Time   int64   `json:"time"`
}

func (b *Bridge) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				b.logger.Error("ws read failed", zap.Error(err))
			}
			return
		}

		var env streamEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}

		switch {
		case env.Topic == "orders":
			var m orderMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				continue
			}
			kind, ok := eventKind(m.Status)
			if !ok {
				continue
			}
			ev := domain.OrderEvent{
				Kind:    kind,
				OrderID: m.ClientOrderID,
				Price:   m.Price,
				Volume:  m.Qty,
				Time:    time.UnixMilli(m.Time),
			}
			b.mu.Lock()
			callbacks := b.orderCallbacks
			b.mu.Unlock()
			for _, cb := range callbacks {
				cb(ev)
			}

		case strings.HasPrefix(env.Topic, "bars."):
			var m barMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				continue
			}
			bar := domain.Bar{
				Symbol: m.Symbol,
				Time:   time.UnixMilli(m.Time),
				Close:  m.Close,
			}
			b.mu.Lock()
			callbacks := b.barCallbacks
			b.mu.Unlock()
			for _, cb := range callbacks {
				cb(bar)
			}
		}
	}
}

func eventKind(status string) (domain.OrderEventKind, bool) {
	switch status {
	case "registered":
		return domain.OrderEventRegistered, true
	case "partial":
		return domain.OrderEventPartiallyFilled, true
	case "filled":
		return domain.OrderEventFilled, true
	case "canceled":
		return domain.OrderEventCanceled, true
	case "rejected":
		return domain.OrderEventRejected, true
	case "expired":
		return domain.OrderEventExpired, true
	}
	return "", false
}
