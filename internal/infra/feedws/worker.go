// Package feedws turns the market-data WebSocket stream into typed events.
// One worker subscribes to the primary instrument plus its auxiliary and
// risk symbols and pushes everything into the sequencer inbox.
package feedws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"maker_go/internal/event"
	"maker_go/internal/infra"
	"maker_go/pkg/quant"
)

// Pusher is the sequencer-facing sink for decoded events.
type Pusher interface {
	Push(ev event.Event)
}

// Config identifies the stream and the symbols to subscribe.
type Config struct {
	URL        string
	Symbol     string
	Aux1Symbol string
	Aux2Symbol string
	RiskSymbol string
	DomDepth   int
}

// wireMessage is the feed's envelope. Quotes for non-primary symbols only
// refresh the cached aux/risk values; the primary quote emits a tick.
// Ts is json.Number because venues send millisecond timestamps both quoted
// and bare.
type wireMessage struct {
	Type   string       `json:"type"`
	Symbol string       `json:"symbol"`
	Ts     json.Number  `json:"ts"`
	Price  float64      `json:"price"`
	Size   float64      `json:"size"`
	Side   string       `json:"side"`
	Bids   [][2]float64 `json:"bids"`
	Asks   [][2]float64 `json:"asks"`
}

// Worker handles the feed WebSocket connection using BaseWSWorker.
type Worker struct {
	base *infra.BaseWSWorker
	cfg  Config

	pusher Pusher
	seq    *uint64

	// Last seen values for the non-primary symbols. Only touched from the
	// read loop goroutine.
	aux1 *float64
	aux2 *float64
	risk *float64
}

// NewWorker creates a feed gateway worker.
func NewWorker(cfg Config, pusher Pusher, seq *uint64) *Worker {
	w := &Worker{cfg: cfg, pusher: pusher, seq: seq}
	w.base = infra.NewBaseWSWorker(w)
	return w
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return "FEED" }

// GetURL returns the feed WebSocket endpoint.
func (w *Worker) GetURL() string { return w.cfg.URL }

// Connect starts the WebSocket connection.
func (w *Worker) Connect(ctx context.Context) error {
	w.base.Start(ctx)
	return nil
}

// Disconnect terminates the connection.
func (w *Worker) Disconnect() {
	w.base.Stop()
}

// OnConnect subscribes to all configured symbols. Control messages go
// through the shared limiter so reconnect storms cannot spam the venue.
func (w *Worker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	symbols := []string{w.cfg.Symbol}
	for _, s := range []string{w.cfg.Aux1Symbol, w.cfg.Aux2Symbol, w.cfg.RiskSymbol} {
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	sub := map[string]any{
		"op":      "subscribe",
		"symbols": symbols,
		"depth":   w.cfg.DomDepth,
	}
	b, _ := json.Marshal(sub)

	infra.GetFeedControlLimiter().Wait()
	return w.base.Write(websocket.TextMessage, b)
}

// OnMessage decodes one feed frame and pushes the resulting event.
func (w *Worker) OnMessage(ctx context.Context, msg []byte) {
	var m wireMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Debug("unparseable feed frame", slog.Any("error", err))
		return
	}

	switch m.Type {
	case "quote":
		w.handleQuote(m)
	case "trade":
		w.handleTrade(m)
	case "depth":
		w.handleDepth(m)
	}
}

func (w *Worker) handleQuote(m wireMessage) {
	if m.Price <= 0 {
		return
	}

	switch m.Symbol {
	case w.cfg.Aux1Symbol:
		w.aux1 = cloneF(m.Price)
		return
	case w.cfg.Aux2Symbol:
		w.aux2 = cloneF(m.Price)
		return
	case w.cfg.RiskSymbol:
		w.risk = cloneF(m.Price)
		return
	case w.cfg.Symbol:
	default:
		return
	}

	ev := event.AcquireTickEvent()
	ev.Seq = quant.NextSeq(w.seq)
	ev.Ts = parseTs(m.Ts)
	ev.Primary = m.Price
	ev.Aux1 = w.aux1
	ev.Aux2 = w.aux2
	ev.Risk = w.risk
	w.pusher.Push(ev)
}

func (w *Worker) handleTrade(m wireMessage) {
	if m.Symbol != w.cfg.Symbol || m.Price <= 0 || m.Size <= 0 {
		return
	}
	w.pusher.Push(event.TradeEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(w.seq), Ts: parseTs(m.Ts)},
		Price:     m.Price,
		Volume:    m.Size,
		Side:      m.Side,
	})
}

func (w *Worker) handleDepth(m wireMessage) {
	if m.Symbol != w.cfg.Symbol || len(m.Bids) == 0 || len(m.Asks) == 0 {
		return
	}

	depth := w.cfg.DomDepth
	if depth <= 0 {
		depth = 10
	}

	ev := event.AcquireDomSnapshot()
	ev.Seq = quant.NextSeq(w.seq)
	ev.Ts = parseTs(m.Ts)
	ev.BestBid = m.Bids[0][0]
	ev.BestAsk = m.Asks[0][0]
	for i, lvl := range m.Bids {
		if i >= depth {
			break
		}
		ev.Bids = append(ev.Bids, event.Level{Price: lvl[0], Volume: lvl[1]})
	}
	for i, lvl := range m.Asks {
		if i >= depth {
			break
		}
		ev.Asks = append(ev.Asks, event.Level{Price: lvl[0], Volume: lvl[1]})
	}
	w.pusher.Push(ev)
}

// OnPing keeps the connection alive with a control-frame ping.
func (w *Worker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, pingDeadline())
}

func pingDeadline() time.Time { return time.Now().Add(5 * time.Second) }

// parseTs reads the venue's millisecond timestamp. A frame without a usable
// timestamp still carries a usable price, so it maps to zero rather than a
// drop.
func parseTs(n json.Number) quant.TimeStamp {
	ts, err := quant.ParseTimeStamp(n.String())
	if err != nil {
		return 0
	}
	return ts
}

func cloneF(v float64) *float64 { return &v }
