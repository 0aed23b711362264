package headfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dexmetrics/internal/infra"
)

const (
	maxRetries  = 10
	baseDelay   = 1 * time.Second
	maxDelay    = 60 * time.Second
	readTimeout = 90 * time.Second
)

// blockEvent is the ledger daemon's new-block notification.
type blockEvent struct {
	Type       string `json:"type"` // new_block
	BlockIndex int64  `json:"block_index"`
	BlockTime  int64  `json:"block_time"`
}

// HeadSink receives the network chain head as the feed observes it.
type HeadSink interface {
	SetNetworkHead(ctx context.Context, block int64) error
}

// Feed follows the ledger daemon's block event stream over a websocket and
// keeps the sink's network head current. The compiler compares that head
// against the highest indexed block to decide whether it may run.
type Feed struct {
	url  string
	sink HeadSink
	log  *slog.Logger

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(url string, sink HeadSink, log *slog.Logger) *Feed {
	return &Feed{url: url, sink: sink, log: log}
}

// Connect starts the follower goroutine.
func (f *Feed) Connect(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.connectionLoop(ctx)
	return nil
}

func (f *Feed) connectionLoop(ctx context.Context) {
	defer f.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			f.log.Warn("block feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount))
			delay := calculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			f.readLoop(ctx)
		}
	}
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	f.mu.Unlock()
	infra.GlobalMetrics.SetFeedConnected(true)

	if err := f.subscribe(); err != nil {
		f.closeConnection()
		return err
	}

	f.log.Info("block feed connected", slog.String("url", f.url))
	return nil
}

func (f *Feed) subscribe() error {
	msg := map[string]interface{}{"subscribe": "blocks"}
	b, _ := json.Marshal(msg)
	return f.threadSafeWrite(websocket.TextMessage, b)
}

func (f *Feed) threadSafeWrite(msgType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.conn == nil {
		return fmt.Errorf("no conn")
	}
	return f.conn.WriteMessage(msgType, data)
}

func (f *Feed) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		if f.conn == nil {
			f.mu.RUnlock()
			return
		}
		f.conn.SetReadDeadline(time.Now().Add(readTimeout))
		f.mu.RUnlock()

		_, msg, err := f.conn.ReadMessage()
		if err != nil {
			f.closeConnection()
			return
		}
		f.handleMessage(ctx, msg)
	}
}

func (f *Feed) handleMessage(ctx context.Context, msg []byte) {
	var ev blockEvent
	if json.Unmarshal(msg, &ev) != nil || ev.Type != "new_block" {
		return
	}
	if ev.BlockIndex <= 0 {
		return
	}
	if err := f.sink.SetNetworkHead(ctx, ev.BlockIndex); err != nil {
		f.log.Error("recording network head failed",
			slog.Int64("block", ev.BlockIndex),
			slog.Any("error", err))
		return
	}
	f.log.Debug("network head advanced", slog.Int64("block", ev.BlockIndex))
}

func (f *Feed) closeConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connected = false
	infra.GlobalMetrics.SetFeedConnected(false)
}

// IsConnected reports whether the feed currently holds a live connection.
func (f *Feed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

// Disconnect stops the follower and waits for it to exit.
func (f *Feed) Disconnect() {
	if f.cancel != nil {
		f.cancel()
	}
	f.closeConnection()
	f.wg.Wait()
}

func calculateBackoff(retryCount int) time.Duration {
	// cap retry count to prevent overflow (2^6 = 64s > max 60s)
	if retryCount > 6 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
