package wsfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"RaceCommentator/internal/metrics"
	"RaceCommentator/internal/race"
	"RaceCommentator/internal/telemetry"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	_ telemetry.Source = (*Client)(nil)
	_ race.Camera      = (*Client)(nil)
)

const (
	minBackoff   = 500 * time.Millisecond
	maxBackoff   = 10 * time.Second
	writeTimeout = 2 * time.Second
)

// Command - управляющее сообщение мосту симулятора.
type Command struct {
	Cmd   string `json:"cmd"`
	CarID *int   `json:"carId,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// Client подключается к мосту симулятора по WebSocket, читает кадры телеметрии в Feed
// и отправляет обратно команды камеры. Переподключается, пока контекст жив.
type Client struct {
	url     string
	token   string
	feed    *telemetry.Feed
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	dialer  websocket.Dialer

	mu   sync.Mutex // сериализует запись в conn
	conn *websocket.Conn
	mode string // режим камеры, повторяется при каждом подключении

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(url, token string, feed *telemetry.Feed, m *metrics.Metrics, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		url:     url,
		token:   token,
		feed:    feed,
		metrics: m,
		logger:  logger,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Start запускает цикл подключения в отдельной горутине и немедленно возвращается.
func (c *Client) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop обрывает соединение и ждёт завершения цикла.
func (c *Client) Stop(ctx context.Context) error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (c *Client) Addr() string { return c.url }

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	backoff := minBackoff
	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warnw("Telemetry bridge unavailable", "url", c.url, "retryIn", backoff.String(), "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff
		c.logger.Infow("Telemetry bridge connected", "url", c.url)

		c.setConn(conn)
		c.restoreMode()
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err = c.readLoop(conn)
		stop()
		c.setConn(nil)
		_ = conn.Close()
		if ctx.Err() == nil {
			c.logger.Warnw("Telemetry bridge disconnected", "url", c.url, "error", err)
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: HTTP %d: %w", c.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	return conn, nil
}

// readLoop читает кадры до ошибки соединения. Битые кадры пропускаются.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		frame, err := telemetry.DecodeFrame(bytes.NewReader(data))
		if err == nil {
			err = c.feed.Apply(frame)
		}
		if err != nil {
			c.logger.Warnw("Telemetry frame rejected", "error", err)
			continue
		}
		c.metrics.FrameReceived()
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// Focus просит мост навести камеру на машину. false - нет соединения или запись не удалась.
func (c *Client) Focus(carID int) bool {
	return c.send(Command{Cmd: "focus", CarID: &carID}) == nil
}

// SetMode переключает режим камеры хоста. Режим запоминается и отправляется заново
// после переподключения, так что его можно задать до Start.
func (c *Client) SetMode(mode string) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	if err := c.send(Command{Cmd: "camera", Mode: mode}); err != nil {
		c.logger.Debugw("Camera mode not sent", "mode", mode, "error", err)
	}
}

func (c *Client) restoreMode() {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()
	if mode == "" {
		return
	}
	if err := c.send(Command{Cmd: "camera", Mode: mode}); err != nil {
		c.logger.Warnw("Camera mode not restored", "mode", mode, "error", err)
	}
}

var errNotConnected = errors.New("wsfeed: not connected")

func (c *Client) send(cmd Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}
