package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection states.
const (
	StateClosed int32 = iota
	StateConnecting
	StateOpen
	StateClosing
)

// ErrNotOpen is returned by Send when the connection is not in the open
// state.
var ErrNotOpen = errors.New("websocket: connection not open")

type HandlerFunc func(data []byte) error

func Json[T any](j func(x T) error) HandlerFunc {
	return func(data []byte) error {
		var t T
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}

		return j(t)
	}
}

type ClientConfig struct {
	URL         string
	DialTimeout time.Duration
	Headers     http.Header
	OnText      func(data []byte) error
	OnBinary    func(data []byte) error
	// OnClose is invoked once when the connection leaves the open state.
	// err is nil for a clean close handshake.
	OnClose func(err error)
	Logger  *slog.Logger
}

type Client struct {
	state    atomic.Int32
	out      chan wsutil.Message
	done     chan struct{}
	doneOnce sync.Once
	closeErr error
	onClose  func(err error)
	logger   *slog.Logger
}

// State returns the current connection state.
func (c *Client) State() int32 {
	return c.state.Load()
}

func (c *Client) setDone(err error) {
	c.doneOnce.Do(func() {
		c.closeErr = err
		c.state.Store(StateClosed)
		close(c.done)
		if c.onClose != nil {
			c.onClose(err)
		}
	})
}

// Send queues a text frame for writing. It fails with ErrNotOpen unless
// the connection is open.
func (c *Client) Send(data []byte) error {
	return c.write(ws.OpText, data)
}

func (c *Client) SendBinary(data []byte) error {
	return c.write(ws.OpBinary, data)
}

func (c *Client) Ping(data []byte) error {
	return c.write(ws.OpPing, data)
}

func (c *Client) write(opcode ws.OpCode, data []byte) error {
	if c.state.Load() != StateOpen {
		return ErrNotOpen
	}
	select {
	case c.out <- wsutil.Message{OpCode: opcode, Payload: data}:
		return nil
	case <-c.done:
		return ErrNotOpen
	}
}

// Close performs the close handshake and waits for the peer, bounded by
// ctx.
func (c *Client) Close(ctx context.Context) error {
	if !c.state.CompareAndSwap(StateOpen, StateClosing) {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("close failed: %w", ctx.Err())
		}
	}

	select {
	case c.out <- wsutil.Message{OpCode: ws.OpClose, Payload: ws.NewCloseFrameBody(ws.StatusNormalClosure, "closing")}:
	case <-c.done:
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.setDone(ctx.Err())
		return fmt.Errorf("close failed: %w", ctx.Err())
	}
}

// Connect dials the endpoint and completes the WebSocket handshake. On
// success the returned client is open with its reader and writer loops
// running. A handshake failure is reported before any frame can be
// delivered, so it is distinguishable from post-open errors.
func Connect(ctx context.Context, config ClientConfig) (*Client, error) {

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("url", config.URL),
	)

	dialTimeout := config.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}

	client := &Client{
		out:     make(chan wsutil.Message, 1000),
		done:    make(chan struct{}),
		onClose: config.OnClose,
		logger:  logger,
	}
	client.state.Store(StateConnecting)

	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := ws.Dialer{
		Timeout: config.DialTimeout,
		Header:  ws.HandshakeHeaderHTTP(config.Headers),
	}
	conn, buf, hs, err := d.Dial(hsCtx, config.URL)
	if err != nil {
		client.state.Store(StateClosed)
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	logger.Debug("handshake complete", slog.Any("handshake", hs))

	// Make sure to recycle the buffer if non-nil:
	if buf != nil {
		defer ws.PutReader(buf)
	}

	client.state.Store(StateOpen)
	logger.Info("connected to websocket")

	input := make(chan wsutil.Message, 1000)

	onTextFunc := config.OnText
	if onTextFunc == nil {
		onTextFunc = func(data []byte) error {
			return nil
		}
	}
	onBinaryFunc := config.OnBinary
	if onBinaryFunc == nil {
		onBinaryFunc = func(data []byte) error {
			return nil
		}
	}

	// socket -> input channel
	go func() {
		for {
			messages, err := wsutil.ReadServerMessage(conn, nil)
			if err != nil {
				if errors.Is(err, io.EOF) {
					client.setDone(io.EOF)
					return
				}
				if client.state.Load() != StateOpen {
					client.setDone(nil)
					return
				}

				logger.Error("ws read failed", slog.Any("err", err))
				client.setDone(err)
				return
			}
			for _, msg := range messages {
				select {
				case input <- msg:
				case <-client.done:
					return
				}
			}
		}
	}()

	// output channel -> socket
	go func() {
		for {
			select {
			case <-client.done:
				_ = conn.Close()
				return
			case msg := <-client.out:
				err := wsutil.WriteClientMessage(conn, msg.OpCode, msg.Payload)
				if err != nil {
					logger.Error("ws write failed", slog.Any("err", err))
					client.setDone(err)
					return
				}
			}
		}
	}()

	// input channel processing
	go func() {
		for {
			select {
			case <-ctx.Done():
				client.setDone(ctx.Err())
				return
			case <-client.done:
				return
			case msg := <-input:

				if ws.OpCode.IsControl(msg.OpCode) {
					logger.Debug("rcv: control", slog.Any("opcode", msg.OpCode))

					if err := wsutil.HandleServerControlMessage(conn, msg); err != nil {
						logger.Error("handling of control messages failed", slog.Any("err", err))
					}

					if msg.OpCode == ws.OpClose {
						logger.Debug("rcv: close", slog.String("reason", string(msg.Payload)))
						client.setDone(nil)
					}

					continue
				}

				switch msg.OpCode {
				case ws.OpText:
					logger.Debug("rcv: text", slog.Int("len", len(msg.Payload)))
					if err := onTextFunc(msg.Payload); err != nil {
						logger.Error("text message handler failed", slog.Any("err", err))
					}

				case ws.OpBinary:
					logger.Debug("rcv: binary", slog.Int("len", len(msg.Payload)))
					if err := onBinaryFunc(msg.Payload); err != nil {
						logger.Error("binary message handler failed", slog.Any("err", err))
					}
				}
			}
		}
	}()

	return client, nil
}
