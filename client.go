package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/bt-bridge/gemini-live/audio"
	"github.com/bt-bridge/gemini-live/shared"
)

// AudioHandler receives one decoded playback buffer (float PCM at
// audio.PlaybackRate).
type AudioHandler func(samples []float32)

// EventHandler receives non-audio session events.
type EventHandler func(event *Event)

// StateHandler is notified on every connection-state change.
type StateHandler func(prev, next State)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}

const (
	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second

	// Model audio bursts exceed the websocket library's default read limit.
	readLimit = 16 << 20
)

// Client owns the duplex session lifecycle. States move
// Disconnected → Connecting → Connected, with Connected → Disconnected on a
// clean close and any state → Error on failure. Both Disconnected and Error
// are re-enterable via a fresh Connect.
//
// Handlers must be registered before Connect and cannot change while a session
// is live.
type Client struct {
	logger shared.LoggerAdapter
	apiKey string
	cfg    SessionConfig

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelCauseFunc
	running bool

	ah AudioHandler
	eh EventHandler
	sh StateHandler
}

func NewClient(logger shared.LoggerAdapter, apiKey string, cfg *SessionConfig) (*Client, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if apiKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	if cfg == nil {
		return nil, shared.ErrNoConfig
	}
	return &Client{
		logger: logger,
		apiKey: apiKey,
		cfg:    cfg.withDefaults(),
		state:  StateDisconnected,
	}, nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) RegisterAudioHandler(handler AudioHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrAlreadyConnected
	}
	if c.ah != nil {
		return shared.ErrAHandlerAlreadySet
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	c.ah = handler
	return nil
}

func (c *Client) RegisterEventHandler(handler EventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrAlreadyConnected
	}
	if c.eh != nil {
		return shared.ErrEHandlerAlreadySet
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	c.eh = handler
	return nil
}

func (c *Client) RegisterStateHandler(handler StateHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrAlreadyConnected
	}
	if c.sh != nil {
		return shared.ErrSHandlerAlreadySet
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	c.sh = handler
	return nil
}

// Connect opens the duplex session: mints an ephemeral token when configured,
// dials the BidiGenerateContent endpoint and sends the setup message. It
// returns with the client in Connecting; the transition to Connected happens
// when the server acknowledges setup. Only valid from Disconnected or Error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return shared.ErrAlreadyConnected
	}
	if c.ah == nil {
		c.mu.Unlock()
		return shared.ErrNoAudioHandler
	}
	c.running = true
	c.mu.Unlock()
	c.transition(StateConnecting)

	auth := "?key=" + url.QueryEscape(c.apiKey)
	if c.cfg.UseEphemeralToken {
		token, err := CreateEphemeralToken(ctx, c.logger, c.apiKey, TokenOptions{})
		if err != nil {
			err = fmt.Errorf("minting ephemeral token: %w", err)
			c.Abort(err)
			return err
		}
		auth = "?access_token=" + url.QueryEscape(token)
	}

	wsURL := c.cfg.BaseURL + bidiGenerateContentPath + auth
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		err = fmt.Errorf("%w: dialing live endpoint: %v", shared.ErrSessionFailed, err)
		c.Abort(err)
		return err
	}
	conn.SetReadLimit(readLimit)

	sessCtx, cancel := context.WithCancelCause(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.ctx = sessCtx
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.writeJSON(c.cfg.setupMessage()); err != nil {
		err = fmt.Errorf("%w: sending setup: %v", shared.ErrSessionFailed, err)
		c.Abort(err)
		return err
	}

	go c.receiveLoop(conn, sessCtx)
	go c.keepaliveLoop(conn, sessCtx)
	return nil
}

// Disconnect closes the session deliberately. Valid while Connecting or
// Connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateConnected && state != StateConnecting {
		return shared.ErrNoSession
	}
	c.logger.Info("disconnecting")
	c.release()
	c.transition(StateDisconnected)
	return nil
}

// Abort releases all session resources and moves to Error. Exported for
// owners whose local resource acquisition (microphone, speaker) fails during
// their connect routine; the session must not outlive its audio pipeline.
func (c *Client) Abort(err error) {
	c.logger.Error("session aborted", err)
	c.release()
	c.transition(StateError)
}

// Send forwards one encoded capture frame. Returns shared.ErrNoSession when no
// session is live; callers forwarding microphone frames drop that silently,
// since the session may legitimately not exist yet.
func (c *Client) Send(blob audio.Blob) error {
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{MimeType: blob.MimeType, Data: blob.Data}},
		},
	}
	if err := c.writeJSON(msg); err != nil {
		return err
	}
	return nil
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	ctx := c.ctx
	c.mu.Unlock()
	if conn == nil {
		return shared.ErrNoSession
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNoSession, err)
	}
	return nil
}

// release tears down the connection and session context. Idempotent and safe
// from any lifecycle state; the receive loop observes the cancelled context
// and exits without re-entering teardown.
func (c *Client) release() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.ctx = nil
	c.cancel = nil
	c.running = false
	c.mu.Unlock()
	if cancel != nil {
		cancel(errors.New("session released"))
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
}

func (c *Client) transition(next State) {
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	sh := c.sh
	c.mu.Unlock()
	c.logger.Info(
		"connection state changed",
		zap.String("prev", prev.String()),
		zap.String("new", next.String()),
	)
	if sh != nil {
		sh(prev, next)
	}
}

func (c *Client) receiveLoop(conn *websocket.Conn, ctx context.Context) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // deliberate local teardown
			}
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.logger.Info("session closed by server")
				c.release()
				c.transition(StateDisconnected)
			} else {
				c.Abort(fmt.Errorf("%w: reading from session: %v", shared.ErrSessionFailed, err))
			}
			return
		}
		var msg serverMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("dropping unparseable server frame", zap.Error(err))
			continue
		}
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *serverMessage) {
	c.mu.Lock()
	ah, eh := c.ah, c.eh
	c.mu.Unlock()

	switch msg.EventType() {
	case ServerEventTypeSetupComplete:
		c.logger.Info("session open")
		c.transition(StateConnected)
	case ServerEventTypeServerContent:
		sc := msg.ServerContent
		if sc.ModelTurn != nil && ah != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData == nil {
					continue
				}
				raw, err := audio.DecodeFrame(p.InlineData.Data)
				if err != nil {
					// One corrupt frame never aborts the session.
					c.logger.Error("decoding inbound audio", err)
					continue
				}
				if len(raw) == 0 {
					continue
				}
				ah(audio.DecodeAudioData(raw))
			}
		}
		if sc.Interrupted {
			c.logger.Info("model interrupted, flushing queued playback")
			if eh != nil {
				eh(&Event{Type: EventInterrupted})
			}
		}
		if sc.TurnComplete {
			c.logger.Debug("model turn complete")
			if eh != nil {
				eh(&Event{Type: EventTurnComplete})
			}
		}
	case ServerEventTypeGoAway:
		c.logger.Warn("server going away", zap.String("timeLeft", msg.GoAway.TimeLeft))
		if eh != nil {
			eh(&Event{Type: EventGoAway, TimeLeft: msg.GoAway.TimeLeft})
		}
	case ServerEventTypeError:
		err := fmt.Errorf("%w: %s (code %d)", shared.ErrSessionFailed, msg.Error.Message, msg.Error.Code)
		if eh != nil {
			eh(&Event{Type: EventError, Err: err})
		}
		c.Abort(err)
	}
}

func (c *Client) keepaliveLoop(conn *websocket.Conn, ctx context.Context) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
			if err := conn.Ping(pingCtx); err != nil && ctx.Err() == nil {
				c.logger.Warn("keepalive ping failed", zap.Error(err))
			}
			cancel()
		}
	}
}
