package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/voxline/realtime-go/events"
	"github.com/voxline/realtime-go/internal/websocket"
)

// connectionURL builds the realtime endpoint URL. The target is selected
// with either ?model=<id> (direct API) or ?deployment=<id> (gateway
// mode).
func connectionURL(config *clientConfig) (string, error) {
	u, err := url.Parse(config.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	if config.deployment != "" {
		q.Set("deployment", config.deployment)
	} else {
		q.Set("model", config.model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens a realtime session: it connects the transport, awaits the
// server's session.created handshake, pushes the configured session state
// through a confirmed session.update, and returns the live session. The
// handshake phase is bounded only by ctx; the configuration phase uses
// the session's event timeout. On any failure the half-open socket is
// torn down and no session is returned.
func Dial(ctx context.Context, opts ...Option) (*Session, error) {
	config := &clientConfig{}
	withDefaults()(config)
	WithOptions(opts...)(config)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	target, err := connectionURL(config)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Add("Authorization", fmt.Sprintf("Bearer %s", config.apiKey))
	headers.Add("OpenAI-Beta", "realtime=v1")

	s := newSession(config)

	// Registered before the transport opens so a fast server cannot win
	// the race against the handshake waiter.
	created, err := s.register(matchType[*events.SessionCreatedEvent](), nil, "")
	if err != nil {
		return nil, err
	}
	defer s.unregister(created.id)

	transport, err := websocket.Connect(ctx, websocket.ClientConfig{
		URL:     target,
		Headers: headers,
		Logger:  config.logger,
		OnText:  s.handleFrame,
		OnClose: s.onTransportClose,
	})
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	s.setTransport(transport)

	teardown := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(closeCtx)
	}

	select {
	case <-ctx.Done():
		teardown()
		return nil, &ConnectionError{Op: "dial", Err: ctx.Err()}
	case r := <-created.ch:
		if r.err != nil {
			teardown()
			return nil, r.err
		}
	}

	if _, err := s.UpdateSession(ctx, config.sessionConfig()); err != nil {
		teardown()
		return nil, fmt.Errorf("session configuration rejected: %w", err)
	}

	s.startAudioPump()

	return s, nil
}
