package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voxline/realtime-go/events"
	"github.com/voxline/realtime-go/internal/websocket"
)

// DefaultEventTimeout bounds each SendAndWait call unless overridden per
// session or per call.
const DefaultEventTimeout = 30 * time.Second

// Transport is the duplex connection a Session owns. Exactly one Session
// drives one Transport.
type Transport interface {
	Send(data []byte) error
	Close(ctx context.Context) error
}

// Session is one live realtime connection. It serializes outbound client
// events, demultiplexes inbound server events to subscribers, and
// correlates SendAndWait calls with their completion or error events.
type Session struct {
	config  *clientConfig
	logger  *slog.Logger
	timeout time.Duration

	mu        sync.Mutex
	transport Transport
	waiters   map[int64]*waiter
	nextID    int64
	closed    bool
	closeErr  error
	resource  events.SessionResource

	received chan events.ServerEvent
	sent     chan events.ClientEvent
	errs     chan error

	io       *AudioIO
	pumpOnce sync.Once
}

func newSession(config *clientConfig) *Session {
	s := &Session{
		config:   config,
		logger:   config.logger,
		timeout:  config.eventTimeout,
		waiters:  make(map[int64]*waiter),
		received: make(chan events.ServerEvent, 128),
		sent:     make(chan events.ClientEvent, 128),
		errs:     make(chan error, 16),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultEventTimeout
	}
	if config.audio() {
		s.io = NewAudioIO(config.sampleRate, config.latency())
	}
	return s
}

// Events is the broadcast channel of all received server events. Slow
// consumers miss events rather than stalling the dispatch loop.
func (s *Session) Events() <-chan events.ServerEvent { return s.received }

// Sent is the broadcast channel of all sent client events.
func (s *Session) Sent() <-chan events.ClientEvent { return s.sent }

// Errors carries per-frame protocol errors, uncorrelated server errors
// and connection failures.
func (s *Session) Errors() <-chan error { return s.errs }

// Resource returns the server's view of the session as of the last
// session.created/updated event.
func (s *Session) Resource() events.SessionResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resource
}

// ID returns the server-assigned session id, empty before the handshake.
func (s *Session) ID() string {
	return s.Resource().ID
}

// Audio returns the caller-side audio endpoints: a reader producing agent
// audio at the configured sample rate and a writer accepting user audio.
// Both are nil when the session was configured without audio.
func (s *Session) Audio() (io.Reader, io.Writer) {
	if s.io == nil {
		return nil, nil
	}
	return s.io.userOutputReader, s.io.userInputWriter
}

// Send serializes a client event and writes it to the transport without
// waiting for any acknowledgement.
func (s *Session) Send(evt events.ClientEvent) error {
	s.mu.Lock()
	transport := s.transport
	closed, closeErr := s.closed, s.closeErr
	s.mu.Unlock()

	if closed {
		return &ConnectionError{Op: "send", Err: closeErr}
	}
	if transport == nil {
		return &ConnectionError{Op: "send", Err: websocket.ErrNotOpen}
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.EventType(), err)
	}

	s.publishSent(evt)

	if err := transport.Send(data); err != nil {
		return &ConnectionError{Op: "send", Err: err}
	}
	return nil
}

// SendOption configures a single SendAndWait call.
type SendOption func(*sendConfig)

type sendConfig struct {
	timeout  time.Duration
	observer func(events.ServerEvent)
}

// WithSendTimeout overrides the session's event timeout for one call.
func WithSendTimeout(d time.Duration) SendOption {
	return func(c *sendConfig) {
		c.timeout = d
	}
}

// WithObserver invokes f for every server event received while the call
// is pending, matching or not. f must not block.
func WithObserver(f func(events.ServerEvent)) SendOption {
	return func(c *sendConfig) {
		c.observer = f
	}
}

// SendAndWait sends a client event and blocks until the server event that
// completes it arrives, the server reports an error, the per-call timeout
// elapses, or ctx is cancelled. The waiter is registered before the frame
// is written so a completion racing the registration cannot be missed.
func (s *Session) SendAndWait(ctx context.Context, evt events.ClientEvent, opts ...SendOption) (events.ServerEvent, error) {
	sc := sendConfig{timeout: s.timeout}
	for _, opt := range opts {
		opt(&sc)
	}

	pred, err := correlationFor(evt)
	if err != nil {
		return nil, err
	}

	w, err := s.register(pred, sc.observer, evt.ID())
	if err != nil {
		return nil, err
	}
	defer s.unregister(w.id)

	if err := s.Send(evt); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, sc.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-w.ch:
		return r.evt, r.err
	}
}

func (s *Session) register(pred predicate, observer func(events.ServerEvent), clientID string) (*waiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &ConnectionError{Op: "send", Err: s.closeErr}
	}
	s.nextID++
	w := &waiter{
		id:       s.nextID,
		clientID: clientID,
		pred:     pred,
		observer: observer,
		ch:       make(chan waitResult, 1),
	}
	s.waiters[w.id] = w
	return w, nil
}

func (s *Session) unregister(id int64) {
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
}

func (s *Session) setTransport(t Transport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

// handleFrame is the single entry point for inbound frames. A frame that
// fails to decode is reported on the error channel and skipped; it never
// takes the session down.
func (s *Session) handleFrame(data []byte) error {
	evt, err := events.UnmarshalServerEvent(data)
	if err != nil {
		s.publishError(&ProtocolError{Frame: data, Err: err})
		return nil
	}

	if errEvt, ok := evt.(*events.ErrorEvent); ok {
		s.rejectForServerError(errEvt)
	}

	s.dispatch(evt)

	switch e := evt.(type) {
	case *events.SessionCreatedEvent:
		s.storeResource(e.Session)
	case *events.SessionUpdatedEvent:
		s.storeResource(e.Session)
	case *events.ResponseAudioDeltaEvent:
		s.playAudioDelta(e)
	case *events.SpeechStartedEvent:
		if s.io != nil {
			s.io.ClearOutputBuffer()
		}
	case *events.ResponseDoneEvent:
		if s.config.registry != nil {
			go s.runToolCalls(e)
		}
	}

	return nil
}

// dispatch fans an event out to every registered waiter and to the
// broadcast channel. Each waiter decides independently whether the event
// completes it; dispatch is a broadcast, not a queue.
func (s *Session) dispatch(evt events.ServerEvent) {
	s.mu.Lock()
	pending := make([]*waiter, 0, len(s.waiters))
	for _, w := range s.waiters {
		pending = append(pending, w)
	}
	s.mu.Unlock()

	for _, w := range pending {
		if w.observer != nil {
			w.observer(evt)
		}
		done, err := w.pred(evt)
		if done {
			w.settle(evt, err)
		}
	}

	select {
	case s.received <- evt:
	default:
		s.logger.Debug("event subscriber channel full, dropping", slog.String("type", evt.EventType()))
	}
}

// rejectForServerError rejects the waiter a server error correlates to.
// The error detail's event_id names the offending client event when the
// server knows it; an id that identifies no awaited event means the error
// belongs to a fire-and-forget send and goes to the error channel. Only
// errors carrying no id fall back to the most recently registered waiter.
func (s *Session) rejectForServerError(evt *events.ErrorEvent) {
	serr := serverError(evt.ErrorDetail)

	s.mu.Lock()
	var target *waiter
	if evt.ErrorDetail.EventID != "" {
		for _, w := range s.waiters {
			if w.clientID == evt.ErrorDetail.EventID {
				target = w
				break
			}
		}
	} else {
		for _, w := range s.waiters {
			if target == nil || w.id > target.id {
				target = w
			}
		}
	}
	s.mu.Unlock()

	if target != nil {
		target.settle(nil, serr)
		return
	}
	s.publishError(serr)
}

func (s *Session) storeResource(r events.SessionResource) {
	s.mu.Lock()
	s.resource = r
	s.mu.Unlock()
}

func (s *Session) publishSent(evt events.ClientEvent) {
	select {
	case s.sent <- evt:
	default:
		s.logger.Debug("sent subscriber channel full, dropping", slog.String("type", evt.EventType()))
	}
}

func (s *Session) publishError(err error) {
	select {
	case s.errs <- err:
	default:
		s.logger.Warn("error channel full, dropping", slog.Any("err", err))
	}
}

// fail marks the session dead and rejects every pending waiter with a
// connection error. Safe to call more than once.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	pending := make([]*waiter, 0, len(s.waiters))
	for _, w := range s.waiters {
		pending = append(pending, w)
	}
	s.waiters = make(map[int64]*waiter)
	s.mu.Unlock()

	cerr := &ConnectionError{Op: "read", Err: err}
	for _, w := range pending {
		w.settle(nil, cerr)
	}
	if err != nil && err != io.EOF {
		s.publishError(cerr)
	}
	if s.io != nil {
		s.io.Close()
	}
}

// Close tears the session down: pending waiters are failed, the audio
// pump stops, and the transport performs its close handshake bounded by
// ctx.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()

	s.fail(nil)
	if transport == nil {
		return nil
	}
	return transport.Close(ctx)
}

func (s *Session) onTransportClose(err error) {
	s.fail(err)
}

// --- typed client event helpers ---

// UpdateSession applies a configuration change and waits for the server's
// acknowledgement.
func (s *Session) UpdateSession(ctx context.Context, config events.SessionConfig) (events.SessionResource, error) {
	evt, err := s.SendAndWait(ctx, events.NewSessionUpdateEvent(config))
	if err != nil {
		return events.SessionResource{}, err
	}
	switch e := evt.(type) {
	case *events.SessionUpdatedEvent:
		return e.Session, nil
	case *events.SessionCreatedEvent:
		return e.Session, nil
	}
	return events.SessionResource{}, fmt.Errorf("unexpected acknowledgement %s", evt.EventType())
}

// CreateResponse asks the model to respond and waits for the terminal
// response.done. Streamed deltas in between are observable via Events or
// a WithObserver option.
func (s *Session) CreateResponse(ctx context.Context, payload events.ResponseCreatePayload, opts ...SendOption) (events.Response, error) {
	evt, err := s.SendAndWait(ctx, events.NewResponseCreateEvent(payload), opts...)
	if err != nil {
		return events.Response{}, err
	}
	done, ok := evt.(*events.ResponseDoneEvent)
	if !ok {
		return events.Response{}, fmt.Errorf("unexpected acknowledgement %s", evt.EventType())
	}
	return done.Response, nil
}

// CancelResponse cancels the in-flight response. It does not wait: the
// resulting response.done resolves the CreateResponse waiter, not this
// call.
func (s *Session) CancelResponse(responseID string) error {
	return s.Send(events.NewResponseCancelEvent(responseID))
}

// CreateItem adds a conversation item and waits for its acknowledgement.
func (s *Session) CreateItem(ctx context.Context, item events.ConversationItem) (events.ConversationItem, error) {
	evt, err := s.SendAndWait(ctx, events.NewConversationItemCreateEvent(item))
	if err != nil {
		return events.ConversationItem{}, err
	}
	created, ok := evt.(*events.ConversationItemCreatedEvent)
	if !ok {
		return events.ConversationItem{}, fmt.Errorf("unexpected acknowledgement %s", evt.EventType())
	}
	return created.Item, nil
}

// TruncateItem drops already-sent assistant audio after audioEndMs.
func (s *Session) TruncateItem(ctx context.Context, itemID string, contentIndex, audioEndMs int) error {
	_, err := s.SendAndWait(ctx, events.NewConversationItemTruncateEvent(itemID, contentIndex, audioEndMs))
	return err
}

// DeleteItem removes an item from the conversation.
func (s *Session) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.SendAndWait(ctx, events.NewConversationItemDeleteEvent(itemID))
	return err
}

// UserInput adds a user text message and, when respond is set, triggers a
// model response.
func (s *Session) UserInput(ctx context.Context, text string, respond bool) error {
	_, err := s.CreateItem(ctx, events.ConversationItem{
		Type: "message",
		Role: "user",
		Content: []events.ContentPart{
			{Type: "input_text", Text: text},
		},
	})
	if err != nil {
		return err
	}

	if respond {
		return s.Send(events.NewResponseCreateEvent(events.ResponseCreatePayload{}))
	}
	return nil
}

// AppendAudio base64-encodes raw PCM16 at 24kHz into the input audio
// buffer. No acknowledgement is defined for appends.
func (s *Session) AppendAudio(pcm []byte) error {
	return s.Send(events.NewInputAudioBufferAppendEvent(base64.StdEncoding.EncodeToString(pcm)))
}

// CommitInput closes out the input buffer as one user turn.
func (s *Session) CommitInput(ctx context.Context) error {
	_, err := s.SendAndWait(ctx, events.NewInputAudioBufferCommitEvent())
	return err
}

// ClearInput drops buffered input audio without creating a message.
func (s *Session) ClearInput(ctx context.Context) error {
	_, err := s.SendAndWait(ctx, events.NewInputAudioBufferClearEvent())
	return err
}

func (s *Session) playAudioDelta(evt *events.ResponseAudioDeltaEvent) {
	if s.io == nil {
		return
	}
	pcm, err := base64.StdEncoding.DecodeString(evt.Delta)
	if err != nil {
		s.publishError(&ProtocolError{Err: fmt.Errorf("audio delta base64: %w", err)})
		return
	}
	if _, err := s.io.agentOutputWriter.Write(pcm); err != nil {
		s.logger.Error("failed to write to audio output buffer", slog.Any("err", err))
	}
}

// runToolCalls executes completed function calls from a finished response
// and feeds their outputs back into the conversation, then requests a
// follow-up response.
func (s *Session) runToolCalls(evt *events.ResponseDoneEvent) {
	for _, item := range evt.Response.Output {
		if item.Type != "function_call" || item.Status != "completed" {
			continue
		}

		output := s.config.registry.InvokeRaw(context.Background(), item.Name, item.Arguments)
		s.logger.Debug("tool call",
			slog.String("name", item.Name),
			slog.String("call_id", item.CallID),
			slog.String("output", output),
		)

		if err := s.Send(events.NewConversationItemCreateEvent(events.ConversationItem{
			Type:   "function_call_output",
			CallID: item.CallID,
			Output: output,
		})); err != nil {
			s.publishError(err)
			return
		}
		if err := s.Send(events.NewResponseCreateEvent(events.ResponseCreatePayload{})); err != nil {
			s.publishError(err)
			return
		}
	}
}

// startAudioPump streams user audio from the input buffer to the server
// in fixed latency-sized chunks. It stops when the session closes or the
// input writer is closed.
func (s *Session) startAudioPump() {
	if s.io == nil {
		return
	}
	s.pumpOnce.Do(func() {
		go func() {
			cs := getChunkSize(wireSampleRate, s.config.latency(), 2, 1)
			buf := make([]byte, cs)

			for {
				n, err := s.io.agentInputReader.Read(buf)
				if err != nil {
					if err != io.EOF {
						s.logger.Error("failed to read user audio", slog.Any("err", err))
					}
					return
				}

				if err := s.AppendAudio(buf[:n]); err != nil {
					s.logger.Debug("audio pump stopped", slog.Any("err", err))
					return
				}
			}
		}()
	})
}
