package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxline/realtime-go/events"
	"github.com/voxline/realtime-go/tool"
)

type fakeTransport struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool

	sendCh chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sendCh: make(chan []byte, 32)}
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	frame := append([]byte(nil), data...)
	t.frames = append(t.frames, frame)
	select {
	case t.sendCh <- frame:
	default:
	}
	return nil
}

func (t *fakeTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// awaitFrame blocks until the session has written a frame of the given
// type to the transport.
func (t *fakeTransport) awaitFrame(tb testing.TB, eventType string) map[string]any {
	tb.Helper()
	for {
		select {
		case data := <-t.sendCh:
			var frame map[string]any
			require.NoError(tb, json.Unmarshal(data, &frame))
			if frame["type"] == eventType {
				return frame
			}
		case <-time.After(2 * time.Second):
			tb.Fatalf("no %s frame sent within 2s", eventType)
			return nil
		}
	}
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeTransport) {
	t.Helper()
	config := &clientConfig{}
	withDefaults()(config)
	WithOptions(
		WithKey("test-key"),
		WithModalities(events.ModalityText),
	)(config)
	WithOptions(opts...)(config)

	s := newSession(config)
	transport := newFakeTransport()
	s.setTransport(transport)
	return s, transport
}

func (s *Session) inject(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, s.handleFrame([]byte(frame)))
}

func TestUpdateSessionResolvesOnAcknowledgement(t *testing.T) {
	s, transport := newTestSession(t)

	go func() {
		transport.awaitFrame(t, "session.update")
		s.inject(t, `{"type":"session.updated","event_id":"evt_1","session":{"id":"sess_1","model":"gpt-4o-realtime-preview-2025-06-03","voice":"coral"}}`)
	}()

	resource, err := s.UpdateSession(t.Context(), events.SessionConfig{Voice: events.VoiceCoral})
	require.NoError(t, err)
	require.Equal(t, "sess_1", resource.ID)
	require.Equal(t, "sess_1", s.ID())
}

func TestCreateResponseWaitsForTerminalStatus(t *testing.T) {
	s, transport := newTestSession(t)

	go func() {
		transport.awaitFrame(t, "response.create")
		s.inject(t, `{"type":"response.created","response":{"id":"resp_1","status":"in_progress"}}`)
		s.inject(t, `{"type":"response.text.delta","response_id":"resp_1","item_id":"item_1","delta":"Hello"}`)
		s.inject(t, `{"type":"response.text.delta","response_id":"resp_1","item_id":"item_1","delta":", world"}`)
		s.inject(t, `{"type":"response.done","response":{"id":"resp_1","status":"completed","output":[{"id":"item_1","type":"message","role":"assistant","content":[{"type":"text","text":"Hello, world"}]}],"usage":{"total_tokens":12}}}`)
	}()

	var deltas []string
	resp, err := s.CreateResponse(t.Context(), events.ResponseCreatePayload{},
		WithObserver(func(evt events.ServerEvent) {
			if d, ok := evt.(*events.ResponseTextDeltaEvent); ok {
				deltas = append(deltas, d.Delta)
			}
		}),
	)
	require.NoError(t, err)
	require.Equal(t, "resp_1", resp.ID)
	require.Equal(t, events.ResponseStatusCompleted, resp.Status)
	require.Equal(t, []string{"Hello", ", world"}, deltas)
	require.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestCreateResponseFailedStatusRejects(t *testing.T) {
	s, transport := newTestSession(t)

	go func() {
		transport.awaitFrame(t, "response.create")
		s.inject(t, `{"type":"response.done","response":{"id":"resp_1","status":"failed","status_details":{"type":"failed","error":{"type":"server_error","code":"content_filter","message":"content filtered"}}}}`)
	}()

	_, err := s.CreateResponse(t.Context(), events.ResponseCreatePayload{})
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "failed", serr.Status)
	require.Equal(t, "content_filter", serr.Detail.Code)
}

func TestCancelResolvesOnCancelledStatus(t *testing.T) {
	s, transport := newTestSession(t)

	go func() {
		transport.awaitFrame(t, "response.cancel")
		s.inject(t, `{"type":"response.done","response":{"id":"resp_1","status":"cancelled"}}`)
	}()

	evt, err := s.SendAndWait(t.Context(), events.NewResponseCancelEvent("resp_1"))
	require.NoError(t, err)
	done, ok := evt.(*events.ResponseDoneEvent)
	require.True(t, ok)
	require.Equal(t, events.ResponseStatusCancelled, done.Response.Status)
}

func TestErrorEventRejectsWaiterByEventID(t *testing.T) {
	s, transport := newTestSession(t)

	first := events.NewConversationItemCreateEvent(events.ConversationItem{Type: "message", Role: "user"})
	second := events.NewInputAudioBufferCommitEvent()

	type result struct {
		evt events.ServerEvent
		err error
	}
	firstCh := make(chan result, 1)
	secondCh := make(chan result, 1)

	go func() {
		evt, err := s.SendAndWait(t.Context(), first)
		firstCh <- result{evt, err}
	}()
	transport.awaitFrame(t, "conversation.item.create")

	go func() {
		evt, err := s.SendAndWait(t.Context(), second)
		secondCh <- result{evt, err}
	}()
	transport.awaitFrame(t, "input_audio_buffer.commit")

	// The error names the first client event; only its waiter fails.
	s.inject(t, fmt.Sprintf(
		`{"type":"error","error":{"type":"invalid_request_error","code":"invalid_item","message":"bad item","event_id":%q}}`,
		first.ID(),
	))

	r := <-firstCh
	var serr *ServerError
	require.ErrorAs(t, r.err, &serr)
	require.Equal(t, "invalid_item", serr.Detail.Code)

	select {
	case r := <-secondCh:
		t.Fatalf("second waiter settled prematurely: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	s.inject(t, `{"type":"input_audio_buffer.committed","item_id":"item_9"}`)
	r = <-secondCh
	require.NoError(t, r.err)
	committed, ok := r.evt.(*events.InputAudioBufferCommittedEvent)
	require.True(t, ok)
	require.Equal(t, "item_9", committed.ItemID)
}

func TestErrorEventForUnawaitedEventSparesWaiters(t *testing.T) {
	s, transport := newTestSession(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferCommitEvent())
		errCh <- err
	}()
	transport.awaitFrame(t, "input_audio_buffer.commit")

	// The error names a fire-and-forget append, not the awaited commit:
	// it belongs on the error channel, not on the commit waiter.
	s.inject(t, `{"type":"error","error":{"type":"invalid_request_error","code":"invalid_audio","message":"bad append","event_id":"evt_append_42"}}`)

	select {
	case err := <-errCh:
		t.Fatalf("commit waiter rejected by unrelated error: %v", err)
	case err := <-s.Errors():
		var serr *ServerError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, "invalid_audio", serr.Detail.Code)
	case <-time.After(time.Second):
		t.Fatal("error not published")
	}

	s.inject(t, `{"type":"input_audio_buffer.committed","item_id":"item_1"}`)
	require.NoError(t, <-errCh)
}

func TestErrorEventWithoutEventIDRejectsLatestWaiter(t *testing.T) {
	s, transport := newTestSession(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferClearEvent())
		errCh <- err
	}()
	transport.awaitFrame(t, "input_audio_buffer.clear")

	s.inject(t, `{"type":"error","error":{"type":"invalid_request_error","message":"nothing to clear"}}`)

	var serr *ServerError
	require.ErrorAs(t, <-errCh, &serr)
	require.Equal(t, "nothing to clear", serr.Detail.Message)
}

func TestUncorrelatedServerErrorGoesToErrorChannel(t *testing.T) {
	s, _ := newTestSession(t)

	s.inject(t, `{"type":"error","error":{"type":"server_error","message":"internal hiccup"}}`)

	select {
	case err := <-s.Errors():
		var serr *ServerError
		require.ErrorAs(t, err, &serr)
	case <-time.After(time.Second):
		t.Fatal("no error published")
	}
}

func TestSendAndWaitTimeout(t *testing.T) {
	s, _ := newTestSession(t)

	start := time.Now()
	_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferCommitEvent(),
		WithSendTimeout(50*time.Millisecond))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestTimeoutDoesNotDisturbOtherWaiters(t *testing.T) {
	s, transport := newTestTimeoutSession(t)

	itemCh := make(chan error, 1)
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewConversationItemCreateEvent(events.ConversationItem{Type: "message"}))
		itemCh <- err
	}()
	transport.awaitFrame(t, "conversation.item.create")

	_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferCommitEvent(),
		WithSendTimeout(50*time.Millisecond))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	s.inject(t, `{"type":"conversation.item.created","item":{"id":"item_1","type":"message"}}`)
	require.NoError(t, <-itemCh)
}

// newTestTimeoutSession is newTestSession with a generous session timeout
// so only explicit per-call timeouts fire.
func newTestTimeoutSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	return newTestSession(t, WithEventTimeout(10*time.Second))
}

func TestCloseRejectsPendingWaiters(t *testing.T) {
	s, transport := newTestSession(t)

	results := make(chan error, 2)
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferCommitEvent())
		results <- err
	}()
	transport.awaitFrame(t, "input_audio_buffer.commit")
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewConversationItemDeleteEvent("item_1"))
		results <- err
	}()
	transport.awaitFrame(t, "conversation.item.delete")

	require.NoError(t, s.Close(t.Context()))
	require.True(t, transport.isClosed())

	for i := 0; i < 2; i++ {
		var cerr *ConnectionError
		require.ErrorAs(t, <-results, &cerr)
	}

	// The session stays dead: further sends fail immediately.
	err := s.Send(events.NewInputAudioBufferCommitEvent())
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
}

func TestTransportFailureRejectsWaiters(t *testing.T) {
	s, transport := newTestSession(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferCommitEvent())
		errCh <- err
	}()
	transport.awaitFrame(t, "input_audio_buffer.commit")

	s.onTransportClose(errors.New("connection reset by peer"))

	var cerr *ConnectionError
	require.ErrorAs(t, <-errCh, &cerr)
	require.ErrorContains(t, cerr, "connection reset by peer")
}

func TestMalformedFrameDoesNotKillSession(t *testing.T) {
	s, _ := newTestSession(t)

	s.inject(t, `{"type":"rate_limits.updated","rate_limits":[{"name":"requests","limit":100,"remaining":99}]}`)
	s.inject(t, `{not even json`)
	s.inject(t, `{"type":"session.paused"}`)
	s.inject(t, `{"type":"input_audio_buffer.cleared"}`)

	var perrs int
	for i := 0; i < 2; i++ {
		select {
		case err := <-s.Errors():
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			perrs++
		case <-time.After(time.Second):
			t.Fatal("missing protocol error")
		}
	}
	require.Equal(t, 2, perrs)

	// Both well-formed frames still made it to the broadcast channel.
	types := []string{(<-s.Events()).EventType(), (<-s.Events()).EventType()}
	require.Equal(t, []string{events.TypeRateLimitsUpdated, events.TypeInputAudioBufferCleared}, types)
}

func TestWaiterSettlesExactlyOnce(t *testing.T) {
	s, _ := newTestSession(t)

	pred, err := correlationFor(events.NewInputAudioBufferCommitEvent())
	require.NoError(t, err)
	w, err := s.register(pred, nil, "evt_c1")
	require.NoError(t, err)
	defer s.unregister(w.id)

	s.inject(t, `{"type":"input_audio_buffer.committed","item_id":"item_1"}`)
	s.inject(t, `{"type":"input_audio_buffer.committed","item_id":"item_2"}`)

	r := <-w.ch
	require.NoError(t, r.err)
	committed := r.evt.(*events.InputAudioBufferCommittedEvent)
	require.Equal(t, "item_1", committed.ItemID)

	select {
	case r := <-w.ch:
		t.Fatalf("waiter settled twice: %+v", r)
	default:
	}
}

func TestSendAndWaitWithoutCompletionEvent(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.SendAndWait(t.Context(), events.NewInputAudioBufferAppendEvent("AAAA"))
	require.ErrorIs(t, err, ErrNoCompletion)
}

func TestSendPublishesSentEvents(t *testing.T) {
	s, transport := newTestSession(t)

	evt := events.NewConversationItemDeleteEvent("item_1")
	require.NoError(t, s.Send(evt))

	sent := <-s.Sent()
	require.Equal(t, events.TypeConversationItemDelete, sent.EventType())
	require.Equal(t, evt.ID(), sent.ID())

	frame := transport.awaitFrame(t, "conversation.item.delete")
	require.Equal(t, "item_1", frame["item_id"])
}

func TestCompletedFunctionCallsRunRegisteredTools(t *testing.T) {
	registry := tool.NewRegistry()
	registry.MustRegister(tool.Tool{
		Name:        "get_weather",
		Description: "Current weather for a city.",
		Parameters: tool.Object(map[string]any{
			"city": tool.String("City name"),
		}, "city"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"city": args["city"], "temp_c": 21}, nil
		},
	})

	s, transport := newTestSession(t, WithRegistry(registry))

	s.inject(t, `{"type":"response.done","response":{"id":"resp_1","status":"completed","output":[{"id":"item_1","type":"function_call","status":"completed","call_id":"call_1","name":"get_weather","arguments":"{\"city\":\"Berlin\"}"}]}}`)

	frame := transport.awaitFrame(t, "conversation.item.create")
	item := frame["item"].(map[string]any)
	require.Equal(t, "function_call_output", item["type"])
	require.Equal(t, "call_1", item["call_id"])
	require.Contains(t, item["output"], "Berlin")

	transport.awaitFrame(t, "response.create")
}

func TestUserInputCreatesItemAndOptionalResponse(t *testing.T) {
	s, transport := newTestSession(t)

	go func() {
		transport.awaitFrame(t, "conversation.item.create")
		s.inject(t, `{"type":"conversation.item.created","item":{"id":"item_1","type":"message","role":"user"}}`)
	}()

	require.NoError(t, s.UserInput(t.Context(), "hello there", true))
	transport.awaitFrame(t, "response.create")
}
