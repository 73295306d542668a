package realtime

import (
	"errors"
	"sync"

	"github.com/voxline/realtime-go/events"
)

// ErrNoCompletion is returned by SendAndWait for client events that have
// no defined completion event (e.g. input_audio_buffer.append). Use Send
// for those.
var ErrNoCompletion = errors.New("realtime: no completion event defined for this client event")

// predicate tests an inbound server event against a pending correlation.
// done reports a terminal match; a non-nil err means the terminal outcome
// is a failure (e.g. a response that finished cancelled or failed).
type predicate func(evt events.ServerEvent) (done bool, err error)

type waitResult struct {
	evt events.ServerEvent
	err error
}

// waiter is an ephemeral one-shot subscription registered per SendAndWait
// call. It settles exactly once: resolution, rejection and cancellation
// are mutually exclusive.
type waiter struct {
	id       int64
	clientID string // event_id of the originating client event
	pred     predicate
	observer func(events.ServerEvent)
	ch       chan waitResult
	once     sync.Once
}

func (w *waiter) settle(evt events.ServerEvent, err error) {
	w.once.Do(func() {
		w.ch <- waitResult{evt: evt, err: err}
	})
}

// correlationFor maps a client event to the predicate recognizing its
// terminal server event.
func correlationFor(evt events.ClientEvent) (predicate, error) {
	switch evt.(type) {
	case events.SessionUpdateEvent, *events.SessionUpdateEvent:
		return func(e events.ServerEvent) (bool, error) {
			switch e.(type) {
			case *events.SessionUpdatedEvent, *events.SessionCreatedEvent:
				return true, nil
			}
			return false, nil
		}, nil

	case events.ConversationItemCreateEvent, *events.ConversationItemCreateEvent:
		return matchType[*events.ConversationItemCreatedEvent](), nil

	case events.ConversationItemTruncateEvent, *events.ConversationItemTruncateEvent:
		return matchType[*events.ConversationItemTruncatedEvent](), nil

	case events.ConversationItemDeleteEvent, *events.ConversationItemDeleteEvent:
		return matchType[*events.ConversationItemDeletedEvent](), nil

	case events.InputAudioBufferCommitEvent, *events.InputAudioBufferCommitEvent:
		return matchType[*events.InputAudioBufferCommittedEvent](), nil

	case events.InputAudioBufferClearEvent, *events.InputAudioBufferClearEvent:
		return matchType[*events.InputAudioBufferClearedEvent](), nil

	case events.ResponseCreateEvent, *events.ResponseCreateEvent:
		// Resolves only on a terminal status. A response.created or an
		// in-progress response.done keeps the waiter listening; terminal
		// but unsuccessful statuses reject with the server's status
		// detail.
		return func(e events.ServerEvent) (bool, error) {
			done, ok := e.(*events.ResponseDoneEvent)
			if !ok {
				return false, nil
			}
			if !events.IsTerminalStatus(done.Response.Status) {
				return false, nil
			}
			if done.Response.Status != events.ResponseStatusCompleted {
				return true, responseError(done.Response)
			}
			return true, nil
		}, nil

	case events.ResponseCancelEvent, *events.ResponseCancelEvent:
		// Any terminal status acknowledges a cancel, including
		// "cancelled" itself.
		return func(e events.ServerEvent) (bool, error) {
			done, ok := e.(*events.ResponseDoneEvent)
			if !ok {
				return false, nil
			}
			return events.IsTerminalStatus(done.Response.Status), nil
		}, nil
	}

	return nil, ErrNoCompletion
}

func matchType[T events.ServerEvent]() predicate {
	return func(e events.ServerEvent) (bool, error) {
		_, ok := e.(T)
		return ok, nil
	}
}
