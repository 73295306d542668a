package realtime

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/voxline/realtime-go/events"
)

// aggregateKey identifies one streamed content part.
type aggregateKey struct {
	ItemID       string
	ContentIndex int
}

// ResponseAccumulator folds the stream of response.* server events into a
// draft Response. Callers apply every event they receive; the accumulator
// ignores events that belong to other responses. Snapshot produces an
// immutable copy at any point, so the draft is never shared with callers
// mid-mutation.
//
// Merge rules: text deltas concatenate; *.done payloads replace
// wholesale; scalars follow last-non-zero-wins, so an absent value never
// clobbers a present one; composites are adopted when absent locally and
// merged recursively otherwise. Replays of terminal events are idempotent
// for everything except pure concatenation.
type ResponseAccumulator struct {
	mu    sync.Mutex
	draft events.Response
	audio map[aggregateKey][]byte
	done  bool
}

func NewResponseAccumulator() *ResponseAccumulator {
	return &ResponseAccumulator{
		audio: make(map[aggregateKey][]byte),
	}
}

// Done reports whether a terminal response.done has been applied.
func (a *ResponseAccumulator) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Snapshot returns a deep copy of the accumulated response.
func (a *ResponseAccumulator) Snapshot() events.Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyResponse(a.draft)
}

// Audio returns the accumulated PCM for one content part, decoded from
// base64 deltas in arrival order.
func (a *ResponseAccumulator) Audio(itemID string, contentIndex int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	pcm := a.audio[aggregateKey{ItemID: itemID, ContentIndex: contentIndex}]
	out := make([]byte, len(pcm))
	copy(out, pcm)
	return out
}

// Apply merges one server event into the draft. Events unrelated to a
// response, or belonging to a different response than the one being
// accumulated, are no-ops.
func (a *ResponseAccumulator) Apply(evt events.ServerEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e := evt.(type) {
	case *events.ResponseCreatedEvent:
		if !a.sameResponse(e.Response.ID) {
			return nil
		}
		mergeResponse(&a.draft, e.Response)

	case *events.ResponseDoneEvent:
		if !a.sameResponse(e.Response.ID) {
			return nil
		}
		mergeResponse(&a.draft, e.Response)
		a.done = true

	case *events.ResponseOutputItemAddedEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		item, err := a.itemAt(e.OutputIndex)
		if err != nil {
			return err
		}
		mergeItem(item, e.Item)

	case *events.ResponseOutputItemDoneEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		item, err := a.itemAt(e.OutputIndex)
		if err != nil {
			return err
		}
		mergeItem(item, e.Item)

	case *events.ResponseContentPartAddedEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		mergePart(part, e.Part)

	case *events.ResponseContentPartDoneEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		mergePart(part, e.Part)

	case *events.ResponseTextDeltaEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		part.Text += e.Delta

	case *events.ResponseTextDoneEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		part.Text = e.Text

	case *events.ResponseAudioTranscriptDeltaEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		part.Transcript += e.Delta

	case *events.ResponseAudioTranscriptDoneEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		part, err := a.partAt(e.OutputIndex, e.ContentIndex)
		if err != nil {
			return err
		}
		part.Transcript = e.Transcript

	case *events.ResponseAudioDeltaEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		pcm, err := base64.StdEncoding.DecodeString(e.Delta)
		if err != nil {
			return fmt.Errorf("audio delta base64: %w", err)
		}
		key := aggregateKey{ItemID: e.ItemID, ContentIndex: e.ContentIndex}
		a.audio[key] = append(a.audio[key], pcm...)

	case *events.ResponseFunctionCallArgumentsDeltaEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		item, err := a.itemAt(e.OutputIndex)
		if err != nil {
			return err
		}
		item.Arguments += e.Delta

	case *events.ResponseFunctionCallArgumentsDoneEvent:
		if !a.sameResponse(e.ResponseID) {
			return nil
		}
		item, err := a.itemAt(e.OutputIndex)
		if err != nil {
			return err
		}
		item.Arguments = e.Arguments
		if e.Name != "" {
			item.Name = e.Name
		}
		if e.CallID != "" {
			item.CallID = e.CallID
		}
	}

	return nil
}

// sameResponse adopts the first response id seen and rejects events for
// any other response.
func (a *ResponseAccumulator) sameResponse(id string) bool {
	if id == "" {
		return true
	}
	if a.draft.ID == "" {
		a.draft.ID = id
		return true
	}
	return a.draft.ID == id
}

func (a *ResponseAccumulator) itemAt(outputIndex int) (*events.ConversationItem, error) {
	if outputIndex < 0 {
		return nil, fmt.Errorf("negative output_index %d", outputIndex)
	}
	for len(a.draft.Output) <= outputIndex {
		a.draft.Output = append(a.draft.Output, events.ConversationItem{})
	}
	return &a.draft.Output[outputIndex], nil
}

func (a *ResponseAccumulator) partAt(outputIndex, contentIndex int) (*events.ContentPart, error) {
	if contentIndex < 0 {
		return nil, fmt.Errorf("negative content_index %d", contentIndex)
	}
	item, err := a.itemAt(outputIndex)
	if err != nil {
		return nil, err
	}
	for len(item.Content) <= contentIndex {
		item.Content = append(item.Content, events.ContentPart{})
	}
	return &item.Content[contentIndex], nil
}

// mergeResponse merges src into dst: scalars last-non-zero-wins,
// composites adopted or recursively merged, the output list merged
// element-wise by index.
func mergeResponse(dst *events.Response, src events.Response) {
	if src.ID != "" {
		dst.ID = src.ID
	}
	if src.Object != "" {
		dst.Object = src.Object
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.StatusDetails != nil {
		if dst.StatusDetails == nil {
			sd := *src.StatusDetails
			dst.StatusDetails = &sd
		} else {
			mergeStatusDetails(dst.StatusDetails, *src.StatusDetails)
		}
	}
	if src.Usage != nil {
		if dst.Usage == nil {
			u := *src.Usage
			dst.Usage = &u
		} else {
			mergeUsage(dst.Usage, *src.Usage)
		}
	}
	for i, item := range src.Output {
		for len(dst.Output) <= i {
			dst.Output = append(dst.Output, events.ConversationItem{})
		}
		mergeItem(&dst.Output[i], item)
	}
}

func mergeStatusDetails(dst *events.StatusDetails, src events.StatusDetails) {
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Reason != "" {
		dst.Reason = src.Reason
	}
	if src.Error != nil {
		e := *src.Error
		dst.Error = &e
	}
}

func mergeUsage(dst *events.Usage, src events.Usage) {
	if src.TotalTokens != 0 {
		dst.TotalTokens = src.TotalTokens
	}
	if src.InputTokens != 0 {
		dst.InputTokens = src.InputTokens
	}
	if src.OutputTokens != 0 {
		dst.OutputTokens = src.OutputTokens
	}
	if src.InputTokenDetails != nil {
		d := *src.InputTokenDetails
		dst.InputTokenDetails = &d
	}
	if src.OutputTokenDetails != nil {
		d := *src.OutputTokenDetails
		dst.OutputTokenDetails = &d
	}
}

func mergeItem(dst *events.ConversationItem, src events.ConversationItem) {
	if src.ID != "" {
		dst.ID = src.ID
	}
	if src.Object != "" {
		dst.Object = src.Object
	}
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.Role != "" {
		dst.Role = src.Role
	}
	if src.CallID != "" {
		dst.CallID = src.CallID
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Arguments != "" {
		dst.Arguments = src.Arguments
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	for i, part := range src.Content {
		for len(dst.Content) <= i {
			dst.Content = append(dst.Content, events.ContentPart{})
		}
		mergePart(&dst.Content[i], part)
	}
}

func mergePart(dst *events.ContentPart, src events.ContentPart) {
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Text != "" {
		dst.Text = src.Text
	}
	if src.Audio != "" {
		dst.Audio = src.Audio
	}
	if src.Transcript != "" {
		dst.Transcript = src.Transcript
	}
}

func copyResponse(r events.Response) events.Response {
	out := r
	if r.StatusDetails != nil {
		sd := *r.StatusDetails
		if r.StatusDetails.Error != nil {
			e := *r.StatusDetails.Error
			sd.Error = &e
		}
		out.StatusDetails = &sd
	}
	if r.Usage != nil {
		u := *r.Usage
		if r.Usage.InputTokenDetails != nil {
			d := *r.Usage.InputTokenDetails
			u.InputTokenDetails = &d
		}
		if r.Usage.OutputTokenDetails != nil {
			d := *r.Usage.OutputTokenDetails
			u.OutputTokenDetails = &d
		}
		out.Usage = &u
	}
	out.Output = make([]events.ConversationItem, len(r.Output))
	for i, item := range r.Output {
		out.Output[i] = item
		out.Output[i].Content = make([]events.ContentPart, len(item.Content))
		copy(out.Output[i].Content, item.Content)
	}
	return out
}
