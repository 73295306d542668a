package events

// Client event types (application to server).
const (
	TypeSessionUpdate = "session.update"

	TypeInputAudioBufferAppend = "input_audio_buffer.append"
	TypeInputAudioBufferCommit = "input_audio_buffer.commit"
	TypeInputAudioBufferClear  = "input_audio_buffer.clear"

	TypeConversationItemCreate   = "conversation.item.create"
	TypeConversationItemTruncate = "conversation.item.truncate"
	TypeConversationItemDelete   = "conversation.item.delete"

	TypeResponseCreate = "response.create"
	TypeResponseCancel = "response.cancel"
)

// Server event types (server to application).
const (
	TypeError = "error"

	TypeSessionCreated = "session.created"
	TypeSessionUpdated = "session.updated"

	TypeConversationItemCreated   = "conversation.item.created"
	TypeConversationItemTruncated = "conversation.item.truncated"
	TypeConversationItemDeleted   = "conversation.item.deleted"

	TypeConversationItemInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeConversationItemInputAudioTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"

	TypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	TypeInputAudioBufferCleared       = "input_audio_buffer.cleared"
	TypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	TypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	TypeResponseCreated          = "response.created"
	TypeResponseDone             = "response.done"
	TypeResponseOutputItemAdded  = "response.output_item.added"
	TypeResponseOutputItemDone   = "response.output_item.done"
	TypeResponseContentPartAdded = "response.content_part.added"
	TypeResponseContentPartDone  = "response.content_part.done"

	TypeResponseTextDelta = "response.text.delta"
	TypeResponseTextDone  = "response.text.done"

	TypeResponseAudioDelta = "response.audio.delta"
	TypeResponseAudioDone  = "response.audio.done"

	TypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	TypeResponseAudioTranscriptDone  = "response.audio_transcript.done"

	TypeResponseFunctionCallArgumentsDelta = "response.function_call_arguments.delta"
	TypeResponseFunctionCallArgumentsDone  = "response.function_call_arguments.done"

	TypeRateLimitsUpdated = "rate_limits.updated"
)

// Response statuses.
const (
	ResponseStatusInProgress = "in_progress"
	ResponseStatusCompleted  = "completed"
	ResponseStatusCancelled  = "cancelled"
	ResponseStatusFailed     = "failed"
	ResponseStatusIncomplete = "incomplete"
)

// IsTerminalStatus reports whether a response status means no further
// events will arrive for that response.
func IsTerminalStatus(status string) bool {
	switch status {
	case ResponseStatusCompleted, ResponseStatusCancelled, ResponseStatusFailed, ResponseStatusIncomplete:
		return true
	}
	return false
}
