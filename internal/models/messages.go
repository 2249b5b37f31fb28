package models

// MessageType identifies inbound client messages and outbound hub events
// on the collaboration socket. Every frame is a JSON object with a "type".
type MessageType string

// Inbound client messages
const (
	MessageCodeEdit          MessageType = "code_edit"
	MessageCursorMove        MessageType = "cursor_move"
	MessageTypingStart       MessageType = "typing_start"
	MessageTypingStop        MessageType = "typing_stop"
	MessageVoiceOffer        MessageType = "voice_offer"
	MessageVoiceAnswer       MessageType = "voice_answer"
	MessageVoiceICECandidate MessageType = "voice_ice_candidate"
	MessageScreenShareStart  MessageType = "screen_share_start"
	MessageScreenShareStop   MessageType = "screen_share_stop"
	MessageChat              MessageType = "chat_message"
	MessageWhiteboardDraw    MessageType = "whiteboard_draw"
	MessageCircuitEdit       MessageType = "circuit_edit"
)

// Outbound events. The voice_* relay types are forwarded under their inbound name.
const (
	EventSessionJoined      MessageType = "session_joined"
	EventUserJoined         MessageType = "user_joined"
	EventUserLeft           MessageType = "user_left"
	EventCodeEditApplied    MessageType = "code_edit_applied"
	EventSyncRequired       MessageType = "sync_required"
	EventEditRejected       MessageType = "edit_rejected"
	EventCursorMoved        MessageType = "cursor_moved"
	EventTypingStarted      MessageType = "typing_started"
	EventTypingStopped      MessageType = "typing_stopped"
	EventScreenShareStarted MessageType = "screen_share_started"
	EventScreenShareStopped MessageType = "screen_share_stopped"
	EventChatReceived       MessageType = "chat_message_received"
	EventWhiteboardUpdated  MessageType = "whiteboard_updated"
	EventCircuitUpdated     MessageType = "circuit_updated"
	EventSessionEnded       MessageType = "session_ended"
	EventSessionStarted     MessageType = "session_started"
)
