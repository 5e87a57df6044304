package pubsub

import "fmt"

// Channel naming conventions. Both feeds are scoped by the live session
// row ID, so subscribers can filter by the broadcast they are following.
const (
	// Chat/gift/emote append-log feed.
	ChannelChatEvents = "chat:live:%s:events"

	// Row-level viewer presence change feed (advisory).
	ChannelPresenceEvents = "presence:live:%s:events"
)

// Event types carried on the chat feed.
const (
	EventChatAppended = "chat_appended"
)

// Event types carried on the presence feed.
const (
	EventPresenceChanged = "presence_changed"
)

// ChatEventsChannel returns the chat feed channel for a live session.
func ChatEventsChannel(liveID string) string {
	return fmt.Sprintf(ChannelChatEvents, liveID)
}

// PresenceEventsChannel returns the presence feed channel for a live session.
func PresenceEventsChannel(liveID string) string {
	return fmt.Sprintf(ChannelPresenceEvents, liveID)
}
