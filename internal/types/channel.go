package types

// ChannelKind distinguishes guild text channels from direct and group
// conversations.
type ChannelKind string

const (
	ChannelText  ChannelKind = "text"
	ChannelDM    ChannelKind = "dm"
	ChannelGroup ChannelKind = "group"
)

// Channel is one pollable conversation. WorkspaceID is empty for DMs and
// group conversations. LastMessageID anchors incremental fetches.
type Channel struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Kind          ChannelKind `json:"kind"`
	WorkspaceID   string      `json:"workspace_id,omitempty"`
	LastMessageID string      `json:"last_message_id,omitempty"`
	Fetch         FetchStatus `json:"fetch"`
}
