package types

// Snapshot is the durable point of view over one authenticated account:
// the committed credential, the identity it resolves to, and the workspace
// and channel maps discovered from it. Exactly one snapshot exists per
// account at any time.
type Snapshot struct {
	Credential string               `json:"credential"`
	Identity   Identity             `json:"identity"`
	Workspaces map[string]Workspace `json:"workspaces"`
	Channels   map[string]Channel   `json:"channels"`
}

// Clone deep-copies the snapshot. The engine never mutates a snapshot that
// an in-flight request may still observe; transitions clone first.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Credential: s.Credential,
		Identity:   s.Identity,
		Workspaces: make(map[string]Workspace, len(s.Workspaces)),
		Channels:   make(map[string]Channel, len(s.Channels)),
	}
	for id, ws := range s.Workspaces {
		out.Workspaces[id] = ws
	}
	for id, ch := range s.Channels {
		out.Channels[id] = ch
	}
	return out
}

// WorkspaceName resolves a channel's workspace name, empty when the channel
// has no workspace or the workspace is unknown.
func (s *Snapshot) WorkspaceName(ch Channel) string {
	if s == nil || ch.WorkspaceID == "" {
		return ""
	}
	ws, ok := s.Workspaces[ch.WorkspaceID]
	if !ok {
		return ""
	}
	return ws.Name
}
