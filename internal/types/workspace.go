package types

// Workspace is a guild or organization the account belongs to.
type Workspace struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}
