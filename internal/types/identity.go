package types

// Identity is the remote service's view of an authenticated user.
type Identity struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// DisplayName renders the username with its discriminator suffix when the
// service still issues one.
func (i Identity) DisplayName() string {
	if i.Discriminator == "" || i.Discriminator == "0" {
		return i.Username
	}
	return i.Username + "#" + i.Discriminator
}
