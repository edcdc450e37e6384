package models

import "time"

// Identity is the caller as asserted by a verified bearer token
type Identity struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
}

// DisplayName is the name to store for a new user, nil when the token
// carries none.
func (i *Identity) DisplayName() *string {
	if i.Name == "" {
		return nil
	}
	name := i.Name
	return &name
}
