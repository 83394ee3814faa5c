// Package storage persists the flat user list backing the account
// store: read once at startup, appended to on registration.
package storage

// UserRecord is one persisted user. Password holds the credential hash,
// not the plaintext.
type UserRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
