package entity

// Account is a registered user. Name is immutable after creation; the
// password hash is an opaque credential compared only by the auth service.
type Account struct {
	Name         string
	PasswordHash string
	LoggedIn     bool
}
