package domain

// User is the domain entity for a registered account. PasswordHash is only
// populated by email lookups used during authentication; it never reaches
// a response body.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
}
