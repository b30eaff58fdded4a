package flows

import "github.com/MrEthical07/authd/iphistory"

// Credential is the slice of a user record the flows need. The root engine
// projects its user model into this shape.
type Credential struct {
	UserID        string
	Name          string
	Email         string
	PasswordHash  string
	PasswordLogin bool
	Verified      bool
	IPHistory     []iphistory.Entry
	// Account is the caller's full user record. Flows hand it back untouched.
	Account any
}
