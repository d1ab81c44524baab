package domain

// Principal is the caller resolved from a bearer credential.
// The zero value is the anonymous caller.
type Principal struct {
	UserID   UserID
	Username string
}

// Anonymous is the principal of a request without a valid credential.
var Anonymous = Principal{}

// IsAnonymous reports whether p carries no user identity.
func (p Principal) IsAnonymous() bool { return p.UserID.IsZero() }
