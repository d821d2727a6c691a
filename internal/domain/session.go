package domain

// Session is the authenticated state of the client. Token and User are
// either both set or both nil.
type Session struct {
	Token *string `json:"token"`
	User  *User   `json:"user"`
}

// NewSession pairs a token with its user. An empty token or a nil user
// yields the empty session.
func NewSession(token string, user *User) Session {
	if token == "" || user == nil {
		return Session{}
	}
	u := *user
	return Session{Token: &token, User: &u}
}

// IsAuthenticated reports whether a token is present.
func (s Session) IsAuthenticated() bool {
	return s.Token != nil
}

// Valid reports whether the pair invariant holds.
func (s Session) Valid() bool {
	return (s.Token == nil) == (s.User == nil)
}
