package models

// Credentials is the persisted result of a successful login or signup.
type Credentials struct {
	UserID   int64  `json:"user_id"`
	Token    string `json:"auth_token"`
	Username string `json:"username"`
}

// SessionState is the observable login state of the app user. It is always
// replaced as a whole, never field-patched.
type SessionState struct {
	UserID   UserID
	Username string
	LoggedIn bool
}

// Corrupted reports whether the state claims a login without a valid user
// identity. Such a state must trigger a forced logout.
func (s SessionState) Corrupted() bool {
	return s.LoggedIn && !s.UserID.IsAuthenticated()
}
