package session

import "dymgr/internal/api"

// State is the authentication phase of a session.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

// Validation selects how a restored token is checked at startup.
type Validation string

const (
	// ValidateNone trusts a persisted token without checking it.
	ValidateNone Validation = "none"
	// ValidateExpiry decodes the token's exp claim locally.
	ValidateExpiry Validation = "expiry"
	// ValidateProfile fetches the profile and demotes only on 401.
	ValidateProfile Validation = "profile"
)

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	User    *api.User
	Token   string
	Loading bool
	State   State
}

// Authenticated reports whether a token is held.
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Result is the outcome of Login and Register. Error is a user-facing message
// and Err keeps the classified cause for errors.Is checks.
type Result struct {
	Success bool
	Error   string
	Err     error
}

func succeeded() Result {
	return Result{Success: true}
}
