// Package session owns the single in-memory record of who is logged in and
// keeps it synchronized with the persisted credential slot.
//
// A Store is constructed once per process from the credential slot: a present
// token starts the session Authenticated, otherwise Anonymous. Login exchanges
// credentials for a bearer token, persists it, and then fetches the profile on
// a best-effort basis. Logout clears memory and the slot without a network
// call. The Store implements dispatch.TokenSource so every outbound request
// carries the current token.
//
// Login and Register never return errors directly; they return a Result whose
// Error field carries the backend's detail message or a generic fallback.
// Profile fetch failures are logged and absorbed so they never tear down a
// valid session.
//
// Overlapping logins for the same username share one token exchange. A login
// for a different username while one is in flight is rejected with
// services.ErrLoginInProgress.
package session
