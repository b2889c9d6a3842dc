// Package client assembles the dispatcher, endpoint catalog, credential slot,
// session store, and navigation guard from configuration.
//
// The dispatcher must exist before the session (the session's auth calls go
// through it) while the dispatcher reads its bearer token from the session.
// Open resolves that by building the dispatcher first and installing the
// session as its token source afterwards.
package client
