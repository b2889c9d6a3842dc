// Package dispatch is the single point of egress for backend HTTP calls.
//
// Every request built by the endpoint catalog or the session store passes
// through Dispatcher.Do, which resolves the path against the fixed base URL,
// bounds the call with the configured timeout, stamps a correlation ID, and
// attaches `Authorization: Bearer <token>` when the token source currently
// holds a credential. A missing or unreadable token simply means no header.
//
// Failures are classified with the services markers: a blown deadline is
// services.ErrTimeout, a transport failure with no response is
// services.ErrNetwork, and any status >= 400 is an *HTTPError carrying the
// backend's `detail` message.
package dispatch
