// Package api is the typed endpoint catalog for the works management backend.
//
// Every method is a direct method+path+payload mapping issued through a
// Dispatcher; nothing here retries, caches, or inspects the session. Errors
// returned by the dispatcher (timeouts, transport failures, *dispatch.HTTPError)
// are propagated unmodified so callers can classify them with errors.Is.
//
// # Services
//
// AuthService: token exchange, registration, current profile, and the Douyin
// OAuth handoff (auth URL and callback).
//
// VideoService: list, upload (multipart), get, update, delete.
//
// AIService: text, title, description, and image generation. The backend
// reads these inputs from the query string.
//
// DouyinService: remote video listing, publishing, and publish task status.
//
// # Design Notes
//
// Timestamps are kept as the strings the backend emits. They are naive
// ISO-8601 values without a zone, which encoding/json cannot decode into
// time.Time; ParseTimestamp converts them when a caller needs a time value.
package api
