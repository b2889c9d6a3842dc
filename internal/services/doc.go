// Package services defines shared utilities consumed by the session store, the
// request dispatcher, and the endpoint catalog.
//
// Key responsibilities:
//   - Context helpers that stamp operation names and correlation identifiers
//     so dispatcher requests and log lines can be tied together.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (auth failed, timeout, network, profile fetch) classifiable via
//     errors.Is no matter how many layers add detail.
//
// Use these helpers when wiring new backend calls so error handling and
// observability stay uniform across the client.
package services
