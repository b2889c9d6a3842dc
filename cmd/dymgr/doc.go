// Package main hosts the dymgr CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the session (login, logout, register,
// whoami, status) and the endpoint catalog (videos, ai, douyin). It resolves
// configuration once, opens the client runtime lazily, and consults the
// navigation guard before any command bound to a protected route runs, so a
// missing credential fails fast with a pointer to `dymgr login`.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// only surfaced here through commands and flags.
package main
