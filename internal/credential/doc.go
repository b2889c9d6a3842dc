// Package credential persists the bearer token between CLI invocations.
//
// The slot holds exactly one value under a fixed key. FileStore keeps it in a
// small JSON document guarded by an advisory file lock so parallel dymgr
// processes do not interleave writes; SQLiteStore keeps it in a key/value
// table for hosts that already centralize state in a database file. A
// missing slot is never an error: Load reports an empty token.
package credential
