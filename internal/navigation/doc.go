// Package navigation holds the route table and the guard consulted before a
// protected route is entered.
//
// The guard only checks that a persisted token exists. It never validates the
// token; an expired token passes and fails later at the first backend call.
package navigation
