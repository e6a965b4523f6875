// Package httputil provides shared HTTP response utilities for handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter
// calls, so error envelopes and replayed responses are written the same way
// on every endpoint.
package httputil
