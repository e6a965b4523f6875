// Package subscription implements the two-state subscriber lifecycle.
//
// A signup creates a subscriber in pending_confirmation together with an
// opaque confirmation token and emails a confirmation link. Presenting the
// token moves the subscriber to confirmed. Tokens do not expire and may be
// presented again; confirming an already confirmed subscriber is a no-op.
package subscription
