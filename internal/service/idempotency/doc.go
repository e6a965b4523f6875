// Package idempotency makes a command behave as if it runs at most once per
// (caller, idempotency key).
//
// The Guard validates the key, replays a previously saved response when one
// exists, and otherwise runs the command and saves its response. Store
// implementations live in repository/postgres/, storage/ (DynamoDB) and
// repository/cache/.
//
// Without Options.Locker there is no lock between the lookup and the save:
// two concurrent first submissions of the same key can both run the command.
// The store's uniqueness constraint then rejects the second save. With a
// Locker, expiring locks are renewed for as long as the command runs.
package idempotency
