// Package newsletter delivers an issue to every confirmed subscriber.
//
// Delivery reads one snapshot of confirmed subscribers and walks it in order,
// one send at a time. A stored address that no longer validates is skipped
// with a warning. A failed send aborts the whole delivery; recipients already
// served are not rolled back.
package newsletter
