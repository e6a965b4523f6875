package newsletter

import (
	"fmt"

	"github.com/google/uuid"
)

// DeliveryError reports the send that aborted a delivery.
type DeliveryError struct {
	SubscriberID uuid.UUID
	Recipient    string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send newsletter issue to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
