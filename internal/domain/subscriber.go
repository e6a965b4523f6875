package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	SubscriberPendingConfirmation SubscriberStatus = "pending_confirmation"
	SubscriberConfirmed           SubscriberStatus = "confirmed"
)

// MaxNameGraphemes is the longest name accepted, counted in user-perceived characters.
const MaxNameGraphemes = 256

const forbiddenNameChars = `()/"<>{}\`

var validate = validator.New()

// SubscriberEmail is an address that passed ParseEmail.
type SubscriberEmail struct{ value string }

func (e SubscriberEmail) String() string { return e.value }

// ParseEmail accepts raw only when it follows standard email address grammar.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if err := validate.Var(raw, "required,email"); err != nil {
		return SubscriberEmail{}, invalid("email", raw, "not a valid subscriber email")
	}
	return SubscriberEmail{value: raw}, nil
}

// SubscriberName is a display name that passed ParseName.
type SubscriberName struct{ value string }

func (n SubscriberName) String() string { return n.value }

// ParseName rejects blank names, names longer than MaxNameGraphemes and names
// containing any of ( ) / " < > { } \.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, invalid("name", raw, "must not be empty")
	}
	if uniseg.GraphemeClusterCount(raw) > MaxNameGraphemes {
		return SubscriberName{}, invalid("name", "", "longer than 256 characters")
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, invalid("name", raw, "contains a forbidden character")
	}
	return SubscriberName{value: raw}, nil
}

// NewSubscriber is a validated signup waiting to be persisted.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// Subscriber is a persisted subscription.
type Subscriber struct {
	ID     uuid.UUID
	Email  SubscriberEmail
	Name   SubscriberName
	Status SubscriberStatus
}

// StoredSubscriber is a row as read back from storage. Its email has not been
// re-validated and may no longer satisfy ParseEmail.
type StoredSubscriber struct {
	ID    uuid.UUID
	Email string
	Name  string
}
