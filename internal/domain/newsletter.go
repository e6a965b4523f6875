package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterContent is the issue submitted by an author. It is not persisted
// by the publish flow itself.
type NewsletterContent struct {
	Title       string `json:"title"`
	ContentHTML string `json:"content_html"`
	ContentText string `json:"content_text"`
}

// PublishedIssue is the archive record of a newsletter after fan-out.
type PublishedIssue struct {
	ID          uuid.UUID         `json:"id"`
	PublishedBy uuid.UUID         `json:"published_by"`
	Content     NewsletterContent `json:"content"`
	Recipients  int               `json:"recipients"`
	Delivered   int               `json:"delivered"`
	Skipped     int               `json:"skipped"`
	PublishedAt time.Time         `json:"published_at"`
}
