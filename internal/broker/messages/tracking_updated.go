package messages

import (
	"time"

	"github.com/BearBump/OrderTrack/internal/models"
)

// TrackingUpdated is published whenever the acquisition engine
// materializes fresh carrier data for a tracking number.
type TrackingUpdated struct {
	TrackingNumber string    `json:"tracking_number"`
	CheckedAt      time.Time `json:"checked_at"`

	Status  string `json:"status,omitempty"`
	Carrier string `json:"carrier,omitempty"`

	Events []models.TrackEvent `json:"events,omitempty"`
}
