package carrier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// RawPayload is one aggregator response item for a tracking number, kept
// undecoded. The aggregator emits two very different shapes and the
// acquisition engine owns telling them apart.
type RawPayload = json.RawMessage

var (
	// ErrNotConfigured — нет ключа API. Терминально для всего запроса,
	// ретраи бессмысленны.
	ErrNotConfigured = errors.New("carrier credentials are not configured")

	// ErrNotFound means the aggregator has never seen this number (or it
	// is not registered yet). The engine reacts by registering it.
	ErrNotFound = errors.New("tracking number not found at carrier")
)

// RegistrationError is a carrier-side rejection of a register call for a
// reason other than "already registered".
type RegistrationError struct {
	Code    int
	Message string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("carrier rejected registration (code %d): %s", e.Code, e.Message)
}

// Client talks to the carrier-tracking aggregator. No retries here: the
// acquisition engine owns the register/poll protocol.
type Client interface {
	// Register asks the aggregator to start monitoring a number. An
	// "already registered" rejection is success.
	Register(ctx context.Context, trackingNumber string) error

	// GetTrackInfo fetches the raw aggregator item for a number, or
	// ErrNotFound when the aggregator has no record of it.
	GetTrackInfo(ctx context.Context, trackingNumber string) (RawPayload, error)

	// ChangeLanguage switches the language the aggregator reports events
	// in. Best-effort: the change is asynchronous on the carrier side.
	ChangeLanguage(ctx context.Context, trackingNumber, languageCode string) error
}
