package models

// Состояние регистрации трека у агрегатора. Пересчитывается на каждый
// запрос, нигде не хранится.
const (
	RegistrationUnregistered = "UNREGISTERED"
	RegistrationRegistering  = "REGISTERING"
	RegistrationNoData       = "REGISTERED_NO_DATA"
	RegistrationWithData     = "REGISTERED_WITH_DATA"
)

// TrackEvent is a single carrier scan. Timestamp stays a string: carriers
// mix ISO and their own local formats, and we render it as-is.
type TrackEvent struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// TrackingResult is the per-request outcome of the acquisition engine.
// Built fresh on every call, never reused across requests.
type TrackingResult struct {
	OK             bool         `json:"ok"`
	TrackingNumber string       `json:"tracking_number"`
	Status         string       `json:"status,omitempty"`
	Carrier        string       `json:"carrier,omitempty"`
	Registration   string       `json:"registration,omitempty"`
	Events         []TrackEvent `json:"events,omitempty"`
	// OriginalLanguage — язык событий до перевода (эвристика по алфавиту).
	OriginalLanguage string `json:"original_language,omitempty"`
	Error            string `json:"error,omitempty"`
}
