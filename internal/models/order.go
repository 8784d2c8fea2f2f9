package models

// ProcessingTrackingNumber marks the synthetic package that holds ordered
// but not yet shipped quantity. It is not a real carrier number.
const ProcessingTrackingNumber = "Processing"

type LineItem struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price,omitempty"`
	Currency  string `json:"currency,omitempty"`
	ProductID uint64 `json:"product_id,omitempty"`
	VariantID uint64 `json:"variant_id,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Package is one shipment of an order. Items carry shipment-specific
// quantities, not the full ordered quantity.
type Package struct {
	ID              uint64       `json:"id,omitempty"`
	DisplayName     string       `json:"display_name"`
	TrackingNumber  string       `json:"tracking_number,omitempty"`
	TrackingCompany string       `json:"tracking_company,omitempty"`
	TrackingURL     string       `json:"tracking_url,omitempty"`
	Status          string       `json:"status,omitempty"`
	Items           []LineItem   `json:"items"`
	Events          []TrackEvent `json:"events,omitempty"`
	// OriginalLanguage is filled during enrichment, before any translation.
	OriginalLanguage string `json:"original_language,omitempty"`
}

// Synthetic reports whether the package is the trailing "still processing"
// placeholder rather than a carrier-backed shipment.
func (p Package) Synthetic() bool {
	return p.TrackingNumber == "" || p.TrackingNumber == ProcessingTrackingNumber
}

// Order is the normalized commerce order. Items hold every line item at
// full ordered quantity; Packages split the same items per shipment, with
// the synthetic processing package (if any) appended last.
type Order struct {
	ID                 uint64     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	CreatedAt          string     `json:"created_at,omitempty"`
	DestinationCountry string     `json:"destination_country,omitempty"`
	Items              []LineItem `json:"items"`
	Packages           []Package  `json:"packages"`
}
