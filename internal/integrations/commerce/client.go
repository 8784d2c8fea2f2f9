package commerce

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrImagesUnavailable — платформа ответила 403 на products: фича
	// недоступна на тарифе магазина. Не фатально, маппинг идёт без картинок.
	ErrImagesUnavailable = errors.New("product images are unavailable")
)

// ProductImages is the image set of one product: the primary image plus
// variant-specific overrides keyed by variant id.
type ProductImages struct {
	PrimaryURL string
	ByVariant  map[uint64]string
}

// Client is the commerce platform collaborator. Implementations return
// ErrOrderNotFound when the platform has no matching order.
type Client interface {
	OrderByName(ctx context.Context, name string) (*Order, error)
	OrderByTracking(ctx context.Context, trackingNumber string) (*Order, error)
	ProductImages(ctx context.Context, productIDs []uint64) (map[uint64]ProductImages, error)
}
