// Package ordermap converts a raw commerce-platform order into the
// normalized Order/Package model. Real packages come from fulfillments;
// ordered-but-unshipped quantity ends up in one trailing synthetic
// "Processing" package.
package ordermap

import (
	"fmt"
	"strings"

	"github.com/BearBump/OrderTrack/internal/integrations/commerce"
	"github.com/BearBump/OrderTrack/internal/models"
)

// MapOrder builds the normalized order. images may be nil: image lookup
// failures are non-fatal and the mapping simply proceeds without them.
func MapOrder(raw *commerce.Order, images map[uint64]commerce.ProductImages) *models.Order {
	byID := make(map[uint64]models.LineItem, len(raw.LineItems))
	items := make([]models.LineItem, 0, len(raw.LineItems))
	for _, li := range raw.LineItems {
		item := models.LineItem{
			ID:        li.ID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.Price,
			Currency:  raw.Currency,
			ProductID: li.ProductID,
			VariantID: li.VariantID,
			ImageURL:  imageURL(images, li.ProductID, li.VariantID),
		}
		byID[item.ID] = item
		items = append(items, item)
	}

	fulfilled := make(map[uint64]int)
	var pkgs []models.Package
	seq := 0
	for _, f := range raw.Fulfillments {
		if f.TrackingNumber == "" {
			// Фулфилмент без трек-номера не показываем как посылку.
			continue
		}
		seq++
		p := models.Package{
			ID:              f.ID,
			DisplayName:     fmt.Sprintf("Package #%d", seq),
			TrackingNumber:  f.TrackingNumber,
			TrackingCompany: f.TrackingCompany,
			TrackingURL:     f.TrackingURL,
			Status:          f.Status,
		}
		if p.Status == "" {
			p.Status = "shipped"
		}
		for _, fl := range f.LineItems {
			base, ok := byID[fl.ID]
			if !ok {
				base = models.LineItem{
					ID:        fl.ID,
					Name:      fl.Name,
					UnitPrice: fl.Price,
					Currency:  raw.Currency,
					ProductID: fl.ProductID,
					VariantID: fl.VariantID,
					ImageURL:  imageURL(images, fl.ProductID, fl.VariantID),
				}
			}
			// Количество внутри посылки — отгруженное, не заказанное.
			base.Quantity = fl.Quantity
			p.Items = append(p.Items, base)
			fulfilled[fl.ID] += fl.Quantity
		}
		pkgs = append(pkgs, p)
	}

	var leftovers []models.LineItem
	for _, item := range items {
		if rem := item.Quantity - fulfilled[item.ID]; rem > 0 {
			li := item
			li.Quantity = rem
			leftovers = append(leftovers, li)
		}
	}
	if len(leftovers) > 0 {
		pkgs = append(pkgs, models.Package{
			DisplayName:    fmt.Sprintf("Package #%d (Processing)", seq+1),
			TrackingNumber: models.ProcessingTrackingNumber,
			Status:         "ordered",
			Items:          leftovers,
		})
	}

	email := raw.Email
	if email == "" {
		email = raw.ContactEmail
	}
	return &models.Order{
		ID:                 raw.ID,
		Name:               raw.Name,
		Email:              email,
		CreatedAt:          raw.CreatedAt,
		DestinationCountry: raw.CountryCode,
		Items:              items,
		Packages:           pkgs,
	}
}

// FindPackage matches a requested tracking number against an order's
// packages. Comparison is string-based: upstream APIs disagree about
// whether tracking numbers are strings or numbers.
func FindPackage(ord *models.Order, trackingNumber string) *models.Package {
	for i := range ord.Packages {
		if strings.EqualFold(ord.Packages[i].TrackingNumber, trackingNumber) {
			return &ord.Packages[i]
		}
	}
	return nil
}

// imageURL prefers a variant-specific image over the product's primary.
func imageURL(images map[uint64]commerce.ProductImages, productID, variantID uint64) string {
	pi, ok := images[productID]
	if !ok {
		return ""
	}
	if u, ok := pi.ByVariant[variantID]; ok && u != "" {
		return u
	}
	return pi.PrimaryURL
}
