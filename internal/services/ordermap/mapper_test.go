package ordermap

import (
	"testing"

	"github.com/BearBump/OrderTrack/internal/integrations/commerce"
	"github.com/BearBump/OrderTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *commerce.Order {
	return &commerce.Order{
		ID:       450789469,
		Name:     "#1001",
		Email:    "buyer@example.com",
		Currency: "USD",
		LineItems: []commerce.LineItem{
			{ID: 1, Name: "Mug", Quantity: 3, Price: "12.00", ProductID: 100, VariantID: 1001},
			{ID: 2, Name: "Poster", Quantity: 1, Price: "7.50", ProductID: 200, VariantID: 2001},
		},
		Fulfillments: []commerce.Fulfillment{
			{
				ID:              11,
				TrackingNumber:  "RB123",
				TrackingCompany: "China Post",
				LineItems:       []commerce.LineItem{{ID: 1, Quantity: 2}},
			},
		},
	}
}

func TestMapOrder_PackagesAndLeftovers(t *testing.T) {
	ord := MapOrder(sampleOrder(), nil)

	require.Len(t, ord.Packages, 2)

	real := ord.Packages[0]
	require.Equal(t, "Package #1", real.DisplayName)
	require.Equal(t, "RB123", real.TrackingNumber)
	require.Equal(t, "shipped", real.Status)
	require.Len(t, real.Items, 1)
	// количество внутри посылки — отгруженное
	require.Equal(t, 2, real.Items[0].Quantity)
	require.Equal(t, "Mug", real.Items[0].Name)

	synth := ord.Packages[1]
	require.Equal(t, "Package #2 (Processing)", synth.DisplayName)
	require.Equal(t, models.ProcessingTrackingNumber, synth.TrackingNumber)
	require.Equal(t, "ordered", synth.Status)
	require.True(t, synth.Synthetic())
	require.Len(t, synth.Items, 2)
	require.Equal(t, 1, synth.Items[0].Quantity) // 3 заказано - 2 отгружено
	require.Equal(t, 1, synth.Items[1].Quantity)
}

func TestMapOrder_NoFulfillments(t *testing.T) {
	raw := sampleOrder()
	raw.Fulfillments = nil

	ord := MapOrder(raw, nil)
	// всё ещё в обработке: один синтетический пакет со всеми позициями
	require.Len(t, ord.Packages, 1)
	p := ord.Packages[0]
	require.True(t, p.Synthetic())
	require.Equal(t, "Package #1 (Processing)", p.DisplayName)
	require.Len(t, p.Items, 2)
	require.Equal(t, 3, p.Items[0].Quantity)
	require.Equal(t, 1, p.Items[1].Quantity)
}

func TestMapOrder_PartialSingleItem(t *testing.T) {
	raw := &commerce.Order{
		ID:   2,
		Name: "#1002",
		LineItems: []commerce.LineItem{
			{ID: 1, Name: "Mug", Quantity: 2},
		},
		Fulfillments: []commerce.Fulfillment{
			{ID: 11, TrackingNumber: "RB1", LineItems: []commerce.LineItem{{ID: 1, Quantity: 1}}},
		},
	}

	ord := MapOrder(raw, nil)
	require.Len(t, ord.Packages, 2)
	require.Equal(t, 1, ord.Packages[0].Items[0].Quantity)
	require.Equal(t, 1, ord.Packages[1].Items[0].Quantity)
	require.True(t, ord.Packages[1].Synthetic())
}

func TestMapOrder_FullyFulfilledHasNoSyntheticPackage(t *testing.T) {
	raw := sampleOrder()
	raw.Fulfillments = []commerce.Fulfillment{
		{ID: 11, TrackingNumber: "RB123", LineItems: []commerce.LineItem{{ID: 1, Quantity: 3}}},
		{ID: 12, TrackingNumber: "RB124", LineItems: []commerce.LineItem{{ID: 2, Quantity: 1}}},
	}

	ord := MapOrder(raw, nil)
	require.Len(t, ord.Packages, 2)
	for _, p := range ord.Packages {
		require.False(t, p.Synthetic())
	}
	require.Equal(t, "Package #2", ord.Packages[1].DisplayName)
}

func TestMapOrder_SkipsFulfillmentWithoutTracking(t *testing.T) {
	raw := sampleOrder()
	raw.Fulfillments = append([]commerce.Fulfillment{
		{ID: 10, LineItems: []commerce.LineItem{{ID: 2, Quantity: 1}}},
	}, raw.Fulfillments...)

	ord := MapOrder(raw, nil)
	// безтрековый фулфилмент не стал посылкой и не сместил нумерацию
	require.Equal(t, "Package #1", ord.Packages[0].DisplayName)
	require.Equal(t, "RB123", ord.Packages[0].TrackingNumber)
}

func TestMapOrder_ImageFallback(t *testing.T) {
	images := map[uint64]commerce.ProductImages{
		100: {
			PrimaryURL: "https://cdn.example.com/mug.jpg",
			ByVariant:  map[uint64]string{1001: "https://cdn.example.com/mug-red.jpg"},
		},
		200: {PrimaryURL: "https://cdn.example.com/poster.jpg"},
	}

	ord := MapOrder(sampleOrder(), images)
	require.Equal(t, "https://cdn.example.com/mug-red.jpg", ord.Items[0].ImageURL)
	require.Equal(t, "https://cdn.example.com/poster.jpg", ord.Items[1].ImageURL)

	// без карты картинок маппинг просто идёт дальше
	ord = MapOrder(sampleOrder(), nil)
	require.Empty(t, ord.Items[0].ImageURL)
}

func TestMapOrder_ContactEmailFallback(t *testing.T) {
	raw := sampleOrder()
	raw.Email = ""
	raw.ContactEmail = "fallback@example.com"

	ord := MapOrder(raw, nil)
	require.Equal(t, "fallback@example.com", ord.Email)
}

func TestFindPackage(t *testing.T) {
	ord := MapOrder(sampleOrder(), nil)

	p := FindPackage(ord, "rb123")
	require.NotNil(t, p)
	require.Equal(t, "RB123", p.TrackingNumber)
	// указатель в сам заказ, не копия
	require.Same(t, &ord.Packages[0], p)

	require.Nil(t, FindPackage(ord, "UNKNOWN1"))
}
