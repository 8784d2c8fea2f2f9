// Package reconcile is the composition root: it resolves an order+email
// or a bare tracking number into one merged fulfillment view, fanning out
// acquisition calls per package and attaching translation enrichment.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BearBump/OrderTrack/internal/integrations/commerce"
	"github.com/BearBump/OrderTrack/internal/models"
	"github.com/BearBump/OrderTrack/internal/services/ordermap"
	"github.com/BearBump/OrderTrack/internal/services/translation"
	"github.com/pkg/errors"
)

var (
	// ErrOrderNotFound covers both "no such order" and an email mismatch:
	// the caller cannot tell which, by design.
	ErrOrderNotFound = errors.New("order not found or email does not match")

	// ErrTrackingUnknown — трек-номер не принадлежит ни одному известному
	// заказу. Это граница безопасности, а не просто промах поиска.
	ErrTrackingUnknown = errors.New("this tracking number is not in our system")

	ErrMissingParams = errors.New("order name and email are required")
)

// TrackingProvider is the acquisition engine's contract. It never fails:
// failures arrive as ok:false results.
type TrackingProvider interface {
	GetTrackingInfo(ctx context.Context, trackingNumber, targetLanguage string) models.TrackingResult
}

type Translator interface {
	TranslateEvents(ctx context.Context, events []models.TrackEvent, targetLanguage string) []models.TrackEvent
}

type Service struct {
	shop       commerce.Client
	tracker    TrackingProvider
	translator Translator

	resolved           atomic.Int64
	enrichmentFailures atomic.Int64
}

func New(shop commerce.Client, tracker TrackingProvider, translator Translator) *Service {
	return &Service{shop: shop, tracker: tracker, translator: translator}
}

// Request is either {OrderName, Email} or {TrackingNumber}; Language is
// optional in both forms.
type Request struct {
	OrderName      string
	Email          string
	TrackingNumber string
	Language       string
}

type View struct {
	Order *models.Order `json:"order"`
	// Package points at the matched package on the tracking-number path.
	Package *models.Package `json:"package,omitempty"`
}

type Stats struct {
	Resolved           int64 `json:"resolved"`
	EnrichmentFailures int64 `json:"enrichmentFailures"`
}

func (s *Service) Stats() Stats {
	return Stats{
		Resolved:           s.resolved.Load(),
		EnrichmentFailures: s.enrichmentFailures.Load(),
	}
}

func (s *Service) Resolve(ctx context.Context, req Request) (*View, error) {
	if req.TrackingNumber != "" {
		return s.resolveByTracking(ctx, req)
	}
	if req.OrderName == "" || req.Email == "" {
		return nil, ErrMissingParams
	}
	return s.resolveByOrder(ctx, req)
}

func (s *Service) resolveByOrder(ctx context.Context, req Request) (*View, error) {
	ord, err := s.shop.OrderByName(ctx, req.OrderName)
	if errors.Is(err, commerce.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "order lookup")
	}
	if !emailMatches(ord, req.Email) {
		return nil, ErrOrderNotFound
	}

	mapped := s.mapWithImages(ctx, ord)
	s.enrichPackages(ctx, mapped, req.Language)
	s.resolved.Add(1)
	return &View{Order: mapped}, nil
}

func (s *Service) resolveByTracking(ctx context.Context, req Request) (*View, error) {
	ord, err := s.shop.OrderByTracking(ctx, req.TrackingNumber)
	if errors.Is(err, commerce.ErrOrderNotFound) {
		return nil, ErrTrackingUnknown
	}
	if err != nil {
		return nil, errors.Wrap(err, "order lookup by tracking")
	}

	mapped := s.mapWithImages(ctx, ord)
	pkg := ordermap.FindPackage(mapped, req.TrackingNumber)
	if pkg == nil {
		return nil, ErrTrackingUnknown
	}

	res := s.tracker.GetTrackingInfo(ctx, req.TrackingNumber, req.Language)
	s.attach(ctx, pkg, res, req.Language)
	s.resolved.Add(1)
	return &View{Order: mapped, Package: pkg}, nil
}

// mapWithImages maps the raw order, attaching product images when the
// platform allows it. Image failures are logged and never fatal.
func (s *Service) mapWithImages(ctx context.Context, ord *commerce.Order) *models.Order {
	var ids []uint64
	seen := make(map[uint64]struct{})
	for _, li := range ord.LineItems {
		if li.ProductID == 0 {
			continue
		}
		if _, ok := seen[li.ProductID]; ok {
			continue
		}
		seen[li.ProductID] = struct{}{}
		ids = append(ids, li.ProductID)
	}

	var images map[uint64]commerce.ProductImages
	if len(ids) > 0 {
		var err error
		images, err = s.shop.ProductImages(ctx, ids)
		if err != nil {
			if errors.Is(err, commerce.ErrImagesUnavailable) {
				slog.Info("product images unavailable on this shop plan")
			} else {
				slog.Warn("fetch product images", "error", err.Error())
			}
			images = nil
		}
	}
	return ordermap.MapOrder(ord, images)
}

// enrichPackages runs one acquisition call per carrier-backed package.
// Slots are fixed up front; a failed sibling never cancels the others.
func (s *Service) enrichPackages(ctx context.Context, ord *models.Order, lang string) {
	results := make([]models.TrackingResult, len(ord.Packages))

	var wg sync.WaitGroup
	for i := range ord.Packages {
		if ord.Packages[i].Synthetic() {
			continue
		}
		wg.Add(1)
		go func(i int, trackingNumber string) {
			defer wg.Done()
			results[i] = s.tracker.GetTrackingInfo(ctx, trackingNumber, lang)
		}(i, ord.Packages[i].TrackingNumber)
	}
	wg.Wait()

	for i := range ord.Packages {
		s.attach(ctx, &ord.Packages[i], results[i], lang)
	}
}

func (s *Service) attach(ctx context.Context, pkg *models.Package, res models.TrackingResult, lang string) {
	if res.TrackingNumber == "" {
		// Слот не заполнялся: синтетическая посылка без трека.
		return
	}
	if !res.OK {
		s.enrichmentFailures.Add(1)
		slog.Warn("package enrichment failed", "tracking_number", res.TrackingNumber, "error", res.Error)
		return
	}

	// Язык определяем до перевода, по оригинальному тексту.
	pkg.OriginalLanguage = translation.DetectLanguage(res.Events)

	events := res.Events
	if lang != "" && s.translator != nil {
		events = s.translator.TranslateEvents(ctx, events, lang)
	}
	pkg.Events = events
	if res.Status != "" {
		pkg.Status = res.Status
	}
	if res.Carrier != "" {
		pkg.TrackingCompany = res.Carrier
	}
}

// TranslateTracking is the standalone "translate an existing tracking"
// operation: acquisition plus enrichment, no order lookup or ownership
// check. Callers expose it only where that is acceptable.
func (s *Service) TranslateTracking(ctx context.Context, trackingNumber, lang string) models.TrackingResult {
	res := s.tracker.GetTrackingInfo(ctx, trackingNumber, lang)
	if !res.OK {
		return res
	}
	res.OriginalLanguage = translation.DetectLanguage(res.Events)
	if lang != "" && s.translator != nil {
		res.Events = s.translator.TranslateEvents(ctx, res.Events, lang)
	}
	return res
}

func emailMatches(ord *commerce.Order, email string) bool {
	if email == "" {
		return false
	}
	return (ord.Email != "" && strings.EqualFold(ord.Email, email)) ||
		(ord.ContactEmail != "" && strings.EqualFold(ord.ContactEmail, email))
}
