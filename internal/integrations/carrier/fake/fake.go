package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/BearBump/OrderTrack/internal/integrations/carrier"
)

// FakeClient — детерминированная заглушка агрегатора для локального
// запуска без ключей. Трек "появляется" у перевозчика только после
// регистрации, как в настоящем API.
type FakeClient struct {
	mu         sync.Mutex
	registered map[string]bool
}

func New() *FakeClient {
	return &FakeClient{registered: make(map[string]bool)}
}

func (f *FakeClient) Register(ctx context.Context, trackingNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[trackingNumber] = true
	return nil
}

func (f *FakeClient) GetTrackInfo(ctx context.Context, trackingNumber string) (carrier.RawPayload, error) {
	f.mu.Lock()
	known := f.registered[trackingNumber]
	f.mu.Unlock()
	if !known {
		return nil, carrier.ErrNotFound
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	// 20% треков считаем доставленными.
	status := "In transit"
	if v%5 == 0 {
		status = "Delivered"
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"number": trackingNumber,
		"tracking": map[string]any{
			"providers": []any{
				map[string]any{
					"provider": map[string]any{
						"key":  int(v % 1000),
						"name": "FakePost",
					},
					"latest_status": map[string]any{
						"status_description": status,
					},
					"events": []any{
						map[string]any{
							"time_iso":    now.Add(-48 * time.Hour).Format(time.RFC3339),
							"description": "Shipment information received",
							"location":    "Origin facility",
						},
						map[string]any{
							"time_iso":    now.Add(-2 * time.Hour).Format(time.RFC3339),
							"description": fmt.Sprintf("%s, scan %d", status, v%7),
						},
					},
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b, nil
}

func (f *FakeClient) ChangeLanguage(ctx context.Context, trackingNumber, languageCode string) error {
	return nil
}
