// Package track17http implements the carrier aggregator contract over its
// batch HTTP API: every endpoint accepts an array of {number} items and
// answers with a top-level numeric code plus accepted/rejected lists.
package track17http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/OrderTrack/internal/integrations/carrier"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client

	// Rejection codes that mean "already registered". Conceptually
	// config, not an invariant: real deployments have seen more than one.
	alreadyRegistered map[int]bool
}

func New(baseURL, apiKey string, alreadyRegisteredCodes []int) *Client {
	if baseURL == "" {
		baseURL = "https://api.17track.net/track/v1"
	}
	if len(alreadyRegisteredCodes) == 0 {
		alreadyRegisteredCodes = []int{-18}
	}
	already := make(map[int]bool, len(alreadyRegisteredCodes))
	for _, c := range alreadyRegisteredCodes {
		already[c] = true
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
		alreadyRegistered: already,
	}
}

type rejectedItem struct {
	Number string `json:"number"`
	Error  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type batchResp struct {
	Code int `json:"code"`
	Data struct {
		Accepted []json.RawMessage `json:"accepted"`
		Rejected []rejectedItem    `json:"rejected"`
	} `json:"data"`
}

func (c *Client) Register(ctx context.Context, trackingNumber string) error {
	resp, err := c.postBatch(ctx, "/register", []map[string]string{{"number": trackingNumber}})
	if err != nil {
		return err
	}
	if acceptedItem(resp, trackingNumber) != nil {
		return nil
	}
	for _, rj := range resp.Data.Rejected {
		if rj.Number != trackingNumber {
			continue
		}
		if c.alreadyRegistered[rj.Error.Code] {
			// Повторная регистрация — это успех, не ошибка.
			return nil
		}
		return &carrier.RegistrationError{Code: rj.Error.Code, Message: rj.Error.Message}
	}
	return fmt.Errorf("carrier register response does not mention %s", trackingNumber)
}

func (c *Client) GetTrackInfo(ctx context.Context, trackingNumber string) (carrier.RawPayload, error) {
	resp, err := c.postBatch(ctx, "/gettrackinfo", []map[string]string{{"number": trackingNumber}})
	if err != nil {
		return nil, err
	}
	if item := acceptedItem(resp, trackingNumber); item != nil {
		return item, nil
	}
	// Rejected or simply absent: the aggregator has nothing for us yet.
	return nil, carrier.ErrNotFound
}

func (c *Client) ChangeLanguage(ctx context.Context, trackingNumber, languageCode string) error {
	resp, err := c.postBatch(ctx, "/changeinfo", []map[string]string{
		{"number": trackingNumber, "lang": languageCode},
	})
	if err != nil {
		return err
	}
	for _, rj := range resp.Data.Rejected {
		if rj.Number == trackingNumber {
			return fmt.Errorf("carrier rejected language change (code %d): %s", rj.Error.Code, rj.Error.Message)
		}
	}
	return nil
}

func (c *Client) postBatch(ctx context.Context, path string, body any) (*batchResp, error) {
	if c.apiKey == "" {
		return nil, carrier.ErrNotConfigured
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path += path

	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal batch body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("17token", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("carrier aggregator http %d", resp.StatusCode)
	}

	var r batchResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if r.Code != 0 {
		return nil, fmt.Errorf("carrier aggregator code=%d", r.Code)
	}
	return &r, nil
}

// acceptedItem finds the accepted entry for a number; entries are kept raw
// because their shape differs between aggregator generations.
func acceptedItem(resp *batchResp, trackingNumber string) json.RawMessage {
	for _, item := range resp.Data.Accepted {
		var head struct {
			Number string `json:"number"`
		}
		if json.Unmarshal(item, &head) != nil {
			continue
		}
		if head.Number == trackingNumber {
			return item
		}
	}
	return nil
}
