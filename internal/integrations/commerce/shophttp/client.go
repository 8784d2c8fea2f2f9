// Package shophttp talks to the commerce platform's admin API: REST for
// order-by-name and product lookups, the graph endpoint for free-text
// order search by tracking number.
package shophttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/OrderTrack/internal/integrations/commerce"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpc      *http.Client
}

func New(baseURL, token, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = "2024-01"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		apiVersion: apiVersion,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) OrderByName(ctx context.Context, name string) (*commerce.Order, error) {
	q := url.Values{}
	q.Set("status", "any")
	q.Set("name", name)

	body, status, err := c.get(ctx, "/orders.json", q)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("commerce api http %d", status)
	}

	var resp struct {
		Orders []json.RawMessage `json:"orders"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	if len(resp.Orders) == 0 {
		return nil, commerce.ErrOrderNotFound
	}
	return commerce.DecodeRESTOrder(resp.Orders[0])
}

// orderByQueryGQL pulls the full order shape the mapper needs in one call.
const orderByQueryGQL = `query($q: String!) {
  orders(first: 1, query: $q) {
    edges { node {
      id name email createdAt
      shippingAddress { countryCode }
      lineItems(first: 50) { edges { node {
        id name quantity
        originalUnitPriceSet { shopMoney { amount currencyCode } }
        product { id }
        variant { id }
      } } }
      fulfillments {
        trackingInfo { number company url }
        fulfillmentLineItems(first: 50) { edges { node {
          quantity
          lineItem { id name quantity
            originalUnitPriceSet { shopMoney { amount currencyCode } }
            product { id }
            variant { id } }
        } } }
      }
    } }
  }
}`

func (c *Client) OrderByTracking(ctx context.Context, trackingNumber string) (*commerce.Order, error) {
	reqBody, err := json.Marshal(map[string]any{
		"query":     orderByQueryGQL,
		"variables": map[string]string{"q": trackingNumber},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal graph query")
	}

	u := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("commerce graph api http %d", resp.StatusCode)
	}

	var gr struct {
		Data struct {
			Orders struct {
				Edges []struct {
					Node json.RawMessage `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, errors.Wrap(err, "decode graph response")
	}
	if len(gr.Data.Orders.Edges) == 0 {
		return nil, commerce.ErrOrderNotFound
	}
	return commerce.DecodeGraphOrder(gr.Data.Orders.Edges[0].Node)
}

func (c *Client) ProductImages(ctx context.Context, productIDs []uint64) (map[uint64]commerce.ProductImages, error) {
	if len(productIDs) == 0 {
		return map[uint64]commerce.ProductImages{}, nil
	}

	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("fields", "id,image,images")

	body, status, err := c.get(ctx, "/products.json", q)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden {
		// Тариф магазина без доступа к products — работаем без картинок.
		return nil, commerce.ErrImagesUnavailable
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("commerce api http %d", status)
	}

	var resp struct {
		Products []struct {
			ID    uint64 `json:"id"`
			Image struct {
				Src string `json:"src"`
			} `json:"image"`
			Images []struct {
				Src        string   `json:"src"`
				VariantIDs []uint64 `json:"variant_ids"`
			} `json:"images"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}

	out := make(map[uint64]commerce.ProductImages, len(resp.Products))
	for _, p := range resp.Products {
		pi := commerce.ProductImages{
			PrimaryURL: p.Image.Src,
			ByVariant:  make(map[uint64]string),
		}
		for _, img := range p.Images {
			for _, vid := range img.VariantIDs {
				pi.ByVariant[vid] = img.Src
			}
		}
		out[p.ID] = pi
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	u := fmt.Sprintf("%s/admin/api/%s%s?%s", c.baseURL, c.apiVersion, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "new request")
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "read body")
	}
	return buf.Bytes(), resp.StatusCode, nil
}
