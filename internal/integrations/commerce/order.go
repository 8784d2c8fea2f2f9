package commerce

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Order is a raw commerce-platform order, already flattened from whichever
// wire shape it arrived in. Quantities inside Fulfillments are
// shipment-specific; LineItems carry the full ordered quantity.
type Order struct {
	ID           uint64
	Name         string
	Email        string
	ContactEmail string
	Currency     string
	CreatedAt    string
	CountryCode  string
	LineItems    []LineItem
	Fulfillments []Fulfillment
}

type LineItem struct {
	ID        uint64
	Name      string
	Quantity  int
	Price     string
	ProductID uint64
	VariantID uint64
}

type Fulfillment struct {
	ID              uint64
	Status          string
	TrackingNumber  string
	TrackingCompany string
	TrackingURL     string
	LineItems       []LineItem
}

// flexString accepts both JSON strings and bare numbers. Upstream APIs are
// not consistent about whether a tracking number is a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type restLineItem struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	ProductID uint64 `json:"product_id"`
	VariantID uint64 `json:"variant_id"`
}

type restFulfillment struct {
	ID              uint64         `json:"id"`
	Status          string         `json:"status"`
	ShipmentStatus  string         `json:"shipment_status"`
	TrackingNumber  flexString     `json:"tracking_number"`
	TrackingCompany string         `json:"tracking_company"`
	TrackingURL     string         `json:"tracking_url"`
	LineItems       []restLineItem `json:"line_items"`
}

type restOrder struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ContactEmail    string `json:"contact_email"`
	Currency        string `json:"currency"`
	CreatedAt       string `json:"created_at"`
	ShippingAddress struct {
		CountryCode string `json:"country_code"`
	} `json:"shipping_address"`
	LineItems    []restLineItem    `json:"line_items"`
	Fulfillments []restFulfillment `json:"fulfillments"`
}

// DecodeOrder decodes either of the two known wire shapes: the flat
// REST-like order (snake_case, line_items at the top level) or the
// graph-query node (camelCase, edges/node nesting).
func DecodeOrder(b []byte) (*Order, error) {
	var probe struct {
		LineItems json.RawMessage `json:"line_items"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	if probe.LineItems != nil {
		return DecodeRESTOrder(b)
	}
	return DecodeGraphOrder(b)
}

func DecodeRESTOrder(b []byte) (*Order, error) {
	var ro restOrder
	if err := json.Unmarshal(b, &ro); err != nil {
		return nil, errors.Wrap(err, "decode rest order")
	}
	o := &Order{
		ID:           ro.ID,
		Name:         ro.Name,
		Email:        ro.Email,
		ContactEmail: ro.ContactEmail,
		Currency:     ro.Currency,
		CreatedAt:    ro.CreatedAt,
		CountryCode:  ro.ShippingAddress.CountryCode,
	}
	for _, li := range ro.LineItems {
		o.LineItems = append(o.LineItems, fromRESTLineItem(li))
	}
	for _, f := range ro.Fulfillments {
		status := f.ShipmentStatus
		if status == "" {
			status = f.Status
		}
		nf := Fulfillment{
			ID:              f.ID,
			Status:          status,
			TrackingNumber:  string(f.TrackingNumber),
			TrackingCompany: f.TrackingCompany,
			TrackingURL:     f.TrackingURL,
		}
		for _, li := range f.LineItems {
			nf.LineItems = append(nf.LineItems, fromRESTLineItem(li))
		}
		o.Fulfillments = append(o.Fulfillments, nf)
	}
	return o, nil
}

func fromRESTLineItem(li restLineItem) LineItem {
	return LineItem{
		ID:        li.ID,
		Name:      li.Name,
		Quantity:  li.Quantity,
		Price:     li.Price,
		ProductID: li.ProductID,
		VariantID: li.VariantID,
	}
}

type graphOrder struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	CreatedAt       string `json:"createdAt"`
	ShippingAddress struct {
		CountryCode string `json:"countryCode"`
	} `json:"shippingAddress"`
	LineItems struct {
		Edges []struct {
			Node graphLineItem `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
	Fulfillments []struct {
		TrackingInfo []struct {
			Number  flexString `json:"number"`
			Company string     `json:"company"`
			URL     string     `json:"url"`
		} `json:"trackingInfo"`
		FulfillmentLineItems struct {
			Edges []struct {
				Node struct {
					Quantity int           `json:"quantity"`
					LineItem graphLineItem `json:"lineItem"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"fulfillmentLineItems"`
	} `json:"fulfillments"`
}

type graphLineItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Quantity             int    `json:"quantity"`
	OriginalUnitPriceSet struct {
		ShopMoney struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"shopMoney"`
	} `json:"originalUnitPriceSet"`
	Product struct {
		ID string `json:"id"`
	} `json:"product"`
	Variant struct {
		ID string `json:"id"`
	} `json:"variant"`
}

// DecodeGraphOrder decodes a graph-query order node, unwrapping an
// enclosing {"data":{"order":...}} envelope when present.
func DecodeGraphOrder(b []byte) (*Order, error) {
	var envelope struct {
		Data struct {
			Order json.RawMessage `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err == nil && envelope.Data.Order != nil {
		b = envelope.Data.Order
	}

	var g graphOrder
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, errors.Wrap(err, "decode graph order")
	}
	o := &Order{
		ID:          gidNumber(g.ID),
		Name:        g.Name,
		Email:       g.Email,
		CreatedAt:   g.CreatedAt,
		CountryCode: g.ShippingAddress.CountryCode,
	}
	for _, e := range g.LineItems.Edges {
		li := fromGraphLineItem(e.Node)
		li.Quantity = e.Node.Quantity
		if o.Currency == "" {
			o.Currency = e.Node.OriginalUnitPriceSet.ShopMoney.CurrencyCode
		}
		o.LineItems = append(o.LineItems, li)
	}
	for i, f := range g.Fulfillments {
		nf := Fulfillment{ID: uint64(i + 1)}
		if len(f.TrackingInfo) > 0 {
			nf.TrackingNumber = string(f.TrackingInfo[0].Number)
			nf.TrackingCompany = f.TrackingInfo[0].Company
			nf.TrackingURL = f.TrackingInfo[0].URL
		}
		for _, e := range f.FulfillmentLineItems.Edges {
			li := fromGraphLineItem(e.Node.LineItem)
			li.Quantity = e.Node.Quantity
			nf.LineItems = append(nf.LineItems, li)
		}
		o.Fulfillments = append(o.Fulfillments, nf)
	}
	return o, nil
}

func fromGraphLineItem(g graphLineItem) LineItem {
	return LineItem{
		ID:        gidNumber(g.ID),
		Name:      g.Name,
		Quantity:  g.Quantity,
		Price:     g.OriginalUnitPriceSet.ShopMoney.Amount,
		ProductID: gidNumber(g.Product.ID),
		VariantID: gidNumber(g.Variant.ID),
	}
}

// gidNumber extracts the numeric tail of a graph global id like
// "gid://shop/Order/450789469". Plain numeric strings pass through.
func gidNumber(gid string) uint64 {
	if gid == "" {
		return 0
	}
	if i := strings.LastIndexByte(gid, '/'); i >= 0 {
		gid = gid[i+1:]
	}
	n, err := strconv.ParseUint(gid, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
