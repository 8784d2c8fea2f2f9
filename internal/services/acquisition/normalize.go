package acquisition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BearBump/OrderTrack/internal/integrations/carrier"
	"github.com/BearBump/OrderTrack/internal/models"
	"github.com/pkg/errors"
)

// errUnrecognizedPayload: сырой ответ агрегатора не похож ни на одну из
// известных форм. Закрываемся с ошибкой, а не отдаём молча пустой список.
var errUnrecognizedPayload = errors.New("unrecognized carrier payload shape")

// Status texts for the legacy minified payload's numeric codes.
var legacyStatusText = map[int]string{
	0:  "Not Found",
	10: "In Transit",
	20: "Expired",
	30: "Ready for Pickup",
	35: "Undelivered",
	40: "Delivered",
	50: "Alert",
}

type normalizedPayload struct {
	Status  string
	Carrier string
	Events  []models.TrackEvent
}

type modernPayload struct {
	Tracking struct {
		Providers []struct {
			Provider struct {
				Key   int    `json:"key"`
				Name  string `json:"name"`
				Alias string `json:"alias"`
			} `json:"provider"`
			LatestStatus struct {
				Status            string `json:"status"`
				StatusDescription string `json:"status_description"`
			} `json:"latest_status"`
			Events []struct {
				TimeISO     string `json:"time_iso"`
				TimeUTC     string `json:"time_utc"`
				Description string `json:"description"`
				Location    string `json:"location"`
			} `json:"events"`
		} `json:"providers"`
		StatusDescription string `json:"status_description"`
		Status            string `json:"status"`
	} `json:"tracking"`
}

type legacyPayload struct {
	StatusCode  *int            `json:"e"`
	CarrierCode int             `json:"w1"`
	EventsRaw   json.RawMessage `json:"z1"`
	Events      []struct {
		Time        string `json:"a"`
		Description string `json:"z"`
		City        string `json:"c"`
		Country     string `json:"d"`
	} `json:"-"`
}

// normalizePayload maps a raw aggregator item into the normalized event
// model. Modern-shape fields are tried first, then the legacy minified
// shape; anything else fails closed.
func normalizePayload(raw carrier.RawPayload) (normalizedPayload, error) {
	var m modernPayload
	if err := json.Unmarshal(raw, &m); err == nil && len(m.Tracking.Providers) > 0 {
		return normalizeModern(m), nil
	}

	var l legacyPayload
	if err := json.Unmarshal(raw, &l); err == nil && (l.EventsRaw != nil || l.StatusCode != nil) {
		if l.EventsRaw != nil {
			if err := json.Unmarshal(l.EventsRaw, &l.Events); err != nil {
				return normalizedPayload{}, errors.Wrap(err, "decode legacy events")
			}
		}
		return normalizeLegacy(l), nil
	}

	return normalizedPayload{}, errUnrecognizedPayload
}

func normalizeModern(m modernPayload) normalizedPayload {
	p := m.Tracking.Providers[0]

	status := p.LatestStatus.StatusDescription
	if status == "" {
		status = m.Tracking.StatusDescription
	}
	if status == "" {
		status = m.Tracking.Status
	}
	if status == "" {
		status = "Unknown"
	}

	name := p.Provider.Name
	if name == "" {
		name = p.Provider.Alias
	}
	if name == "" {
		name = fmt.Sprintf("Carrier ID: %d", p.Provider.Key)
	}

	out := normalizedPayload{Status: status, Carrier: name}
	for _, e := range p.Events {
		ts := e.TimeISO
		if ts == "" {
			ts = e.TimeUTC
		}
		out.Events = append(out.Events, models.TrackEvent{
			Timestamp:   ts,
			Description: e.Description,
			Location:    e.Location,
		})
	}
	return out
}

func normalizeLegacy(l legacyPayload) normalizedPayload {
	status := "Unknown"
	if l.StatusCode != nil {
		if s, ok := legacyStatusText[*l.StatusCode]; ok {
			status = s
		}
	}

	out := normalizedPayload{
		Status:  status,
		Carrier: fmt.Sprintf("Carrier ID: %d", l.CarrierCode),
	}
	for _, e := range l.Events {
		loc := e.City
		if e.Country != "" {
			if loc != "" {
				loc = strings.Join([]string{loc, e.Country}, ", ")
			} else {
				loc = e.Country
			}
		}
		out.Events = append(out.Events, models.TrackEvent{
			Timestamp:   e.Time,
			Description: e.Description,
			Location:    loc,
		})
	}
	return out
}
