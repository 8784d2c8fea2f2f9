// Package translation enriches normalized track events: a cheap
// alphabet-signature language guess plus best-effort rewriting of event
// text through the external translator.
package translation

import (
	"context"
	"log/slog"
	"sync"
	"unicode"

	"github.com/BearBump/OrderTrack/internal/integrations/translate"
	"github.com/BearBump/OrderTrack/internal/models"
)

type signature struct {
	label  string
	ranges []*unicode.RangeTable
}

// Порядок важен: первая сработавшая сигнатура выигрывает.
var signatures = []signature{
	{"Chinese", []*unicode.RangeTable{unicode.Han}},
	{"Russian", []*unicode.RangeTable{unicode.Cyrillic}},
	{"Korean", []*unicode.RangeTable{unicode.Hangul}},
	{"Japanese", []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
}

// DetectLanguage guesses the language of event text by character-set
// signatures. It is a heuristic, not detection proper, and must run on
// the original text before any translation touches it.
func DetectLanguage(events []models.TrackEvent) string {
	if len(events) == 0 {
		return "Unknown"
	}
	for _, sig := range signatures {
		for _, ev := range events {
			if containsAny(ev.Description, sig.ranges) || containsAny(ev.Location, sig.ranges) {
				return sig.label
			}
		}
	}
	return "English"
}

func containsAny(text string, ranges []*unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.IsOneOf(ranges, r) {
			return true
		}
	}
	return false
}

// Carrier-native numeric language codes → translator codes. The table is
// deliberately partial; an uncovered code passes through unchanged so
// direct translator codes keep working.
var translatorCodes = map[string]string{
	"1033": "en",
	"2052": "zh-CN",
	"1036": "fr",
	"1034": "es",
	"1031": "de",
	"1040": "it",
	"1041": "ja",
}

func TranslatorCode(languageCode string) string {
	if c, ok := translatorCodes[languageCode]; ok {
		return c
	}
	slog.Debug("language code not in table, passing through", "code", languageCode)
	return languageCode
}

type Enricher struct {
	tr translate.Client
}

func NewEnricher(tr translate.Client) *Enricher {
	return &Enricher{tr: tr}
}

// TranslateEvents returns a copy of events with description and location
// rewritten into the target language. Each event translates concurrently
// and independently; a failed translation keeps that event's original
// text and never disturbs its siblings.
func (e *Enricher) TranslateEvents(ctx context.Context, events []models.TrackEvent, targetLanguage string) []models.TrackEvent {
	if e == nil || e.tr == nil || len(events) == 0 {
		return events
	}
	code := TranslatorCode(targetLanguage)

	out := make([]models.TrackEvent, len(events))
	copy(out, events)

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(ev *models.TrackEvent) {
			defer wg.Done()

			var inner sync.WaitGroup
			inner.Add(1)
			go func() {
				defer inner.Done()
				if t, err := e.tr.Translate(ctx, ev.Description, code); err == nil {
					ev.Description = t
				} else {
					slog.Warn("translate event description", "error", err.Error())
				}
			}()
			if ev.Location != "" {
				inner.Add(1)
				go func() {
					defer inner.Done()
					if t, err := e.tr.Translate(ctx, ev.Location, code); err == nil {
						ev.Location = t
					} else {
						slog.Warn("translate event location", "error", err.Error())
					}
				}()
			}
			inner.Wait()
		}(&out[i])
	}
	wg.Wait()
	return out
}
