// Package extract derives a contact record from advisor page markup using a
// two-tier strategy: JSON-LD structured data first, itemprop microdata as a
// fallback when the structured data left the name or primary phone open.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bergdata/advisor-harvester/internal/profile"
)

// schemaTypes are the JSON-LD @type values worth extracting, lowercased.
var schemaTypes = map[string]struct{}{
	"person":              {},
	"financialservice":    {},
	"localbusiness":       {},
	"professionalservice": {},
}

// Parse extracts a record from one profile page. Later candidates only fill
// fields still empty, so JSON-LD values are never clobbered by microdata.
func Parse(pageHTML string, sourceURL string) profile.Record {
	rec := profile.New(sourceURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return rec
	}

	for _, item := range schemaCandidates(doc) {
		profile.Merge(&rec, fromSchema(item))
	}

	if rec.Name == "" || rec.Phone == "" {
		profile.Merge(&rec, fromMicrodata(doc))
	}
	return rec
}

// schemaCandidates yields every JSON-LD object on the page whose declared
// type matches schemaTypes. Blocks with invalid JSON are skipped silently.
func schemaCandidates(doc *goquery.Document) []map[string]any {
	var items []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return
		}
		for _, entry := range ensureList(payload) {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if matchesSchemaType(item["@type"]) {
				items = append(items, item)
			}
		}
	})
	return items
}

func matchesSchemaType(declared any) bool {
	for _, t := range ensureList(declared) {
		name, ok := t.(string)
		if !ok {
			continue
		}
		if _, match := schemaTypes[strings.ToLower(name)]; match {
			return true
		}
	}
	return false
}

// fromSchema maps one JSON-LD block into the record shape.
func fromSchema(item map[string]any) profile.Record {
	var rec profile.Record

	rec.Name = cleanValue(item["name"])

	var phones []string
	for _, raw := range ensureList(item["telephone"]) {
		phones = appendPhone(phones, cleanValue(raw))
	}
	for _, raw := range ensureList(item["contactPoint"]) {
		contact, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		phones = appendPhone(phones, cleanValue(contact["telephone"]))
		if rec.Email == "" {
			rec.Email = cleanValue(contact["email"])
		}
	}
	rec.Phone, rec.Phone2 = phoneSlots(phones)

	if address, ok := item["address"].(map[string]any); ok {
		rec.Street = cleanValue(address["streetAddress"])
		rec.ZIP = cleanValue(address["postalCode"])
		rec.City = cleanValue(address["addressLocality"])
	}

	if rec.Email == "" {
		rec.Email = cleanValue(item["email"])
	}
	return rec
}

// fromMicrodata scans itemprop attributes as the fallback signal source.
func fromMicrodata(doc *goquery.Document) profile.Record {
	var rec profile.Record

	rec.Name = profile.Clean(doc.Find(`[itemprop="name"]`).First().Text())

	var phones []string
	doc.Find(`[itemprop="telephone"]`).Each(func(_ int, sel *goquery.Selection) {
		phones = appendPhone(phones, profile.Clean(sel.Text()))
	})
	rec.Phone, rec.Phone2 = phoneSlots(phones)

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return true
		}
		parts := strings.SplitN(href, ":", 2)
		rec.Email = profile.Clean(parts[1])
		return false
	})

	rec.Street = profile.Clean(doc.Find(`[itemprop="streetAddress"]`).First().Text())
	rec.ZIP = profile.Clean(doc.Find(`[itemprop="postalCode"]`).First().Text())
	rec.City = profile.Clean(doc.Find(`[itemprop="addressLocality"]`).First().Text())
	return rec
}

// appendPhone adds a non-empty phone number, keeping discovery order and
// dropping duplicates.
func appendPhone(phones []string, phone string) []string {
	if phone == "" {
		return phones
	}
	for _, existing := range phones {
		if existing == phone {
			return phones
		}
	}
	return append(phones, phone)
}

// phoneSlots fills the two phone slots; any further numbers are discarded.
func phoneSlots(phones []string) (primary, secondary string) {
	if len(phones) > 0 {
		primary = phones[0]
	}
	if len(phones) > 1 {
		secondary = phones[1]
	}
	return primary, secondary
}

func cleanValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return profile.Clean(s)
}

// ensureList normalizes a JSON value to a slice: nil becomes empty, a scalar
// becomes a one-element slice.
func ensureList(v any) []any {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return value
	default:
		return []any{value}
	}
}
