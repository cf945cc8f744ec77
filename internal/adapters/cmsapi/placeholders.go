package cmsapi

import (
	"encoding/json"

	"travi_content/internal/domain"
)

// sample content shown by admin tooling when the API cannot be reached
var placeholders = map[string]string{
	domain.ResDestinations: `[
  {"id": 1, "name": "Dubai", "country": "United Arab Emirates", "status": "draft"},
  {"id": 2, "name": "Paris", "country": "France", "status": "draft"}
]`,
	domain.ResGuides: `[
  {"id": 1, "title": "48 hours in Dubai", "status": "draft"}
]`,
	domain.ResNews: `[
  {"id": 1, "title": "New attractions added", "status": "draft"}
]`,
	domain.ResSettings:   `{"siteName": "Travi", "defaultLocale": "en"}`,
	domain.ResHero:       `{"title": "Discover the world", "subtitle": ""}`,
	domain.ResNavigation: `[{"label": "Destinations", "href": "/destinations"}]`,
}

// Placeholder returns stand-in data for resource, shaped like the real document.
func Placeholder(resource string) json.RawMessage {
	if p, ok := placeholders[resource]; ok {
		return json.RawMessage(p)
	}
	b, _ := json.Marshal(domain.Resources[resource].Empty())
	return b
}
