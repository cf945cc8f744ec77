package domain

import (
	"errors"
	"fmt"
)

// Kind is the JSON shape a flat-file resource is stored as.
type Kind int

const (
	KindSingleton  Kind = iota // one object, replaced wholesale
	KindList                   // array, replaced wholesale
	KindCollection             // array of records with numeric ids
	KindDictionary             // object keyed by type or slug
)

// Flat-file resources served by the admin API.
const (
	ResSettings     = "settings"
	ResNavigation   = "navigation"
	ResHero         = "hero"
	ResAbout        = "about"
	ResFooter       = "footer"
	ResDestinations = "destinations"
	ResGuides       = "guides"
	ResNews         = "news"
	ResCategories   = "categories"
	ResPages        = "pages"
)

// Resources maps every admin resource to its stored shape.
var Resources = map[string]Kind{
	ResSettings:     KindSingleton,
	ResHero:         KindSingleton,
	ResAbout:        KindSingleton,
	ResFooter:       KindSingleton,
	ResNavigation:   KindList,
	ResDestinations: KindCollection,
	ResGuides:       KindCollection,
	ResNews:         KindCollection,
	ResCategories:   KindDictionary,
	ResPages:        KindDictionary,
}

// Empty returns the initial document for a resource kind.
func (k Kind) Empty() any {
	switch k {
	case KindList, KindCollection:
		return []any{}
	default:
		return map[string]any{}
	}
}

// Record is one JSON object of a collection resource.
type Record map[string]any

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidBody = errors.New("invalid JSON body")
)

// ParseError reports a resource file that is missing or does not hold the expected JSON.
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Resource, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
