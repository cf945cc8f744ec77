package domain

import (
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
)

// Attraction is a row of tiqets_attractions. CityName joins to Destination.Name by string equality.
type Attraction struct {
	ID                    string         `db:"id" json:"id"`
	Slug                  string         `db:"slug" json:"slug"`
	Title                 string         `db:"title" json:"title"`
	H1Title               *string        `db:"h1_title" json:"h1_title,omitempty"`
	CityName              *string        `db:"city_name" json:"city_name,omitempty"`
	VenueName             *string        `db:"venue_name" json:"venue_name,omitempty"`
	VenueAddress          *string        `db:"venue_address" json:"venue_address,omitempty"`
	Duration              *string        `db:"duration" json:"duration,omitempty"`
	Images                types.JSONText `db:"tiqets_images" json:"tiqets_images"`
	Rating                *float64       `db:"tiqets_rating" json:"tiqets_rating,omitempty"`
	ReviewCount           *int           `db:"tiqets_review_count" json:"tiqets_review_count,omitempty"`
	PriceUSD              *float64       `db:"price_usd" json:"price_usd,omitempty"`
	PrediscountPriceUSD   *float64       `db:"prediscount_price_usd" json:"prediscount_price_usd,omitempty"`
	DiscountPercentage    *float64       `db:"discount_percentage" json:"discount_percentage,omitempty"`
	PrimaryCategory       *string        `db:"primary_category" json:"primary_category,omitempty"`
	WheelchairAccess      *bool          `db:"wheelchair_access" json:"wheelchair_access,omitempty"`
	SmartphoneTicket      *bool          `db:"smartphone_ticket" json:"smartphone_ticket,omitempty"`
	InstantTicketDelivery *bool          `db:"instant_ticket_delivery" json:"instant_ticket_delivery,omitempty"`
	CancellationPolicy    *string        `db:"cancellation_policy" json:"cancellation_policy,omitempty"`
	Highlights            types.JSONText `db:"tiqets_highlights" json:"tiqets_highlights"`
	WhatsIncluded         *string        `db:"tiqets_whats_included" json:"tiqets_whats_included,omitempty"`
	WhatsExcluded         *string        `db:"tiqets_whats_excluded" json:"tiqets_whats_excluded,omitempty"`
	ProductURL            *string        `db:"product_url" json:"product_url,omitempty"`
	MetaTitle             *string        `db:"meta_title" json:"meta_title,omitempty"`
	MetaDescription       *string        `db:"meta_description" json:"meta_description,omitempty"`
	AIContent             types.JSONText `db:"ai_content" json:"ai_content"` // unvalidated JSON
}

// AttractionCard is the subset of columns listed on a destination page.
type AttractionCard struct {
	ID              string         `db:"id" json:"id"`
	Slug            string         `db:"slug" json:"slug"`
	Title           string         `db:"title" json:"title"`
	Images          types.JSONText `db:"tiqets_images" json:"tiqets_images"`
	Rating          *float64       `db:"tiqets_rating" json:"tiqets_rating,omitempty"`
	ReviewCount     *int           `db:"tiqets_review_count" json:"tiqets_review_count,omitempty"`
	PriceUSD        *float64       `db:"price_usd" json:"price_usd,omitempty"`
	PrimaryCategory *string        `db:"primary_category" json:"primary_category,omitempty"`
	Duration        *string        `db:"duration" json:"duration,omitempty"`
}

// Image is one entry of tiqets_images.
type Image struct {
	Large      string `json:"large,omitempty" yaml:"large"`
	ExtraLarge string `json:"extra_large,omitempty" yaml:"extra_large"`
	AltText    string `json:"alt_text,omitempty" yaml:"alt_text"`
}

// ImageList decodes tiqets_images; a NULL column decodes to no images.
func (a Attraction) ImageList() ([]Image, error) {
	var out []Image
	if len(a.Images) == 0 || string(a.Images) == "null" {
		return out, nil
	}
	err := json.Unmarshal(a.Images, &out)
	return out, err
}

// AttractionPage is what the public site renders for /attractions/{slug}.
// DestinationID is nil when no destination carries the attraction's city name.
type AttractionPage struct {
	Attraction    Attraction `json:"attraction"`
	DestinationID *string    `json:"destination_id,omitempty"`
}
