package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"travi_content/internal/domain"
)

// Fixtures is the YAML document the seeder loads.
type Fixtures struct {
	Destinations []DestinationFixture `yaml:"destinations" validate:"dive"`
	Attractions  []AttractionFixture  `yaml:"attractions" validate:"dive"`
}

type DestinationFixture struct {
	ID               string  `yaml:"id" validate:"required"`
	Name             string  `yaml:"name" validate:"required"`
	Country          *string `yaml:"country"`
	Summary          *string `yaml:"summary"`
	HeroTitle        *string `yaml:"hero_title"`
	HeroSubtitle     *string `yaml:"hero_subtitle"`
	HeroImage        *string `yaml:"hero_image"`
	CardImage        *string `yaml:"card_image"`
	MetaTitle        *string `yaml:"meta_title"`
	MetaDescription  *string `yaml:"meta_description"`
	MoodTagline      *string `yaml:"mood_tagline"`
	MoodPrimaryColor *string `yaml:"mood_primary_color"`
	MoodGradientFrom *string `yaml:"mood_gradient_from"`
	MoodGradientTo   *string `yaml:"mood_gradient_to"`
	Active           *bool   `yaml:"is_active"`
}

type AttractionFixture struct {
	ID                  string         `yaml:"id"`
	Slug                string         `yaml:"slug" validate:"required"`
	Title               string         `yaml:"title" validate:"required"`
	CityName            string         `yaml:"city_name" validate:"required"`
	H1Title             *string        `yaml:"h1_title"`
	VenueName           *string        `yaml:"venue_name"`
	VenueAddress        *string        `yaml:"venue_address"`
	Duration            *string        `yaml:"duration"`
	Images              []domain.Image `yaml:"tiqets_images"`
	Rating              *float64       `yaml:"tiqets_rating" validate:"omitempty,gte=0,lte=5"`
	ReviewCount         *int           `yaml:"tiqets_review_count" validate:"omitempty,gte=0"`
	PriceUSD            *float64       `yaml:"price_usd" validate:"omitempty,gte=0"`
	PrediscountPriceUSD *float64       `yaml:"prediscount_price_usd"`
	DiscountPercentage  *float64       `yaml:"discount_percentage"`
	PrimaryCategory     *string        `yaml:"primary_category"`
	WheelchairAccess    *bool          `yaml:"wheelchair_access"`
	SmartphoneTicket    *bool          `yaml:"smartphone_ticket"`
	InstantDelivery     *bool          `yaml:"instant_ticket_delivery"`
	CancellationPolicy  *string        `yaml:"cancellation_policy"`
	Highlights          []string       `yaml:"tiqets_highlights"`
	WhatsIncluded       *string        `yaml:"tiqets_whats_included"`
	WhatsExcluded       *string        `yaml:"tiqets_whats_excluded"`
	ProductURL          *string        `yaml:"product_url"`
	MetaTitle           *string        `yaml:"meta_title"`
	MetaDescription     *string        `yaml:"meta_description"`
	AIContent           map[string]any `yaml:"ai_content"`
}

var fixtureValidator = validator.New()

// LoadFixtures parses and validates a YAML fixture document.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fixtureValidator.Struct(fx); err != nil {
		return Fixtures{}, fmt.Errorf("invalid fixtures: %w", err)
	}
	return fx, nil
}

func (f DestinationFixture) Destination() domain.Destination {
	active := true
	if f.Active != nil {
		active = *f.Active
	}
	id := f.ID
	return domain.Destination{
		ID: f.ID, Name: f.Name, Country: f.Country, Slug: &id, Summary: f.Summary,
		HeroTitle: f.HeroTitle, HeroSubtitle: f.HeroSubtitle, HeroImage: f.HeroImage, CardImage: f.CardImage,
		MetaTitle: f.MetaTitle, MetaDescription: f.MetaDescription, MoodTagline: f.MoodTagline,
		MoodPrimaryColor: f.MoodPrimaryColor, MoodGradientFrom: f.MoodGradientFrom, MoodGradientTo: f.MoodGradientTo,
		IsActive: active,
	}
}

// Attraction converts the fixture, assigning a random UUID when it has no id.
func (f AttractionFixture) Attraction() (domain.Attraction, error) {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	images, err := jsonText(f.Images)
	if err != nil {
		return domain.Attraction{}, err
	}
	highlights, err := jsonText(f.Highlights)
	if err != nil {
		return domain.Attraction{}, err
	}
	ai, err := jsonText(f.AIContent)
	if err != nil {
		return domain.Attraction{}, err
	}
	city := f.CityName
	return domain.Attraction{
		ID: id, Slug: f.Slug, Title: f.Title, H1Title: f.H1Title, CityName: &city,
		VenueName: f.VenueName, VenueAddress: f.VenueAddress, Duration: f.Duration, Images: images,
		Rating: f.Rating, ReviewCount: f.ReviewCount, PriceUSD: f.PriceUSD,
		PrediscountPriceUSD: f.PrediscountPriceUSD, DiscountPercentage: f.DiscountPercentage,
		PrimaryCategory: f.PrimaryCategory, WheelchairAccess: f.WheelchairAccess,
		SmartphoneTicket: f.SmartphoneTicket, InstantTicketDelivery: f.InstantDelivery,
		CancellationPolicy: f.CancellationPolicy, Highlights: highlights,
		WhatsIncluded: f.WhatsIncluded, WhatsExcluded: f.WhatsExcluded, ProductURL: f.ProductURL,
		MetaTitle: f.MetaTitle, MetaDescription: f.MetaDescription, AIContent: ai,
	}, nil
}

// jsonText encodes v; nil slices and maps become SQL NULL.
func jsonText[T any](v T) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return types.JSONText(b), nil
}

// SeedService writes fixtures into the relational store and evicts the site pages they affect.
type SeedService struct {
	repo  domain.SeedRepository
	cache domain.Cache
}

func NewSeedService(r domain.SeedRepository, cache domain.Cache) *SeedService {
	if cache == nil {
		cache = NopCache{}
	}
	return &SeedService{repo: r, cache: cache}
}

func (s *SeedService) SeedDestination(ctx context.Context, f DestinationFixture) error {
	d := f.Destination()
	if err := s.repo.UpsertDestination(ctx, d); err != nil {
		return fmt.Errorf("upsert destination %s: %w", d.ID, err)
	}
	_ = s.cache.Del(ctx, DestinationKey(d.ID))
	_ = s.cache.Del(ctx, DestinationsKey())
	return nil
}

func (s *SeedService) SeedAttraction(ctx context.Context, f AttractionFixture) error {
	a, err := f.Attraction()
	if err != nil {
		return fmt.Errorf("convert attraction %s: %w", f.Slug, err)
	}
	if err := s.repo.UpsertAttraction(ctx, a); err != nil {
		return fmt.Errorf("upsert attraction %s: %w", a.Slug, err)
	}
	_ = s.cache.Del(ctx, AttractionKey(a.Slug))

	// The destination page embeds the city's attraction list.
	if id, ok, err := s.repo.DestinationIDByName(ctx, f.CityName); err == nil && ok {
		_ = s.cache.Del(ctx, DestinationKey(id))
	}
	return nil
}
