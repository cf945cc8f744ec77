package app

import (
	"context"
	"time"

	"travi_content/internal/domain"
)

// Cache keys of the public site pages. The seeder evicts them after writes.
const destinationsKey = "site:destinations"

func DestinationKey(id string) string  { return "site:destination:" + id }
func AttractionKey(slug string) string { return "site:attraction:" + slug }
func DestinationsKey() string          { return destinationsKey }

// SiteQueryService serves public site pages from the relational store through a read-through cache.
// Not-found results are never cached.
type SiteQueryService struct {
	repo     domain.SiteRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewSiteQueryService(r domain.SiteRepository, c domain.Cache, ttl time.Duration) *SiteQueryService {
	if c == nil {
		c = NopCache{}
	}
	return &SiteQueryService{repo: r, cache: c, cacheTTL: ttl}
}

// Destination returns an active destination with the attractions whose city_name equals its name.
// Missing and inactive destinations both yield domain.ErrNotFound.
func (s *SiteQueryService) Destination(ctx context.Context, id string) (domain.DestinationPage, error) {
	key := DestinationKey(id)
	var page domain.DestinationPage
	if ok, _ := s.cache.Get(ctx, key, &page); ok {
		return page, nil
	}
	d, err := s.repo.GetDestination(ctx, id)
	if err != nil {
		return domain.DestinationPage{}, err
	}
	cards, err := s.repo.ListAttractionsByCity(ctx, d.Name)
	if err != nil {
		return domain.DestinationPage{}, err
	}
	if cards == nil {
		cards = []domain.AttractionCard{}
	}
	page = domain.DestinationPage{Destination: d, Attractions: cards}
	_ = s.cache.Set(ctx, key, page, s.ttlSeconds())
	return page, nil
}

// Destinations lists active destinations for the index page.
func (s *SiteQueryService) Destinations(ctx context.Context) ([]domain.Destination, error) {
	var out []domain.Destination
	if ok, _ := s.cache.Get(ctx, destinationsKey, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListActiveDestinations(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Destination{}
	}
	_ = s.cache.Set(ctx, destinationsKey, out, s.ttlSeconds())
	return out, nil
}

// Attraction returns an attraction by slug plus the id of the destination named like its city.
// An unresolved city leaves DestinationID nil instead of failing.
func (s *SiteQueryService) Attraction(ctx context.Context, slug string) (domain.AttractionPage, error) {
	key := AttractionKey(slug)
	var page domain.AttractionPage
	if ok, _ := s.cache.Get(ctx, key, &page); ok {
		return page, nil
	}
	a, err := s.repo.GetAttractionBySlug(ctx, slug)
	if err != nil {
		return domain.AttractionPage{}, err
	}
	page = domain.AttractionPage{Attraction: a}
	if a.CityName != nil && *a.CityName != "" {
		id, ok, err := s.repo.DestinationIDByName(ctx, *a.CityName)
		if err != nil {
			return domain.AttractionPage{}, err
		}
		if ok {
			page.DestinationID = &id
		}
	}
	_ = s.cache.Set(ctx, key, page, s.ttlSeconds())
	return page, nil
}

func (s *SiteQueryService) ttlSeconds() int { return int(s.cacheTTL.Seconds()) }

// NopCache never hits. Used when no Redis is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any, int) error    { return nil }
func (NopCache) Del(context.Context, string) error              { return nil }
