package domain

import (
	"context"
	"encoding/json"
)

// DocumentStore persists one JSON value per named resource.
type DocumentStore interface {
	Get(ctx context.Context, resource string) (json.RawMessage, error)
	Set(ctx context.Context, resource string, v any) error
}

// SiteRepository is the public site's read path over the relational store.
type SiteRepository interface {
	GetDestination(ctx context.Context, id string) (Destination, error)
	ListActiveDestinations(ctx context.Context) ([]Destination, error)
	ListAttractionsByCity(ctx context.Context, city string) ([]AttractionCard, error)
	GetAttractionBySlug(ctx context.Context, slug string) (Attraction, error)
	// DestinationIDByName resolves the denormalized city_name join; ok is false when nothing matches.
	DestinationIDByName(ctx context.Context, name string) (id string, ok bool, err error)
}

// SeedRepository is the write path used by the fixture loader.
type SeedRepository interface {
	UpsertDestination(ctx context.Context, d Destination) error
	UpsertAttraction(ctx context.Context, a Attraction) error
	DestinationIDByName(ctx context.Context, name string) (id string, ok bool, err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
