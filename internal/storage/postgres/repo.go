package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"travi_content/internal/domain"
)

func valJSON(j types.JSONText) any {
	if len(j) == 0 {
		return nil
	}
	return string(j)
}

// Repo is the relational store behind the public site and the seeder.
type Repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetDestination(ctx context.Context, id string) (domain.Destination, error) {
	var d domain.Destination
	if err := r.db.GetContext(ctx, &d, getDestinationSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Destination{}, domain.ErrNotFound
		}
		return domain.Destination{}, err
	}
	return d, nil
}

func (r *Repo) ListActiveDestinations(ctx context.Context) ([]domain.Destination, error) {
	out := []domain.Destination{}
	if err := r.db.SelectContext(ctx, &out, listActiveDestinationsSQL); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAttractionsByCity returns at most AttractionCityCap cards, most reviewed first.
func (r *Repo) ListAttractionsByCity(ctx context.Context, city string) ([]domain.AttractionCard, error) {
	out := []domain.AttractionCard{}
	if err := r.db.SelectContext(ctx, &out, listAttractionsByCitySQL, city, AttractionCityCap); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetAttractionBySlug(ctx context.Context, slug string) (domain.Attraction, error) {
	var a domain.Attraction
	if err := r.db.GetContext(ctx, &a, getAttractionBySlugSQL, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attraction{}, domain.ErrNotFound
		}
		return domain.Attraction{}, err
	}
	return a, nil
}

func (r *Repo) DestinationIDByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	err := r.db.GetContext(ctx, &id, destinationIDByNameSQL, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r *Repo) UpsertDestination(ctx context.Context, d domain.Destination) error {
	_, err := r.db.ExecContext(ctx, upsertDestinationSQL,
		d.ID, d.Name, d.Country, d.Slug, d.Summary,
		d.HeroTitle, d.HeroSubtitle, d.HeroImage, d.CardImage,
		d.MetaTitle, d.MetaDescription, d.MoodTagline,
		d.MoodPrimaryColor, d.MoodGradientFrom, d.MoodGradientTo,
		d.IsActive,
	)
	return err
}

func (r *Repo) UpsertAttraction(ctx context.Context, a domain.Attraction) error {
	_, err := r.db.ExecContext(ctx, upsertAttractionSQL,
		a.ID, a.Slug, a.Title, a.H1Title, a.CityName, a.VenueName, a.VenueAddress, a.Duration,
		valJSON(a.Images),
		a.Rating, a.ReviewCount, a.PriceUSD, a.PrediscountPriceUSD, a.DiscountPercentage,
		a.PrimaryCategory, a.WheelchairAccess, a.SmartphoneTicket, a.InstantTicketDelivery,
		a.CancellationPolicy,
		valJSON(a.Highlights),
		a.WhatsIncluded, a.WhatsExcluded, a.ProductURL, a.MetaTitle, a.MetaDescription,
		valJSON(a.AIContent),
	)
	return err
}
