package domain

// Destination is a row of the destinations table. ID doubles as the URL slug.
type Destination struct {
	ID               string  `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	Country          *string `db:"country" json:"country,omitempty"`
	Slug             *string `db:"slug" json:"slug,omitempty"`
	Summary          *string `db:"summary" json:"summary,omitempty"`
	HeroTitle        *string `db:"hero_title" json:"hero_title,omitempty"`
	HeroSubtitle     *string `db:"hero_subtitle" json:"hero_subtitle,omitempty"`
	HeroImage        *string `db:"hero_image" json:"hero_image,omitempty"`
	CardImage        *string `db:"card_image" json:"card_image,omitempty"`
	MetaTitle        *string `db:"meta_title" json:"meta_title,omitempty"`
	MetaDescription  *string `db:"meta_description" json:"meta_description,omitempty"`
	MoodTagline      *string `db:"mood_tagline" json:"mood_tagline,omitempty"`
	MoodPrimaryColor *string `db:"mood_primary_color" json:"mood_primary_color,omitempty"`
	MoodGradientFrom *string `db:"mood_gradient_from" json:"mood_gradient_from,omitempty"`
	MoodGradientTo   *string `db:"mood_gradient_to" json:"mood_gradient_to,omitempty"`
	IsActive         bool    `db:"is_active" json:"is_active"`
}

// DestinationPage is what the public site renders for /destinations/{id}.
type DestinationPage struct {
	Destination Destination      `json:"destination"`
	Attractions []AttractionCard `json:"attractions"`
}
