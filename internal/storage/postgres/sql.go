package postgres

// AttractionCityCap bounds the attractions listed on a destination page. There is no pagination.
const AttractionCityCap = 60

const destinationColumns = `
  id, name, country, slug, summary, hero_title, hero_subtitle, hero_image, card_image,
  meta_title, meta_description, mood_tagline, mood_primary_color, mood_gradient_from,
  mood_gradient_to, is_active`

const getDestinationSQL = `SELECT` + destinationColumns + `
FROM destinations
WHERE id = $1 AND is_active = true`

const listActiveDestinationsSQL = `SELECT` + destinationColumns + `
FROM destinations
WHERE is_active = true
ORDER BY name`

const destinationIDByNameSQL = `SELECT id FROM destinations WHERE name = $1 LIMIT 1`

// jsonb columns are coalesced so a NULL never scans as an empty document.
const listAttractionsByCitySQL = `
SELECT id, slug, title, COALESCE(tiqets_images, '[]'::jsonb) AS tiqets_images,
       tiqets_rating, tiqets_review_count, price_usd, primary_category, duration
FROM tiqets_attractions
WHERE city_name = $1
ORDER BY tiqets_review_count DESC NULLS LAST, title ASC
LIMIT $2`

const getAttractionBySlugSQL = `
SELECT id, slug, title, h1_title, city_name, venue_name, venue_address, duration,
       COALESCE(tiqets_images, '[]'::jsonb) AS tiqets_images,
       tiqets_rating, tiqets_review_count, price_usd, prediscount_price_usd, discount_percentage,
       primary_category, wheelchair_access, smartphone_ticket, instant_ticket_delivery,
       cancellation_policy,
       COALESCE(tiqets_highlights, '[]'::jsonb) AS tiqets_highlights,
       tiqets_whats_included, tiqets_whats_excluded, product_url, meta_title, meta_description,
       COALESCE(ai_content, 'null'::jsonb) AS ai_content
FROM tiqets_attractions
WHERE slug = $1`

const upsertDestinationSQL = `
INSERT INTO destinations
  (id, name, country, slug, summary, hero_title, hero_subtitle, hero_image, card_image,
   meta_title, meta_description, mood_tagline, mood_primary_color, mood_gradient_from,
   mood_gradient_to, is_active)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
  name               = EXCLUDED.name,
  country            = EXCLUDED.country,
  slug               = EXCLUDED.slug,
  summary            = EXCLUDED.summary,
  hero_title         = EXCLUDED.hero_title,
  hero_subtitle      = EXCLUDED.hero_subtitle,
  hero_image         = EXCLUDED.hero_image,
  card_image         = EXCLUDED.card_image,
  meta_title         = EXCLUDED.meta_title,
  meta_description   = EXCLUDED.meta_description,
  mood_tagline       = EXCLUDED.mood_tagline,
  mood_primary_color = EXCLUDED.mood_primary_color,
  mood_gradient_from = EXCLUDED.mood_gradient_from,
  mood_gradient_to   = EXCLUDED.mood_gradient_to,
  is_active          = EXCLUDED.is_active
`

const upsertAttractionSQL = `
INSERT INTO tiqets_attractions
  (id, slug, title, h1_title, city_name, venue_name, venue_address, duration, tiqets_images,
   tiqets_rating, tiqets_review_count, price_usd, prediscount_price_usd, discount_percentage,
   primary_category, wheelchair_access, smartphone_ticket, instant_ticket_delivery,
   cancellation_policy, tiqets_highlights, tiqets_whats_included, tiqets_whats_excluded,
   product_url, meta_title, meta_description, ai_content)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14, $15, $16, $17, $18,
   $19, $20::jsonb, $21, $22, $23, $24, $25, $26::jsonb)
ON CONFLICT (id) DO UPDATE SET
  slug                    = EXCLUDED.slug,
  title                   = EXCLUDED.title,
  h1_title                = EXCLUDED.h1_title,
  city_name               = EXCLUDED.city_name,
  venue_name              = EXCLUDED.venue_name,
  venue_address           = EXCLUDED.venue_address,
  duration                = EXCLUDED.duration,
  tiqets_images           = EXCLUDED.tiqets_images,
  tiqets_rating           = EXCLUDED.tiqets_rating,
  tiqets_review_count     = EXCLUDED.tiqets_review_count,
  price_usd               = EXCLUDED.price_usd,
  prediscount_price_usd   = EXCLUDED.prediscount_price_usd,
  discount_percentage     = EXCLUDED.discount_percentage,
  primary_category        = EXCLUDED.primary_category,
  wheelchair_access       = EXCLUDED.wheelchair_access,
  smartphone_ticket       = EXCLUDED.smartphone_ticket,
  instant_ticket_delivery = EXCLUDED.instant_ticket_delivery,
  cancellation_policy     = EXCLUDED.cancellation_policy,
  tiqets_highlights       = EXCLUDED.tiqets_highlights,
  tiqets_whats_included   = EXCLUDED.tiqets_whats_included,
  tiqets_whats_excluded   = EXCLUDED.tiqets_whats_excluded,
  product_url             = EXCLUDED.product_url,
  meta_title              = EXCLUDED.meta_title,
  meta_description        = EXCLUDED.meta_description,
  ai_content              = EXCLUDED.ai_content,
  updated_at              = now()
`
