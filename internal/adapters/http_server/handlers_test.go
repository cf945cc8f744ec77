package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "travi_content/internal/adapters/http_server"
	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/i18n"
)

type siteRepo struct {
	dests   map[string]domain.Destination
	attrs   map[string]domain.Attraction
	failErr error
}

func (f *siteRepo) GetDestination(ctx context.Context, id string) (domain.Destination, error) {
	if f.failErr != nil {
		return domain.Destination{}, f.failErr
	}
	d, ok := f.dests[id]
	if !ok || !d.IsActive {
		return domain.Destination{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *siteRepo) ListActiveDestinations(ctx context.Context) ([]domain.Destination, error) {
	var out []domain.Destination
	for _, d := range f.dests {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *siteRepo) ListAttractionsByCity(ctx context.Context, city string) ([]domain.AttractionCard, error) {
	var out []domain.AttractionCard
	for _, a := range f.attrs {
		if a.CityName != nil && *a.CityName == city {
			out = append(out, domain.AttractionCard{ID: a.ID, Slug: a.Slug, Title: a.Title, Images: a.Images})
		}
	}
	return out, nil
}

func (f *siteRepo) GetAttractionBySlug(ctx context.Context, slug string) (domain.Attraction, error) {
	a, ok := f.attrs[slug]
	if !ok {
		return domain.Attraction{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *siteRepo) DestinationIDByName(ctx context.Context, name string) (string, bool, error) {
	for _, d := range f.dests {
		if d.Name == name {
			return d.ID, true, nil
		}
	}
	return "", false, nil
}

func str(s string) *string { return &s }

func newSite(t *testing.T, repo *siteRepo) *httptest.Server {
	t.Helper()
	res, err := i18n.NewResolver("en")
	require.NoError(t, err)
	s := httpserver.New(httpserver.Options{Locale: res})
	s.MountSite(&httpserver.SiteHandlers{Q: app.NewSiteQueryService(repo, nil, time.Minute)})
	srv := httptest.NewServer(s.Mux())
	t.Cleanup(srv.Close)
	return srv
}

func seededSite() *siteRepo {
	return &siteRepo{
		dests: map[string]domain.Destination{
			"dubai":  {ID: "dubai", Name: "Dubai", IsActive: true},
			"hidden": {ID: "hidden", Name: "Hidden", IsActive: false},
		},
		attrs: map[string]domain.Attraction{
			"burj-khalifa": {ID: "a1", Slug: "burj-khalifa", Title: "Burj Khalifa", CityName: str("Dubai"), Images: []byte(`[]`)},
			"orphan":       {ID: "a2", Slug: "orphan", Title: "Orphan", CityName: str("Atlantis"), Images: []byte(`[]`)},
		},
	}
}

var noRedirect = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := noRedirect.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type envelope struct {
	Locale string          `json:"locale"`
	Dir    string          `json:"dir"`
	Data   json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestSite_DestinationPage(t *testing.T) {
	srv := newSite(t, seededSite())

	resp := get(t, srv.URL+"/ar/destinations/dubai", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ar", resp.Header.Get("Content-Language"))
	etag := resp.Header.Get("ETag")
	assert.NotEmpty(t, etag)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "ar", env.Locale)
	assert.Equal(t, "rtl", env.Dir)
	var page domain.DestinationPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "Dubai", page.Destination.Name)
	require.Len(t, page.Attractions, 1)
	assert.Equal(t, "burj-khalifa", page.Attractions[0].Slug)

	again := get(t, srv.URL+"/ar/destinations/dubai", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, again.StatusCode)
}

func TestSite_InactiveAndAbsentAreIdentical(t *testing.T) {
	srv := newSite(t, seededSite())

	a := get(t, srv.URL+"/en/destinations/hidden", nil)
	b := get(t, srv.URL+"/en/destinations/nowhere", nil)
	ab, _ := io.ReadAll(a.Body)
	bb, _ := io.ReadAll(b.Body)

	assert.Equal(t, http.StatusNotFound, a.StatusCode)
	assert.Equal(t, a.StatusCode, b.StatusCode)
	assert.Equal(t, "application/problem+json", a.Header.Get("Content-Type"))
	assert.Equal(t, string(ab), string(bb))
}

func TestSite_AttractionBreadcrumb(t *testing.T) {
	srv := newSite(t, seededSite())

	var page domain.AttractionPage
	resp := get(t, srv.URL+"/fr/attractions/burj-khalifa", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &page))
	require.NotNil(t, page.DestinationID)
	assert.Equal(t, "dubai", *page.DestinationID)

	page = domain.AttractionPage{}
	resp = get(t, srv.URL+"/fr/attractions/orphan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &page))
	assert.Nil(t, page.DestinationID)

	resp = get(t, srv.URL+"/fr/attractions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSite_DestinationsIndex(t *testing.T) {
	srv := newSite(t, seededSite())

	resp := get(t, srv.URL+"/en/destinations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Destination
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "dubai", list[0].ID)
}

func TestSite_LocaleRedirects(t *testing.T) {
	srv := newSite(t, seededSite())

	resp := get(t, srv.URL+"/destinations/dubai", map[string]string{"Accept-Language": "he-IL,he;q=0.9"})
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/he/destinations/dubai", resp.Header.Get("Location"))

	resp = get(t, srv.URL+"/destinations", map[string]string{"Cookie": i18n.CookieName + "=ja"})
	assert.Equal(t, "/ja/destinations", resp.Header.Get("Location"))

	resp = get(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSite_UpstreamFailureIs500Problem(t *testing.T) {
	repo := seededSite()
	repo.failErr = errors.New("connection refused")
	srv := newSite(t, repo)

	resp := get(t, srv.URL+"/en/destinations/dubai", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestSite_PathLocaleWithoutRoutingMiddleware(t *testing.T) {
	s := httpserver.New(httpserver.Options{})
	s.MountSite(&httpserver.SiteHandlers{Q: app.NewSiteQueryService(seededSite(), nil, time.Minute)})
	srv := httptest.NewServer(s.Mux())
	t.Cleanup(srv.Close)

	resp := get(t, srv.URL+"/he/destinations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "he", env.Locale)
	assert.Equal(t, "rtl", env.Dir)

	resp = get(t, srv.URL+"/xx/destinations", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
