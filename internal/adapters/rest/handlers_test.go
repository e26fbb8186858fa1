package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearchUC struct {
	got   []domain.SearchRequest
	state func(req domain.SearchRequest) (*domain.QueryState, error)
}

func (f *fakeSearchUC) Execute(_ context.Context, req domain.SearchRequest) (*domain.QueryState, error) {
	f.got = append(f.got, req)
	return f.state(req)
}

type fakePublishUC struct {
	published []*domain.QueryState
	err       error
}

func (f *fakePublishUC) Execute(_ context.Context, state *domain.QueryState) error {
	f.published = append(f.published, state)
	return f.err
}

type fakeReports map[string]string

func (f fakeReports) GetReport(_ context.Context, key string) (string, error) {
	if key == "broken.md" {
		return "", errors.New("db down")
	}
	content, ok := f[key]
	if !ok {
		return "", domain.ErrReportNotFound
	}
	return content, nil
}

func fetched(req domain.SearchRequest) (*domain.QueryState, error) {
	s := domain.NewQueryState("run-1", req.Query)
	_ = s.SetLocation("Austin, TX")
	_ = s.SetFilters(domain.SearchFilters{CityState: "Austin, TX"})
	_ = s.SetZipCodes([]string{"78701"})
	_ = s.SetListings([]domain.ListingRecord{{"address": "1 Congress Ave"}})
	return s, nil
}

func abortedWith(reason string) func(domain.SearchRequest) (*domain.QueryState, error) {
	return func(req domain.SearchRequest) (*domain.QueryState, error) {
		s := domain.NewQueryState("run-2", req.Query)
		return s, s.Abort(reason, errors.New("cause"))
	}
}

func newTestRouter(search *fakeSearchUC, publish *fakePublishUC, reports fakeReports) http.Handler {
	var reader port.ReportReaderPort
	if reports != nil {
		reader = reports
	}
	h := NewSearchHandler(search, publish, reader)
	return NewRouter(h, []string{"http://localhost:5173"}, contextkeys.NoopLogger())
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSearchSuccess(t *testing.T) {
	search := &fakeSearchUC{state: fetched}
	publish := &fakePublishUC{}
	router := newTestRouter(search, publish, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search", `{"query":"2 bed in Austin","bedrooms":2,"zip_codes":["78701"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "LISTINGS_FETCHED", body["stage"])
	assert.Equal(t, "Austin, TX", body["city_state"])
	assert.Len(t, body["listings"], 1)

	require.Len(t, search.got, 1)
	assert.Equal(t, 2, *search.got[0].Bedrooms)
	assert.Equal(t, []string{"78701"}, search.got[0].ZipCodes)
	assert.Len(t, publish.published, 1)
}

func TestSearchAbortStatusCodes(t *testing.T) {
	cases := map[string]int{
		domain.ReasonInvalidQuery:  http.StatusUnprocessableEntity,
		domain.ReasonNoZipCodes:    http.StatusUnprocessableEntity,
		domain.ReasonFetchListings: http.StatusBadGateway,
	}
	for reason, want := range cases {
		t.Run(reason, func(t *testing.T) {
			publish := &fakePublishUC{}
			router := newTestRouter(&fakeSearchUC{state: abortedWith(reason)}, publish, nil)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/search", `{"query":"somewhere"}`)
			assert.Equal(t, want, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ABORTED", body["stage"])
			assert.Equal(t, reason, body["error"])
			assert.NotContains(t, body, "listings")
			assert.Len(t, publish.published, 1, "aborted records are published too")
		})
	}
}

func TestSearchPublishFailureDoesNotChangeResponse(t *testing.T) {
	router := newTestRouter(&fakeSearchUC{state: fetched}, &fakePublishUC{err: errors.New("broker down")}, nil)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/search", `{"query":"2 bed in Austin"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchBadRequests(t *testing.T) {
	bodies := []string{
		`not json`,
		`{}`,
		`{"query":"   "}`,
		`{"query":"x","price_max":-1}`,
	}
	for _, body := range bodies {
		search := &fakeSearchUC{state: fetched}
		rec := doRequest(t, newTestRouter(search, &fakePublishUC{}, nil), http.MethodPost, "/api/v1/search", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Empty(t, search.got, body)
	}
}

func TestSearchUnexpectedFailure(t *testing.T) {
	search := &fakeSearchUC{state: func(domain.SearchRequest) (*domain.QueryState, error) {
		return nil, errors.New("unexpected")
	}}
	publish := &fakePublishUC{}
	rec := doRequest(t, newTestRouter(search, publish, nil), http.MethodPost, "/api/v1/search", `{"query":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, publish.published)
}

func TestGetReport(t *testing.T) {
	router := newTestRouter(&fakeSearchUC{}, &fakePublishUC{}, fakeReports{"report.md": "# report"})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/reports/report.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# report", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/v1/reports/missing.md", "").Code)
	assert.Equal(t, http.StatusInternalServerError, doRequest(t, router, http.MethodGet, "/api/v1/reports/broken.md", "").Code)
}

func TestGetReportWithoutStorage(t *testing.T) {
	router := newTestRouter(&fakeSearchUC{}, &fakePublishUC{}, nil)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/v1/reports/report.md", "").Code)
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeSearchUC{}, &fakePublishUC{}, nil), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoggerMiddlewareKeepsValidTraceID(t *testing.T) {
	const traceID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	var seen string
	h := LoggerMiddleware(contextkeys.NoopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = contextkeys.TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", traceID)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, traceID, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "not-a-uuid", seen)
	assert.NotEmpty(t, seen)
}
