package apify_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"real-estate-search-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{Token: "t", WaitForFinish: 500})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultActorID, c.actorID)
	assert.Equal(t, 60, c.waitForFinish)
	assert.Equal(t, 1000, c.pageSize)
	assert.Equal(t, "maxcopell~zillow-zip-search", actorPathID(c.actorID))
}

func TestStartSearchPollsUntilSucceeded(t *testing.T) {
	var input map[string]any
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/maxcopell~zillow-zip-search/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "60", r.URL.Query().Get("waitForFinish"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"RUNNING","defaultDatasetId":"ds-1"}}`))
	})
	mux.HandleFunc("/v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		status := "RUNNING"
		if atomic.AddInt32(&polls, 1) >= 2 {
			status = "SUCCEEDED"
		}
		fmt.Fprintf(w, `{"data":{"id":"run-1","status":%q,"defaultDatasetId":"ds-1"}}`, status)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(Config{Token: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	maxPrice := 2500
	handle, err := c.StartSearch(context.Background(), domain.NewRentalSearchInput(
		[]string{"78701"}, domain.SearchFilters{PriceMax: &maxPrice},
	))
	require.NoError(t, err)

	assert.Equal(t, domain.ResultSetHandle{RunID: "run-1", DatasetID: "ds-1"}, handle)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
	assert.Equal(t, []any{"78701"}, input["zipCodes"])
	assert.Equal(t, float64(2500), input["priceMax"])
	assert.Equal(t, "", input["priceMin"])
	assert.Equal(t, true, input["forRent"])
	assert.Equal(t, false, input["sold"])
}

func TestStartSearchFailures(t *testing.T) {
	cases := map[string]string{
		"failed run":   `{"data":{"id":"run-1","status":"FAILED","statusMessage":"actor crashed"}}`,
		"timed out":    `{"data":{"id":"run-1","status":"TIMED-OUT"}}`,
		"no dataset":   `{"data":{"id":"run-1","status":"SUCCEEDED"}}`,
		"missing id":   `{"data":{"status":"SUCCEEDED","defaultDatasetId":"ds"}}`,
		"garbage body": `<html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c, _ := NewClient(Config{Token: "t", BaseURL: srv.URL})
			_, err := c.StartSearch(context.Background(), domain.NewRentalSearchInput([]string{"1"}, domain.SearchFilters{}))
			assert.Error(t, err)
		})
	}
}

func TestStartSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{Token: "bad", BaseURL: srv.URL})
	_, err := c.StartSearch(context.Background(), domain.NewRentalSearchInput([]string{"1"}, domain.SearchFilters{}))
	assert.ErrorContains(t, err, "token-not-valid")
}

func TestIterateResultsPagesUntilShortPage(t *testing.T) {
	const total = 5
	var offsets []int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/datasets/ds-1/items", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "true", r.URL.Query().Get("clean"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offsets = append(offsets, offset)

		items := []map[string]any{}
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]any{"zpid": strconv.Itoa(i)})
		}
		_ = json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{Token: "t", BaseURL: srv.URL, PageSize: 2})

	var got []string
	err := c.IterateResults(context.Background(), domain.ResultSetHandle{RunID: "run-1", DatasetID: "ds-1"}, func(rec domain.ListingRecord) error {
		got = append(got, rec.String("zpid", ""))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, got)
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestIterateResultsStopsOnYieldError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"a":1},{"a":2}]`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{Token: "t", BaseURL: srv.URL})
	stop := fmt.Errorf("stop")
	calls := 0
	err := c.IterateResults(context.Background(), domain.ResultSetHandle{DatasetID: "ds"}, func(domain.ListingRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestIterateResultsRequiresDataset(t *testing.T) {
	c, _ := NewClient(Config{Token: "t"})
	err := c.IterateResults(context.Background(), domain.ResultSetHandle{}, func(domain.ListingRecord) error { return nil })
	assert.Error(t, err)
}
