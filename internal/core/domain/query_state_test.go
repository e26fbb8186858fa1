package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestQueryStateForwardOrder(t *testing.T) {
	s := NewQueryState("run-1", "2 bed in Austin")

	require.Error(t, s.SetFilters(SearchFilters{}), "filters before location must fail")

	require.NoError(t, s.SetLocation("Austin, TX"))
	require.Error(t, s.SetLocation("Dallas, TX"), "location is write-once")
	assert.Equal(t, "Austin, TX", *s.CityState)

	require.NoError(t, s.SetFilters(SearchFilters{Bedrooms: intPtr(2), PriceMax: intPtr(2500)}))
	require.NoError(t, s.SetZipCodes([]string{"78701", "78702", "78703"}))
	assert.Equal(t, []string{"78701", "78702"}, s.ZipCodes)

	require.NoError(t, s.SetListings(nil))
	assert.Equal(t, StageListingsFetched, s.Stage)
	assert.NotNil(t, s.Listings)
}

func TestQueryStateRejectsMalformedLocation(t *testing.T) {
	for _, location := range []string{"Austin TX", "I'm sorry, I cannot determine the location", "Austin, TX, USA"} {
		s := NewQueryState("", "somewhere")
		require.Error(t, s.SetLocation(location), location)
		assert.Equal(t, StageStart, s.Stage)
		assert.Nil(t, s.CityState)
	}
}

func TestIsCityState(t *testing.T) {
	valid := []string{"Austin, TX", "New York,NY", " San Francisco , ca "}
	for _, s := range valid {
		assert.True(t, IsCityState(s), s)
	}

	invalid := []string{
		"",
		"Austin",
		", TX",
		"Austin, ",
		"Austin, Texas",
		"Austin, T1",
		"Austin, TX, USA",
		"I'm sorry, I cannot determine the location",
	}
	for _, s := range invalid {
		assert.False(t, IsCityState(s), s)
	}
}

func TestQueryStateAbort(t *testing.T) {
	s := NewQueryState("", "q")
	require.NoError(t, s.SetLocation("Austin, TX"))

	cause := errors.New("boom")
	err := s.Abort(ReasonInvalidQuery, errors.Join(ErrParameterExtractionFailed, cause))

	assert.Equal(t, StageAborted, s.Stage)
	assert.Equal(t, ReasonInvalidQuery, s.Error)
	assert.Equal(t, StageLocationResolved, err.Stage)
	assert.ErrorIs(t, err, ErrParameterExtractionFailed)

	reason, ok := AbortReason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonInvalidQuery, reason)
}

func TestQueryStateJSONShape(t *testing.T) {
	aborted := NewQueryState("", "q")
	aborted.Abort(ReasonNoZipCodes, ErrNoZipCodesFound)

	raw, err := json.Marshal(aborted)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, ReasonNoZipCodes, got["error"])
	assert.NotContains(t, got, "listings")
	assert.Equal(t, []any{}, got["zip_codes"])

	done := NewQueryState("", "q")
	require.NoError(t, done.SetLocation("Austin, TX"))
	require.NoError(t, done.SetFilters(SearchFilters{}))
	require.NoError(t, done.SetZipCodes([]string{"78701"}))
	require.NoError(t, done.SetListings(nil))

	raw, err = json.Marshal(done)
	require.NoError(t, err)
	got = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []any{}, got["listings"])
	assert.NotContains(t, got, "error")
}

func TestNewRentalSearchInputEncodesMissingBounds(t *testing.T) {
	in := NewRentalSearchInput([]string{"78701"}, SearchFilters{PriceMax: intPtr(2500)})

	assert.Equal(t, "", in.PriceMin)
	assert.Equal(t, 2500, in.PriceMax)
	assert.True(t, in.ForRent)
	assert.False(t, in.ForSaleByAgent)
	assert.False(t, in.ForSaleByOwner)
	assert.False(t, in.Sold)
}

func TestListingRecordString(t *testing.T) {
	l := ListingRecord{"address": "1 Main St", "beds": float64(2), "empty": ""}

	assert.Equal(t, "1 Main St", l.String("address", "N/A"))
	assert.Equal(t, "2", l.String("beds", "N/A"))
	assert.Equal(t, "N/A", l.String("empty", "N/A"))
	assert.Equal(t, "N/A", l.String("missing", "N/A"))
	assert.Equal(t, "N/A", l.Nested("variableData").String("text", "N/A"))
}

func TestSearchRequestValidate(t *testing.T) {
	negative, zero := -1, 0

	assert.NoError(t, SearchRequest{Query: "2 bed in Austin", Bedrooms: &zero}.Validate())
	assert.Error(t, SearchRequest{}.Validate())
	assert.Error(t, SearchRequest{Query: " \t"}.Validate())
	assert.ErrorContains(t, SearchRequest{Query: "x", PriceMin: &negative}.Validate(), "price_min")
	assert.ErrorContains(t, SearchRequest{Query: "x", Bedrooms: &negative}.Validate(), "bedrooms")
}
