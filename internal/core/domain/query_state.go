package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxZipCodes ограничивает число почтовых индексов в одном поиске
const MaxZipCodes = 2

// Stage - позиция запроса в конвейере
type Stage string

const (
	StageStart            Stage = "START"
	StageLocationResolved Stage = "LOCATION_RESOLVED"
	StageParamsExtracted  Stage = "PARAMS_EXTRACTED"
	StageZipsResolved     Stage = "ZIPS_RESOLVED"
	StageListingsFetched  Stage = "LISTINGS_FETCHED"
	StageAborted          Stage = "ABORTED"
)

// IsTerminal сообщает, завершен ли конвейер
func (s Stage) IsTerminal() bool {
	return s == StageListingsFetched || s == StageAborted
}

// SearchRequest - входные данные одного вызова.
// Структурированные поля необязательны и имеют приоритет над извлеченными моделью.
type SearchRequest struct {
	Query    string   `json:"query"`
	ZipCodes []string `json:"zip_codes,omitempty"`
	Bedrooms *int     `json:"bedrooms,omitempty"`
	PriceMin *int     `json:"price_min,omitempty"`
	PriceMax *int     `json:"price_max,omitempty"`
}

// Validate проверяет запрос до запуска конвейера
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query is required")
	}
	bounds := []struct {
		name  string
		value *int
	}{
		{"bedrooms", r.Bedrooms},
		{"price_min", r.PriceMin},
		{"price_max", r.PriceMax},
	}
	for _, b := range bounds {
		if b.value != nil && *b.value < 0 {
			return fmt.Errorf("%s must not be negative", b.name)
		}
	}
	return nil
}

// SearchFilters - набор фильтров, извлеченный из запроса и дополненный локацией
type SearchFilters struct {
	CityState string   `json:"city_state"`
	PriceMin  *int     `json:"price_min,omitempty"`
	PriceMax  *int     `json:"price_max,omitempty"`
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
}

// WithOverrides подменяет извлеченные значения заранее переданными
func (f SearchFilters) WithOverrides(req SearchRequest) SearchFilters {
	if req.Bedrooms != nil {
		f.Bedrooms = req.Bedrooms
	}
	if req.PriceMin != nil {
		f.PriceMin = req.PriceMin
	}
	if req.PriceMax != nil {
		f.PriceMax = req.PriceMax
	}
	return f
}

// QueryState - запись, которая проходит через весь конвейер.
// Поля заполняются один раз и строго по порядку стадий.
type QueryState struct {
	RunID     string
	Query     string
	CityState *string
	ZipCodes  []string
	Bedrooms  *int
	PriceMin  *int
	PriceMax  *int
	Amenities []string
	Listings  []ListingRecord
	Stage     Stage
	Error     string
}

// NewQueryState создает состояние для нового запроса
func NewQueryState(runID, query string) *QueryState {
	return &QueryState{
		RunID:     runID,
		Query:     query,
		ZipCodes:  []string{},
		Amenities: []string{},
		Stage:     StageStart,
	}
}

func (s *QueryState) advance(from, to Stage) error {
	if s.Stage != from {
		return fmt.Errorf("query state: cannot move to %s from %s", to, s.Stage)
	}
	s.Stage = to
	return nil
}

// SetLocation фиксирует результат стадии LOCATION_RESOLVED
func (s *QueryState) SetLocation(cityState string) error {
	if !IsCityState(cityState) {
		return fmt.Errorf("query state: location %q is not in \"City, ST\" form", cityState)
	}
	if err := s.advance(StageStart, StageLocationResolved); err != nil {
		return err
	}
	s.CityState = &cityState
	return nil
}

// SetFilters фиксирует результат стадии PARAMS_EXTRACTED
func (s *QueryState) SetFilters(f SearchFilters) error {
	if err := s.advance(StageLocationResolved, StageParamsExtracted); err != nil {
		return err
	}
	s.Bedrooms = f.Bedrooms
	s.PriceMin = f.PriceMin
	s.PriceMax = f.PriceMax
	if f.Amenities != nil {
		s.Amenities = append([]string{}, f.Amenities...)
	}
	return nil
}

// SetZipCodes фиксирует результат стадии ZIPS_RESOLVED, лишние индексы отбрасываются
func (s *QueryState) SetZipCodes(zipCodes []string) error {
	if len(zipCodes) == 0 {
		return fmt.Errorf("query state: zip codes cannot be empty")
	}
	if err := s.advance(StageParamsExtracted, StageZipsResolved); err != nil {
		return err
	}
	if len(zipCodes) > MaxZipCodes {
		zipCodes = zipCodes[:MaxZipCodes]
	}
	s.ZipCodes = append([]string{}, zipCodes...)
	return nil
}

// SetListings завершает конвейер успешно
func (s *QueryState) SetListings(listings []ListingRecord) error {
	if err := s.advance(StageZipsResolved, StageListingsFetched); err != nil {
		return err
	}
	if listings == nil {
		listings = []ListingRecord{}
	}
	s.Listings = listings
	return nil
}

// Abort переводит состояние в ABORTED и возвращает типизированную ошибку
func (s *QueryState) Abort(reason string, cause error) *SearchAbortedError {
	aborted := &SearchAbortedError{Reason: reason, Stage: s.Stage, Err: cause}
	s.Stage = StageAborted
	s.Error = reason
	s.Listings = nil
	return aborted
}

// TopListings возвращает не больше n первых объявлений
func (s *QueryState) TopListings(n int) []ListingRecord {
	if n < 0 || len(s.Listings) <= n {
		return s.Listings
	}
	return s.Listings[:n]
}

type queryStateJSON struct {
	RunID     string           `json:"run_id,omitempty"`
	Query     string           `json:"query"`
	CityState *string          `json:"city_state,omitempty"`
	ZipCodes  []string         `json:"zip_codes"`
	Bedrooms  *int             `json:"bedrooms,omitempty"`
	PriceMin  *int             `json:"price_min,omitempty"`
	PriceMax  *int             `json:"price_max,omitempty"`
	Amenities []string         `json:"amenities"`
	Listings  *[]ListingRecord `json:"listings,omitempty"`
	Stage     Stage            `json:"stage"`
	Error     string           `json:"error,omitempty"`
}

// MarshalJSON отдает listings только после успешного завершения, error - только при прерывании
func (s *QueryState) MarshalJSON() ([]byte, error) {
	out := queryStateJSON{
		RunID:     s.RunID,
		Query:     s.Query,
		CityState: s.CityState,
		ZipCodes:  s.ZipCodes,
		Bedrooms:  s.Bedrooms,
		PriceMin:  s.PriceMin,
		PriceMax:  s.PriceMax,
		Amenities: s.Amenities,
		Stage:     s.Stage,
		Error:     s.Error,
	}
	if out.ZipCodes == nil {
		out.ZipCodes = []string{}
	}
	if out.Amenities == nil {
		out.Amenities = []string{}
	}
	if s.Stage == StageListingsFetched {
		listings := s.Listings
		out.Listings = &listings
	}
	return json.Marshal(out)
}
