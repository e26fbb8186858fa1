package usecase

import (
	"context"
	"fmt"
	"strings"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"

	"github.com/google/uuid"
)

// SearchRealEstateUseCase - оркестратор конвейера:
// START -> LOCATION_RESOLVED -> PARAMS_EXTRACTED -> ZIPS_RESOLVED -> LISTINGS_FETCHED,
// ABORTED(reason) достижимо с любого шага. Стадии не повторяются.
type SearchRealEstateUseCase struct {
	resolver  *LocationResolver
	extractor *ParameterExtractor
	source    port.ListingSourcePort
	newRunID  func() string
}

func NewSearchRealEstateUseCase(
	resolver *LocationResolver,
	extractor *ParameterExtractor,
	source port.ListingSourcePort) *SearchRealEstateUseCase {
	return &SearchRealEstateUseCase{
		resolver:  resolver,
		extractor: extractor,
		source:    source,
		newRunID:  uuid.NewString,
	}
}

// Execute всегда возвращает состояние; при прерывании вторым значением идет *domain.SearchAbortedError
func (uc *SearchRealEstateUseCase) Execute(ctx context.Context, req domain.SearchRequest) (*domain.QueryState, error) {
	state := domain.NewQueryState(uc.newRunID(), req.Query)

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SearchRealEstate",
		"run_id":   state.RunID,
	})
	ucLogger.Info("Starting real estate search", port.Fields{"query": req.Query})

	abort := func(reason string, cause error) (*domain.QueryState, error) {
		aborted := state.Abort(reason, cause)
		ucLogger.Warn("Search aborted", port.Fields{
			"reason": reason,
			"stage":  string(aborted.Stage),
			"cause":  fmt.Sprint(cause),
		})
		return state, aborted
	}

	// Шаг 1: локация
	cityState, err := uc.resolver.ResolveLocation(ctx, req.Query)
	if err != nil {
		return abort(domain.ReasonInvalidQuery, err)
	}
	if err := state.SetLocation(cityState); err != nil {
		return abort(domain.ReasonInvalidQuery, fmt.Errorf("%w: %w", domain.ErrLocationResolutionFailed, err))
	}

	// Шаг 2: фильтры
	filters, err := uc.extractor.ExtractFilters(ctx, req.Query, cityState)
	if err != nil {
		return abort(domain.ReasonInvalidQuery, err)
	}
	if filters.CityState == "" {
		return abort(domain.ReasonInvalidQuery, fmt.Errorf("%w: no location in extracted filters", domain.ErrParameterExtractionFailed))
	}
	filters = filters.WithOverrides(req)
	if err := state.SetFilters(filters); err != nil {
		return abort(domain.ReasonInvalidQuery, err)
	}

	// Шаг 3: почтовые индексы; переданные клиентом индексы заменяют запрос к модели
	zipCodes := nonEmpty(req.ZipCodes)
	if len(zipCodes) > 0 {
		ucLogger.Info("Using pre-supplied ZIP codes, skipping lookup", port.Fields{"zip_codes": zipCodes})
	} else {
		zipCodes = uc.extractor.LookupZipCodes(ctx, cityState)
	}
	if len(zipCodes) == 0 {
		return abort(domain.ReasonNoZipCodes, fmt.Errorf("%w: %s", domain.ErrNoZipCodesFound, cityState))
	}
	if err := state.SetZipCodes(zipCodes); err != nil {
		return abort(domain.ReasonNoZipCodes, err)
	}

	// Шаг 4: внешний источник, только аренда
	input := domain.NewRentalSearchInput(state.ZipCodes, filters)
	ucLogger.Info("Running listing source", port.Fields{
		"zip_codes": input.ZipCodes, "price_min": input.PriceMin, "price_max": input.PriceMax,
	})

	listings, err := uc.fetchListings(ctx, input)
	if err != nil {
		return abort(domain.ReasonFetchListings, fmt.Errorf("%w: %w", domain.ErrListingSource, err))
	}
	if err := state.SetListings(listings); err != nil {
		return abort(domain.ReasonFetchListings, err)
	}

	ucLogger.Info("Search completed", port.Fields{"listings_found": len(listings)})
	return state, nil
}

// fetchListings превращает любую ошибку или панику источника в обычную ошибку
func (uc *SearchRealEstateUseCase) fetchListings(ctx context.Context, input domain.ListingSearchInput) (listings []domain.ListingRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			listings = nil
			err = fmt.Errorf("listing source panicked: %v", r)
		}
	}()

	handle, err := uc.source.StartSearch(ctx, input)
	if err != nil {
		return nil, err
	}

	listings = []domain.ListingRecord{}
	err = uc.source.IterateResults(ctx, handle, func(item domain.ListingRecord) error {
		listings = append(listings, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
