package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/contracts"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
)

// ParameterExtractor получает из модели почтовые индексы и фильтры поиска.
// Оба вызова независимы друг от друга.
type ParameterExtractor struct {
	llm port.LanguageModelPort
}

func NewParameterExtractor(llm port.LanguageModelPort) *ParameterExtractor {
	return &ParameterExtractor{llm: llm}
}

// LookupZipCodes возвращает до двух индексов для локации.
// Любая ошибка (модель, JSON, схема) дает пустой результат.
func (e *ParameterExtractor) LookupZipCodes(ctx context.Context, location string) []string {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ParameterExtractor",
		"method":     "LookupZipCodes",
		"city_state": location,
	})

	if location == "" {
		logger.Error("No city/state provided for ZIP code lookup", nil, nil)
		return []string{}
	}

	prompt := renderPrompt(zipCodesPromptTemplate, map[string]string{"city_state": location})
	answer, err := e.llm.Complete(ctx, prompt, port.HintNone)
	if err != nil {
		logger.Error("Language model call failed", err, nil)
		return []string{}
	}
	answer = strings.TrimSpace(answer)
	logger.Debug("Raw ZIP code response", port.Fields{"answer": answer})

	decoded, err := contracts.DecodeAndValidate(contracts.ZipCodesV1, answer)
	if err != nil {
		logger.Error("Invalid ZIP code format received from model", err, nil)
		return []string{}
	}

	items := decoded.([]any)
	zipCodes := make([]string, 0, domain.MaxZipCodes)
	for _, item := range items {
		if len(zipCodes) == domain.MaxZipCodes {
			break
		}
		if code := strings.TrimSpace(item.(string)); code != "" {
			zipCodes = append(zipCodes, code)
		}
	}

	logger.Info("Selected ZIP codes", port.Fields{"zip_codes": zipCodes, "returned": len(items)})
	return zipCodes
}

// ExtractFilters извлекает price_min, price_max, bedrooms и amenities.
// При ошибке разбора возвращает пустой набор и ErrParameterExtractionFailed.
func (e *ParameterExtractor) ExtractFilters(ctx context.Context, query, location string) (domain.SearchFilters, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ParameterExtractor",
		"method":     "ExtractFilters",
		"city_state": location,
	})

	if location == "" {
		return domain.SearchFilters{}, fmt.Errorf("%w: location is required", domain.ErrParameterExtractionFailed)
	}

	logger.Info("Extracting search parameters from query", port.Fields{"query": query})
	prompt := renderPrompt(searchParamsPromptTemplate, map[string]string{
		"query":      query,
		"city_state": location,
	})
	answer, err := e.llm.Complete(ctx, prompt, port.HintJSONObject)
	if err != nil {
		logger.Error("Language model call failed", err, nil)
		return domain.SearchFilters{}, fmt.Errorf("%w: %w", domain.ErrParameterExtractionFailed, err)
	}

	decoded, err := contracts.DecodeAndValidate(contracts.SearchParamsV1, strings.TrimSpace(answer))
	if err != nil {
		logger.Error("Failed to parse extracted parameters", err, port.Fields{"answer": answer})
		return domain.SearchFilters{}, fmt.Errorf("%w: %w", domain.ErrParameterExtractionFailed, err)
	}

	filters, err := filtersFromAnswer(decoded.(map[string]any))
	if err != nil {
		logger.Error("Extracted parameters out of range", err, port.Fields{"answer": answer})
		return domain.SearchFilters{}, fmt.Errorf("%w: %w", domain.ErrParameterExtractionFailed, err)
	}
	filters.CityState = location

	logger.Info("Extracted parameters", port.Fields{
		"price_min": filters.PriceMin, "price_max": filters.PriceMax,
		"bedrooms": filters.Bedrooms, "amenities": filters.Amenities,
	})
	return filters, nil
}

// filtersFromAnswer переносит уже проверенный схемой объект в SearchFilters
func filtersFromAnswer(obj map[string]any) (domain.SearchFilters, error) {
	var f domain.SearchFilters
	var err error

	if f.PriceMin, err = optionalInt(obj, "price_min"); err != nil {
		return domain.SearchFilters{}, err
	}
	if f.PriceMax, err = optionalInt(obj, "price_max"); err != nil {
		return domain.SearchFilters{}, err
	}
	if f.Bedrooms, err = optionalInt(obj, "bedrooms"); err != nil {
		return domain.SearchFilters{}, err
	}

	if raw, ok := obj["amenities"].([]any); ok {
		f.Amenities = make([]string, 0, len(raw))
		for _, a := range raw {
			f.Amenities = append(f.Amenities, a.(string))
		}
	}
	return f, nil
}

func optionalInt(obj map[string]any, key string) (*int, error) {
	num, ok := obj[key].(json.Number)
	if !ok {
		return nil, nil
	}
	// Схема уже гарантирует целое значение, но 2500.0 тоже целое
	r, ok := new(big.Rat).SetString(num.String())
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return nil, fmt.Errorf("%s: %s is not an integer", key, num)
	}
	v64 := r.Num().Int64()
	v := int(v64)
	if int64(v) != v64 {
		return nil, fmt.Errorf("%s: %s overflows int", key, num)
	}
	return &v, nil
}
