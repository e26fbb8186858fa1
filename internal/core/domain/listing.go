package domain

import (
	"fmt"
	"strconv"
)

// ListingRecord - один результат внешнего источника объявлений.
// Поля не валидируются и не перекладываются (address, price, beds, baths,
// area, detailUrl, imgSrc, statusText ...).
type ListingRecord map[string]any

// ReportListingLimit - сколько объявлений попадает в отчет
const ReportListingLimit = 5

// String возвращает строковое поле записи или fallback
func (l ListingRecord) String(key, fallback string) string {
	v, ok := l[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	default:
		return stringify(t)
	}
}

// Nested достает вложенный объект, например variableData
func (l ListingRecord) Nested(key string) ListingRecord {
	if m, ok := l[key].(map[string]any); ok {
		return ListingRecord(m)
	}
	return ListingRecord{}
}

// ListingSearchInput - запрос к внешнему источнику объявлений.
// Отсутствующая граница цены кодируется пустой строкой.
type ListingSearchInput struct {
	ZipCodes       []string `json:"zipCodes"`
	PriceMin       any      `json:"priceMin"`
	PriceMax       any      `json:"priceMax"`
	ForRent        bool     `json:"forRent"`
	ForSaleByAgent bool     `json:"forSaleByAgent"`
	ForSaleByOwner bool     `json:"forSaleByOwner"`
	Sold           bool     `json:"sold"`
}

// NewRentalSearchInput собирает запрос только по арендным объявлениям
func NewRentalSearchInput(zipCodes []string, filters SearchFilters) ListingSearchInput {
	return ListingSearchInput{
		ZipCodes:       append([]string(nil), zipCodes...),
		PriceMin:       priceBound(filters.PriceMin),
		PriceMax:       priceBound(filters.PriceMax),
		ForRent:        true,
		ForSaleByAgent: false,
		ForSaleByOwner: false,
		Sold:           false,
	}
}

func priceBound(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

// ResultSetHandle указывает на набор результатов во внешнем источнике
type ResultSetHandle struct {
	RunID     string
	DatasetID string
}

func stringify(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
