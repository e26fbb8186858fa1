package rest

import "real-estate-search-service/internal/core/domain"

// SearchRequestDTO - тело POST /api/v1/search
type SearchRequestDTO struct {
	Query    string   `json:"query"`
	ZipCodes []string `json:"zip_codes,omitempty"`
	Bedrooms *int     `json:"bedrooms,omitempty"`
	PriceMin *int     `json:"price_min,omitempty"`
	PriceMax *int     `json:"price_max,omitempty"`
}

// ToDomain проверяет тело запроса и переводит его в domain.SearchRequest
func (d SearchRequestDTO) ToDomain() (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Query:    d.Query,
		ZipCodes: d.ZipCodes,
		Bedrooms: d.Bedrooms,
		PriceMin: d.PriceMin,
		PriceMax: d.PriceMax,
	}
	if err := req.Validate(); err != nil {
		return domain.SearchRequest{}, err
	}
	return req, nil
}

// HealthResponse - ответ GET /api/v1/health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse - стандартная структура для ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
