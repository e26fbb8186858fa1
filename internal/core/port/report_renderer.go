package port

import "real-estate-search-service/internal/core/domain"

// ReportRendererPort превращает итоговое состояние в текст отчета
type ReportRendererPort interface {
	Render(state *domain.QueryState) (string, error)
}
