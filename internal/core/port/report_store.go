package port

import "context"

// ReportStorePort - key-value хранилище готовых отчетов
type ReportStorePort interface {
	SaveReport(ctx context.Context, key, content string) error
}

// ReportReaderPort отдает сохраненный отчет, domain.ErrReportNotFound если ключа нет
type ReportReaderPort interface {
	GetReport(ctx context.Context, key string) (string, error)
}
