package usecase

import (
	"context"
	"errors"
	"fmt"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
)

// ReportKey - общеизвестный ключ последнего отчета
const ReportKey = "report.md"

// PublishSearchResultUseCase сохраняет отчет и отправляет запись в датасет.
// Ошибки публикации не меняют исход поиска. reports и dataset могут быть nil.
type PublishSearchResultUseCase struct {
	renderer port.ReportRendererPort
	reports  port.ReportStorePort
	dataset  port.DatasetPort
}

func NewPublishSearchResultUseCase(
	renderer port.ReportRendererPort,
	reports port.ReportStorePort,
	dataset port.DatasetPort) *PublishSearchResultUseCase {
	return &PublishSearchResultUseCase{
		renderer: renderer,
		reports:  reports,
		dataset:  dataset,
	}
}

func (uc *PublishSearchResultUseCase) Execute(ctx context.Context, state *domain.QueryState) error {
	if state == nil || !state.Stage.IsTerminal() {
		return fmt.Errorf("publish: search state is not terminal")
	}

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "PublishSearchResult",
		"run_id":   state.RunID,
	})

	var errs []error

	if uc.reports != nil && uc.renderer != nil {
		if err := uc.saveReport(ctx, state); err != nil {
			logger.Error("Failed to save report", err, nil)
			errs = append(errs, err)
		} else {
			logger.Info("Saved report into the key-value store", port.Fields{"key": ReportKey})
		}
	}

	if uc.dataset != nil {
		if err := uc.dataset.PushResult(ctx, state); err != nil {
			logger.Error("Failed to push search result to dataset", err, nil)
			errs = append(errs, fmt.Errorf("push dataset: %w", err))
		} else {
			logger.Info("Pushed search result to dataset", nil)
		}
	}

	return errors.Join(errs...)
}

func (uc *PublishSearchResultUseCase) saveReport(ctx context.Context, state *domain.QueryState) error {
	content, err := uc.renderer.Render(state)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	keys := []string{ReportKey}
	if state.RunID != "" {
		keys = append(keys, fmt.Sprintf("report-%s.md", state.RunID))
	}
	for _, key := range keys {
		if err := uc.reports.SaveReport(ctx, key, content); err != nil {
			return fmt.Errorf("save report %s: %w", key, err)
		}
	}
	return nil
}
