package rabbitmq_adapter

import (
	"context"
	"encoding/json"

	"real-estate-search-service/internal/constants"
	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
	"real-estate-search-service/internal/core/port/usecases_port"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_common"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SearchRequestsConsumerAdapter запускает поиск по сообщениям из очереди search_requests.
// Итог поиска уходит тем же путем, что и у REST: отчет и публикация записи.
type SearchRequestsConsumerAdapter struct {
	consumer  *rabbitmq_consumer.Consumer
	searchUC  usecases_port.SearchRealEstateUseCase
	publishUC usecases_port.PublishSearchResultUseCase
	logger    port.LoggerPort
}

func NewSearchRequestsConsumerAdapter(
	cfg rabbitmq_consumer.ConsumerConfig,
	searchUC usecases_port.SearchRealEstateUseCase,
	publishUC usecases_port.PublishSearchResultUseCase,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*SearchRequestsConsumerAdapter, error) {
	adapter := &SearchRequestsConsumerAdapter{
		searchUC:  searchUC,
		publishUC: publishUC,
		logger:    logger,
	}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_consumer", "consumer_tag": cfg.ConsumerTag})
	cfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewConsumer(cfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, err
	}
	adapter.consumer = consumer
	return adapter, nil
}

func (a *SearchRequestsConsumerAdapter) messageHandler(ctx context.Context, d amqp.Delivery) error {
	traceID, ok := d.Headers[constants.HeaderTraceID].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
		"routing_key":  d.RoutingKey,
	})
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)

	return a.handle(ctx, d.Body)
}

// handle возвращает ошибку только когда сообщение имеет смысл отклонить
func (a *SearchRequestsConsumerAdapter) handle(ctx context.Context, body []byte) error {
	logger := contextkeys.LoggerFromContext(ctx)

	var req domain.SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error("Failed to unmarshal search request, dropping message.", err, port.Fields{"body": string(body)})
		return nil
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Invalid search request, dropping message.", port.Fields{"error": err.Error()})
		return nil
	}

	logger.Info("Processing queued search request", port.Fields{"query": req.Query})

	state, searchErr := a.searchUC.Execute(ctx, req)
	if state == nil {
		return searchErr
	}
	if _, aborted := domain.AbortReason(searchErr); searchErr != nil && !aborted {
		return searchErr
	}

	// сбой публикации не меняет исход поиска, сообщение подтверждается
	if err := a.publishUC.Execute(ctx, state); err != nil {
		logger.Error("Failed to publish queued search result", err, port.Fields{"run_id": state.RunID})
	}

	logger.Info("Queued search request processed", port.Fields{"run_id": state.RunID, "stage": state.Stage})
	return nil
}

func (a *SearchRequestsConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *SearchRequestsConsumerAdapter) Close() error { return a.consumer.Close() }
