package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"real-estate-search-service/internal/constants"
	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher - часть rabbitmq_producer.Publisher, нужная адаптеру
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// DatasetPublisherAdapter публикует итоговые записи поиска, реализует port.DatasetPort
type DatasetPublisherAdapter struct {
	producer       Publisher
	routingKey     string
	publishTimeout time.Duration
}

func NewDatasetPublisherAdapter(producer Publisher, routingKey string) (*DatasetPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &DatasetPublisherAdapter{
		producer:       producer,
		routingKey:     routingKey,
		publishTimeout: 10 * time.Second,
	}, nil
}

func (a *DatasetPublisherAdapter) PushResult(ctx context.Context, state *domain.QueryState) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "DatasetPublisherAdapter",
		"routing_key": a.routingKey,
	})

	if state == nil {
		return fmt.Errorf("rabbitmq adapter: state cannot be nil")
	}
	adapterLogger = adapterLogger.WithFields(port.Fields{"run_id": state.RunID, "stage": state.Stage})

	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal search result: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    state.RunID,
		Type:         "search.result",
		Timestamp:    time.Now(),
		Headers:      make(amqp.Table),
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers[constants.HeaderTraceID] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, a.publishTimeout)
	defer cancel()

	adapterLogger.Debug("Publishing search result", nil)
	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish search result", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish search result %s: %w", state.RunID, err)
	}

	adapterLogger.Info("Search result published", nil)
	return nil
}
