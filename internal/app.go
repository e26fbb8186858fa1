package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"real-estate-search-service/internal/adapters/apify_client"
	"real-estate-search-service/internal/adapters/llm_client"
	logger_adapter "real-estate-search-service/internal/adapters/logger"
	postgres_adapter "real-estate-search-service/internal/adapters/postgres"
	rabbitmq_adapter "real-estate-search-service/internal/adapters/rabbitmq"
	"real-estate-search-service/internal/adapters/report"
	"real-estate-search-service/internal/adapters/rest"
	"real-estate-search-service/internal/configs"
	"real-estate-search-service/internal/constants"
	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
	"real-estate-search-service/internal/core/usecase"
	fluentlogger "real-estate-search-service/pkg/fluent_logger"
	"real-estate-search-service/pkg/postgres"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_common"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_consumer"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	baseLogger    port.LoggerPort
	logger        port.LoggerPort

	searchUC    *usecase.SearchRealEstateUseCase
	publishUC   *usecase.PublishSearchResultUseCase
	reportsRepo *postgres_adapter.PostgresReportRepository
}

// NewApp создает приложение и связывает все зависимости.
// Хранилище отчетов и публикация результатов подключаются, только если заданы DATABASE_URL и RABBITMQ_URL.
func NewApp(envPath ...string) (*App, error) {
	appConfig, err := configs.LoadConfig(envPath...)
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	a := &App{config: appConfig}

	// --- 1. ЛОГГЕРЫ ---
	if err := a.initLoggers(); err != nil {
		return nil, err
	}
	appLogger := a.logger

	// --- 2. ИСХОДЯЩИЕ АДАПТЕРЫ ---
	llmClient, err := llm_client.NewClient(llm_client.Config{
		BaseURL:     appConfig.LLM.BaseURL,
		APIKey:      appConfig.LLM.APIKey,
		Model:       appConfig.LLM.Model,
		Timeout:     appConfig.LLM.Timeout,
		Temperature: appConfig.LLM.Temperature,
	})
	if err != nil {
		appLogger.Error("Failed to create LLM client", err, nil)
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	appLogger.Info("LLM client initialized.", port.Fields{"model": appConfig.LLM.Model})

	listingSource, err := apify_client.NewClient(apify_client.Config{
		BaseURL:        appConfig.Apify.BaseURL,
		Token:          appConfig.Apify.Token,
		ActorID:        appConfig.Apify.ActorID,
		WaitForFinish:  appConfig.Apify.WaitForFinish,
		MaxRunDuration: appConfig.Apify.MaxRunDuration,
		PageSize:       appConfig.Apify.PageSize,
		HTTPTimeout:    appConfig.Apify.HTTPTimeout,
	})
	if err != nil {
		appLogger.Error("Failed to create Apify client", err, nil)
		a.Close()
		return nil, fmt.Errorf("failed to create apify client: %w", err)
	}
	appLogger.Info("Listing source initialized.", port.Fields{"actor_id": appConfig.Apify.ActorID})

	var reports port.ReportStorePort
	if appConfig.Database.URL != "" {
		if err := a.initReportStorage(); err != nil {
			a.Close()
			return nil, err
		}
		reports = a.reportsRepo
	} else {
		appLogger.Warn("DATABASE_URL is not set, reports will not be stored.", nil)
	}

	var dataset port.DatasetPort
	if appConfig.RabbitMQ.URL != "" {
		datasetAdapter, err := a.initDatasetPublisher()
		if err != nil {
			a.Close()
			return nil, err
		}
		dataset = datasetAdapter
	} else {
		appLogger.Warn("RABBITMQ_URL is not set, search results will not be published.", nil)
	}

	// --- 3. USE CASES ---
	a.searchUC = usecase.NewSearchRealEstateUseCase(
		usecase.NewLocationResolver(llmClient),
		usecase.NewParameterExtractor(llmClient),
		listingSource,
	)
	a.publishUC = usecase.NewPublishSearchResultUseCase(report.NewMarkdownRenderer(), reports, dataset)
	appLogger.Info("All use cases initialized.", nil)

	return a, nil
}

func (a *App) initLoggers() error {
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Writer:   os.Stderr,
		Level:    parseLogLevel(a.config.StdoutLogger.Level),
		IsJSON:   a.config.StdoutLogger.IsJSON,
		UseColor: !a.config.StdoutLogger.IsJSON,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if a.config.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      a.config.FluentBit.Host,
			Port:      a.config.FluentBit.Port,
			TagPrefix: a.config.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(a.config.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return err
		}
		fluentAdapter.OnPostError(func(err error) {
			log.Printf("App: failed to post log to fluent bit: %v\n", err)
		})
		a.fluentClient = fluentClient
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return fmt.Errorf("failed to create multi-logger: %w", err)
	}

	a.baseLogger = multiLogger.WithFields(port.Fields{"service_name": a.config.AppName})
	a.logger = a.baseLogger.WithFields(port.Fields{"component": "app"})
	a.logger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": a.config.FluentBit.Enabled,
	})
	return nil
}

func (a *App) initReportStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbPool, err := postgres.NewClient(ctx, postgres.Config{DatabaseURL: a.config.Database.URL, MaxConns: 5})
	if err != nil {
		a.logger.Error("Failed to connect to PostgreSQL", err, nil)
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.dbPool = dbPool
	a.logger.Info("Successfully connected to PostgreSQL pool!", nil)

	repo, err := postgres_adapter.NewPostgresReportRepository(dbPool)
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		a.logger.Error("Failed to prepare reports table", err, nil)
		return err
	}
	a.reportsRepo = repo
	return nil
}

func (a *App) initDatasetPublisher() (*rabbitmq_adapter.DatasetPublisherAdapter, error) {
	connManagerLogger := a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
	connManager, err := rabbitmq_common.NewConnectionManager(
		rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger),
	)
	if err != nil {
		a.logger.Error("Failed to create connection manager", err, nil)
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.connManager = connManager
	a.logger.Info("RabbitMQ Connection Manager initialized.", nil)

	producerLogger := a.baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
	eventProducer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		ExchangeName:             constants.SearchResultsExchange,
		ExchangeType:             constants.SearchResultsExchangeType,
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
	}, connManager)
	if err != nil {
		a.logger.Error("Failed to create event producer", err, nil)
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	a.eventProducer = eventProducer
	a.logger.Info("RabbitMQ Event Producer initialized.", nil)

	return rabbitmq_adapter.NewDatasetPublisherAdapter(eventProducer, constants.RoutingKeySearchResults)
}

func (a *App) newSearchRequestsListener() (port.EventListenerPort, error) {
	cfg := rabbitmq_consumer.ConsumerConfig{
		Config:          rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		QueueName:       constants.QueueSearchRequests,
		DurableQueue:    true,
		ExchangeName:    constants.SearchRequestsExchange,
		ExchangeType:    "direct",
		DeclareExchange: true,
		RoutingKey:      constants.RoutingKeySearchRequests,
		PrefetchCount:   2,
		ConsumerTag:     constants.SearchRequestsConsumer,
	}
	return rabbitmq_adapter.NewSearchRequestsConsumerAdapter(cfg, a.searchUC, a.publishUC, a.baseLogger, a.connManager)
}

// RunOnce выполняет один поиск и публикует его итог
func (a *App) RunOnce(ctx context.Context, req domain.SearchRequest) (*domain.QueryState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, traceID := contextkeys.EnsureTraceID(ctx)
	ctx = contextkeys.ContextWithLogger(ctx, a.baseLogger.WithFields(port.Fields{"trace_id": traceID}))

	state, searchErr := a.searchUC.Execute(ctx, req)
	if state == nil {
		return nil, searchErr
	}
	if err := a.publishUC.Execute(ctx, state); err != nil {
		a.logger.Error("Failed to publish search result", err, port.Fields{"run_id": state.RunID})
	}
	return state, searchErr
}

// Run запускает HTTP-сервер и слушателя очереди, ждет сигнала на завершение
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup
	componentErrors := make(chan error, 2)

	var reportReader port.ReportReaderPort
	if a.reportsRepo != nil {
		reportReader = a.reportsRepo
	}
	handlers := rest.NewSearchHandler(a.searchUC, a.publishUC, reportReader)
	router := rest.NewRouter(handlers, a.config.CORSAllowedOrigins, a.baseLogger)
	server := rest.NewServer(a.config.Port, router, a.baseLogger.WithFields(port.Fields{"component": "rest_server"}))

	var listener port.EventListenerPort
	if a.connManager != nil {
		l, err := a.newSearchRequestsListener()
		if err != nil {
			a.logger.Error("Failed to initialize search requests listener", err, nil)
			a.Close()
			return err
		}
		listener = l
	}

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			a.logger.Error("Error stopping REST server", err, nil)
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()

		if listener != nil {
			if err := listener.Close(); err != nil {
				a.logger.Error("Error closing search requests listener", err, nil)
			}
		}
		a.Close()
	}()

	a.logger.Info("Application is starting...", nil)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			componentErrors <- err
		}
	}()

	if listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listenerLogger := a.logger.WithFields(port.Fields{"listener_name": "Search Requests Listener"})
			listenerLogger.Info("Starting listener...", nil)
			if err := listener.Start(appCtx); err != nil {
				listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
				componentErrors <- fmt.Errorf("search requests listener: %w", err)
				return
			}
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals...", nil)
	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case runErr = <-componentErrors:
		a.logger.Error("A critical component failed, shutting down", runErr, nil)
	}

	cancelApp()
	return runErr
}

// Close освобождает ресурсы; безопасно вызывать на частично собранном приложении
func (a *App) Close() {
	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
		a.eventProducer = nil
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
		}
		a.connManager = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
		a.dbPool = nil
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("App: Error closing fluent client: %v\n", err)
		}
		a.fluentClient = nil
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
