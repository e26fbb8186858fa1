package constants

// Обменник для итоговых записей поиска
const (
	SearchResultsExchange     = "search_results_exchange"
	SearchResultsExchangeType = "direct"
)

// Ключи маршрутизации
const (
	RoutingKeySearchResults = "search.results"
)

// HeaderTraceID - заголовок AMQP-сообщения с trace id запроса
const HeaderTraceID = "x-trace-id"

// Очередь входящих запросов на поиск
const (
	SearchRequestsExchange   = "search_requests_exchange"
	QueueSearchRequests      = "search_requests"
	RoutingKeySearchRequests = "search.request"
	SearchRequestsConsumer   = "search-requests-consumer"
)
