package port

import "context"

// EventListenerPort - входящий адаптер, который сам читает события и вызывает ядро
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
