package fluentlogger

import (
	"fmt"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

const defaultPort = 24224

// Config - подключение к Fluent Bit по forward-протоколу
type Config struct {
	Host      string
	Port      int    // 0 - порт по умолчанию 24224
	TagPrefix string // обычно имя сервиса
	Timeout   time.Duration
	Async     bool
}

// NewClient создает клиента Fluent Bit. Соединение проверяется при первой отправке.
func NewClient(cfg Config) (*fluent.Fluent, error) {
	switch {
	case cfg.Host == "":
		return nil, fmt.Errorf("fluent bit host is required")
	case cfg.TagPrefix == "":
		return nil, fmt.Errorf("fluent bit tag prefix is required")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:    cfg.Host,
		FluentPort:    cfg.Port,
		TagPrefix:     cfg.TagPrefix,
		Timeout:       cfg.Timeout,
		Async:         cfg.Async,
		MarshalAsJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluent bit client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}
