package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLMConfig - доступ к языковой модели (OpenAI-совместимый API)
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// nil - температура по умолчанию на стороне API
	Temperature *float64
}

// ApifyConfig - внешний источник объявлений
type ApifyConfig struct {
	Token          string
	BaseURL        string
	ActorID        string
	WaitForFinish  int
	MaxRunDuration time.Duration
	PageSize       int
	// 0 - таймаут выводится из WaitForFinish
	HTTPTimeout time.Duration
}

// DBconfig хранит конфигурацию для БД; пустой URL отключает хранилище отчетов
type DBconfig struct {
	URL string
}

// RabbitMQConfig; пустой URL отключает публикацию результатов
type RabbitMQConfig struct {
	URL string
}

type StdoutLogConfig struct {
	Level  string
	IsJSON bool
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName            string
	Port               string
	CORSAllowedOrigins []string
	LLM                LLMConfig
	Apify              ApifyConfig
	Database           DBconfig
	RabbitMQ           RabbitMQConfig
	FluentBit          FluentBitConfig
	StdoutLogger       StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// .env подхватывается, если он есть; явно указанный, но отсутствующий файл - ошибка.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("could not load .env file (path: %s): %w", envPath[0], err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file: %w", err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "real-estate-search-service")
	cfg.Port = getEnvAsString("PORT", "8080")
	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS")

	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	cfg.LLM.BaseURL = getEnvAsString("OPENAI_API_BASE", "https://api.openai.com/v1")
	cfg.LLM.Model = getEnvAsString("OPENAI_MODEL", "gpt-3.5-turbo")
	cfg.LLM.Timeout = time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second
	cfg.LLM.Temperature = getEnvAsOptionalFloat("LLM_TEMPERATURE")

	cfg.Apify.Token = os.Getenv("APIFY_TOKEN")
	if cfg.Apify.Token == "" {
		return nil, fmt.Errorf("APIFY_TOKEN environment variable is required")
	}
	cfg.Apify.BaseURL = getEnvAsString("APIFY_API_BASE", "https://api.apify.com")
	cfg.Apify.ActorID = getEnvAsString("ZILLOW_ACTOR_ID", "maxcopell/zillow-zip-search")
	cfg.Apify.WaitForFinish = getEnvAsInt("APIFY_WAIT_SECONDS", 60)
	cfg.Apify.PageSize = getEnvAsInt("APIFY_PAGE_SIZE", 1000)
	cfg.Apify.MaxRunDuration = time.Duration(getEnvAsInt("APIFY_MAX_RUN_SECONDS", 600)) * time.Second
	cfg.Apify.HTTPTimeout = time.Duration(getEnvAsInt("APIFY_HTTP_TIMEOUT_SECONDS", 0)) * time.Second

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLogger.IsJSON = getEnvAsBool("STDOUT_LOG_JSON", false)

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsOptionalFloat возвращает nil, если переменная не задана или не разбирается
func getEnvAsOptionalFloat(key string) *float64 {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return nil
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Leaving it unset\n", key, valStr, err)
		return nil
	}
	return &val
}

// getEnvAsList читает список через запятую, пустые элементы отбрасываются
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
