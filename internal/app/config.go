package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/service/payment"
	"github.com/vladislavdragonenkov/orderflow/internal/service/saga"
)

// Config описывает настройки запуска сервиса. Инфраструктурные адреса
// опциональны: без них сервис работает на in-memory зависимостях.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PaymentSuccessRate float64
	PaymentDelay       time.Duration

	CartTTL time.Duration

	Breaker saga.BreakerConfig

	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string
	KafkaBrokers  []string
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		PaymentSuccessRate: payment.DefaultSuccessRate,
		CartTTL:            24 * time.Hour,
		Breaker:            saga.DefaultBreakerConfig(),
	}
}

// LoadConfig читает конфигурацию из окружения поверх значений по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("ORDERFLOW_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("ORDERFLOW_METRICS_ADDR", cfg.MetricsAddr)

	cfg.PaymentSuccessRate = envFloat("ORDERFLOW_PAYMENT_SUCCESS_RATE", cfg.PaymentSuccessRate)
	cfg.PaymentDelay = envDuration("ORDERFLOW_PAYMENT_DELAY", cfg.PaymentDelay)
	cfg.CartTTL = envDuration("ORDERFLOW_CART_TTL", cfg.CartTTL)

	cfg.Breaker.FailureThreshold = envFloat("ORDERFLOW_BREAKER_FAILURE_THRESHOLD", cfg.Breaker.FailureThreshold)
	cfg.Breaker.MinSamples = envInt("ORDERFLOW_BREAKER_MIN_SAMPLES", cfg.Breaker.MinSamples)
	cfg.Breaker.Window = envDuration("ORDERFLOW_BREAKER_WINDOW", cfg.Breaker.Window)
	cfg.Breaker.Cooldown = envDuration("ORDERFLOW_BREAKER_COOLDOWN", cfg.Breaker.Cooldown)

	cfg.PostgresDSN = envString("ORDERFLOW_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = envString("ORDERFLOW_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("ORDERFLOW_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("ORDERFLOW_REDIS_DB", cfg.RedisDB)
	cfg.RabbitURL = envString("ORDERFLOW_RABBIT_URL", cfg.RabbitURL)

	if brokers := envString("ORDERFLOW_KAFKA_BROKERS", ""); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	return cfg
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
