package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string // empty -> in-memory store
	RedisAddr   string // empty -> no cache
	KafkaBrokers []string // empty -> no Kafka bridge
	ServiceName string
	Env         string

	MidtransServerKey    string
	MidtransClientKey    string
	MidtransIsProduction bool
	// SandboxAutoPaid marks orders PAID when the provider status query
	// fails. Only honored outside production.
	SandboxAutoPaid bool

	PaymentTimeout    time.Duration
	PaymentRetryCount int
	PaymentRetryDelay time.Duration

	MockDelay       time.Duration
	MockFailureRate float64
}

func Load() Config {
	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8081"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		ServiceName:  getenv("SERVICE_NAME", "checkout-api"),
		Env:          getenv("ENV", "dev"),

		MidtransServerKey:    os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransClientKey:    os.Getenv("MIDTRANS_CLIENT_KEY"),
		MidtransIsProduction: os.Getenv("MIDTRANS_IS_PRODUCTION") == "true",
		SandboxAutoPaid:      os.Getenv("MIDTRANS_SANDBOX_AUTOPAID") == "true",

		PaymentTimeout:    millis("PAYMENT_TIMEOUT_MS", 15000),
		PaymentRetryCount: atoi("PAYMENT_RETRY_COUNT", 3),
		PaymentRetryDelay: millis("PAYMENT_RETRY_DELAY_MS", 1000),

		MockDelay:       millis("PAYMENT_MOCK_DELAY_MS", 2000),
		MockFailureRate: atof("PAYMENT_MOCK_FAILURE_RATE", 0),
	}
}

// UseMockPayment reports whether the mock gateway should be wired: the
// provider is selected by configuration presence, not by runtime checks in
// business logic.
func (c Config) UseMockPayment() bool {
	return c.MidtransServerKey == "" || c.MidtransServerKey == "your-midtrans-server-key"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func atof(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func millis(k string, def int) time.Duration {
	return time.Duration(atoi(k, def)) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
