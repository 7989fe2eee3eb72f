package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxListLimit caps GET /api/orders.
const MaxListLimit = 200

// ErrMissingStoreURI is returned by Load when no store connection string is set.
var ErrMissingStoreURI = errors.New("STORE_URI (or MONGO_URI) is not set")

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Orders   OrdersConfig
	Features FeatureFlags
	Log      LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	StaticDir       string
	IndexFile       string
}

// StoreConfig selects the document store. The URI scheme picks the backend:
// mongodb:// and mongodb+srv:// for MongoDB, postgres:// and postgresql://
// for PostgreSQL, memory:// for the in-process store.
type StoreConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PaymentsTopic string
	ConsumerGroup string
}

type OrdersConfig struct {
	IDPrefix             string
	DefaultPaymentMethod string
	ListLimit            int
}

type FeatureFlags struct {
	EnableAccounts      bool
	EnableOrderCaching  bool
	EnableOrderEvents   bool
	EnablePaymentEvents bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	storeURI := getEnvString("STORE_URI", os.Getenv("MONGO_URI"))
	if storeURI == "" {
		return nil, ErrMissingStoreURI
	}

	return &Config{
		Server: ServerConfig{
			Host:            getEnvString("HOST", "0.0.0.0"),
			Port:            getEnvInt("PORT", 3000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			StaticDir:       getEnvString("STATIC_DIR", "public"),
			IndexFile:       getEnvString("INDEX_FILE", "FirstPage.html"),
		},
		Store: StoreConfig{
			URI:            storeURI,
			Database:       getEnvString("STORE_DATABASE", "bakery"),
			ConnectTimeout: getEnvDuration("STORE_CONNECT_TIMEOUT", 10*time.Second),
			MaxOpenConns:   getEnvInt("STORE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("STORE_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getEnvDuration("STORE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "bakery.orders"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "bakery.payments"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "bakery-orders"),
		},
		Orders: OrdersConfig{
			IDPrefix:             getEnvString("ORDER_ID_PREFIX", "FL"),
			DefaultPaymentMethod: getEnvString("ORDER_DEFAULT_PAYMENT_METHOD", "UPI"),
			ListLimit:            listLimit(getEnvInt("ORDER_LIST_LIMIT", MaxListLimit)),
		},
		Features: FeatureFlags{
			EnableAccounts:      getEnvBool("ENABLE_ACCOUNTS", true),
			EnableOrderCaching:  getEnvBool("ENABLE_ORDER_CACHING", false),
			EnableOrderEvents:   getEnvBool("ENABLE_ORDER_EVENTS", false),
			EnablePaymentEvents: getEnvBool("ENABLE_PAYMENT_EVENTS", false),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "text"),
		},
	}, nil
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// listLimit keeps the configured list size within 1..MaxListLimit. Zero
// would mean "no limit" to the Mongo driver.
func listLimit(n int) int {
	if n <= 0 || n > MaxListLimit {
		return MaxListLimit
	}
	return n
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
