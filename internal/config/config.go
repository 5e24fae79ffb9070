package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment   string
	StorageDriver string
	DBDSN         string
	HTTPAddr      string
	TelegramToken string
	JWTSecret     string
	CronSecret    string
	AutoMigrate   bool

	HotelTimezone      string
	BoardingLead       time.Duration
	BookingCodePrefix  string
	DefaultPhoneRegion string // страна для номеров без кода страны, ISO 3166-1 alpha-2

	NotifyMaxAttempts   int
	NotifyBatchSize     int
	NotifyBatchInterval time.Duration // 0 отключает встроенный батч, остаётся внешний триггер
	NotifyWorkers       int
	NotifyQueueSize     int
	NotifySendTimeout   time.Duration

	GenerateDaysAhead   int
	ExpirySweepInterval time.Duration

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	LoadDotEnv()
	return FromEnv(os.Getenv)
}

// LoadDotEnv подгружает .env в окружение процесса, если файл есть
func LoadDotEnv() {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}
}

// FromEnv собирает конфиг из функции чтения переменных окружения
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Environment:   p.str("ENV", "development"),
		StorageDriver: p.str("STORAGE_DRIVER", StorageDriverPostgres),
		DBDSN:         getenv("DB_DSN"),
		HTTPAddr:      p.str("HTTP_ADDR", ":8080"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		JWTSecret:     getenv("JWT_SECRET"),
		CronSecret:    getenv("CRON_SECRET"),
		AutoMigrate:   p.boolean("AUTO_MIGRATE", true),

		HotelTimezone:      p.str("HOTEL_TIMEZONE", "UTC"),
		BoardingLead:       p.duration("BOARDING_LEAD", 20*time.Minute),
		BookingCodePrefix:  strings.ToUpper(p.str("BOOKING_CODE_PREFIX", "SHT")),
		DefaultPhoneRegion: strings.ToUpper(p.str("DEFAULT_PHONE_REGION", "RU")),

		NotifyMaxAttempts:   p.integer("NOTIFY_MAX_ATTEMPTS", 3),
		NotifyBatchSize:     p.integer("NOTIFY_BATCH_SIZE", 50),
		NotifyBatchInterval: p.duration("NOTIFY_BATCH_INTERVAL", 0),
		NotifyWorkers:       p.integer("NOTIFY_WORKERS", 2),
		NotifyQueueSize:     p.integer("NOTIFY_QUEUE_SIZE", 100),
		NotifySendTimeout:   p.duration("NOTIFY_SEND_TIMEOUT", 15*time.Second),

		GenerateDaysAhead:   p.integer("GENERATE_DAYS_AHEAD", 14),
		ExpirySweepInterval: p.duration("EXPIRY_SWEEP_INTERVAL", time.Minute),

		CORSAllowedOrigins: p.list("CORS_ALLOWED_ORIGINS"),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Проверяем обязательные поля
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver)
	}

	if cfg.BoardingLead < 0 {
		return nil, fmt.Errorf("BOARDING_LEAD must not be negative")
	}
	if cfg.NotifyMaxAttempts <= 0 || cfg.NotifyBatchSize <= 0 || cfg.NotifyWorkers <= 0 || cfg.NotifyQueueSize <= 0 {
		return nil, fmt.Errorf("NOTIFY_* limits must be positive")
	}
	if !model.ValidRegion(cfg.DefaultPhoneRegion) {
		return nil, fmt.Errorf("DEFAULT_PHONE_REGION %q is not a known region code", cfg.DefaultPhoneRegion)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location часовой пояс отеля, по которому считаются даты рейсов
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.HotelTimezone)
	if err != nil {
		return nil, fmt.Errorf("load HOTEL_TIMEZONE %q: %w", c.HotelTimezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parser запоминает первую ошибку разбора
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b
}

func (p *parser) list(key string) []string {
	var out []string
	for _, item := range strings.Split(p.getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
