package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// RedisConfig captures cache connection settings. An empty URL disables the
// report cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit sink settings. No brokers means audit events
// stay in memory.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SenderConfig is the accountant identity stamped into outgoing reminders.
type SenderConfig struct {
	Name  string
	Firm  string
	Phone string
}

// Config is everything main needs to wire the service.
type Config struct {
	Server            Server
	DatabaseURL       string
	Redis             RedisConfig
	Kafka             KafkaConfig
	Sender            SenderConfig
	ReminderThreshold int
	GraceDays         int
	ScheduleOffsets   []int
	SweepInterval     time.Duration
	ReportCacheTTL    time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("TAXTRAIL_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("JWT_ISSUER", "taxtrail"),
			JWTAudience:   envOr("JWT_AUDIENCE", "taxtrail-api"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "taxtrail.audit"),
		},
		Sender: SenderConfig{
			Name:  os.Getenv("SENDER_NAME"),
			Firm:  os.Getenv("SENDER_FIRM"),
			Phone: os.Getenv("SENDER_PHONE"),
		},
		ReminderThreshold: envInt("REMINDER_THRESHOLD", 3),
		GraceDays:         envInt("ESCALATION_GRACE_DAYS", 2),
		ScheduleOffsets:   envIntList("REMINDER_SCHEDULE_DAYS", []int{3, 7, 14}),
		SweepInterval:     envDuration("SWEEP_INTERVAL", 24*time.Hour),
		ReportCacheTTL:    envDuration("REPORT_CACHE_TTL", time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envIntList(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fallback
		}
		out = append(out, n)
	}
	return out
}
