package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string

	MongoURL    string
	MongoDB     string
	PostgresDSN string
	RedisURL    string

	JWTSecret string

	RazorpayKeyID     string
	RazorpayKeySecret string

	AWSRegion   string
	S3Bucket    string
	SNSTopicArn string

	KafkaBrokers []string
	KafkaTopic   string

	CORSOrigins []string

	CartTTL        time.Duration
	CartWriteDelay time.Duration

	OrderSweepInterval time.Duration
	OrderSweepAge      time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		MongoURL:    getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "storefront"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=storefront port=5432 sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),

		AWSRegion:   getEnv("AWS_REGION", "ap-south-1"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		SNSTopicArn: os.Getenv("SNS_TOPIC_ARN"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order.events"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		CartTTL:        getDuration("CART_TTL", time.Hour*24*7),
		CartWriteDelay: getDuration("CART_WRITE_DELAY", 500*time.Millisecond),

		OrderSweepInterval: getDuration("ORDER_SWEEP_INTERVAL", 5*time.Minute),
		OrderSweepAge:      getDuration("ORDER_SWEEP_AGE", 15*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// plain integers are read as seconds
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
