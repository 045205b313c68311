package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ticketing.orders.events", cfg.Kafka.Topics.OrderEvents)
	assert.Equal(t, 5, cfg.Reservation.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Expiry.HoldTimeout)
	assert.False(t, cfg.Auth.Insecure)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RESERVATION_MAX_ATTEMPTS", "8")
	t.Setenv("HOLD_TIMEOUT", "90s")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("AUTH_INSECURE", "true")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Reservation.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Expiry.HoldTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Auth.Insecure)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("CLASS_LOCK_WAIT", "soon")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2*time.Second, cfg.Redis.LockWait)
	assert.True(t, cfg.Kafka.Enabled)
}
