package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, ":5000", cfg.HTTPAddr)
	require.Equal(t, "facturacion", cfg.ServiceName)
	require.Equal(t, 5*time.Second, cfg.AMQPRetryDelay)
	require.False(t, cfg.RequeueOnDBError)
	require.True(t, cfg.AlertThreshold.Equal(decimal.NewFromInt(1000)))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("AMQP_RETRY_DELAY", "250ms")
	t.Setenv("CONSUMER_REQUEUE_ON_DB_ERROR", "true")
	t.Setenv("ALERT_THRESHOLD", "2500.50")

	cfg := Load()
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, 250*time.Millisecond, cfg.AMQPRetryDelay)
	require.True(t, cfg.RequeueOnDBError)
	require.True(t, cfg.AlertThreshold.Equal(decimal.RequireFromString("2500.50")))
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("AMQP_RETRY_DELAY", "soon")
	t.Setenv("ALERT_THRESHOLD", "mucho")
	t.Setenv("CONSUMER_REQUEUE_ON_DB_ERROR", "maybe")

	cfg := Load()
	require.Equal(t, 5*time.Second, cfg.AMQPRetryDelay)
	require.True(t, cfg.AlertThreshold.Equal(decimal.NewFromInt(1000)))
	require.False(t, cfg.RequeueOnDBError)
}
