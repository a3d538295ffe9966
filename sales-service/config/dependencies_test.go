package config

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/infrastructure"
)

func memoryConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("SALES_STORAGE_DRIVER", StorageDriverMemory)
	t.Setenv("SALES_REDIS_ENABLED", "false")
	t.Setenv("SALES_TELEMETRY_ENABLED", "false")

	cfg, err := readConfig(viper.New(), t.TempDir(), "missing")
	require.NoError(t, err)
	return cfg
}

func TestBuildDependencies_Memory(t *testing.T) {
	deps, err := BuildDependencies(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.EventSubscriber)
	assert.IsType(t, &infrastructure.MemorySaleRepository{}, deps.SaleRepository)
	assert.IsType(t, &infrastructure.MemoryConfirmationLock{}, deps.ConfirmationLock)
	assert.IsType(t, &infrastructure.LogEventPublisher{}, deps.EventPublisher)
	assert.IsType(t, &infrastructure.ResilientPaymentGateway{}, deps.PaymentGateway)
	assert.NotNil(t, deps.SaleHandlers)
	assert.NotNil(t, deps.SaleEventHandlers)
	assert.NotNil(t, deps.RecoveryJob)
}

func TestBuildDependencies_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	deps, err := BuildDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.IsType(t, &infrastructure.RedisConfirmationLock{}, deps.ConfirmationLock)
	assert.NotNil(t, deps.RedisClient)
}

func TestBuildDependencies_Errors(t *testing.T) {
	t.Run("invalid recovery schedule", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.Recovery.Schedule = "whenever"

		_, err := BuildDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid recovery schedule")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := memoryConfig(t)
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr

		_, err := BuildDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping redis")
	})
}
