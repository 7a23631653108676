package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 6000, cfg.Marketplace.GlobalRPM)
	assert.Equal(t, 9000, cfg.Marketplace.AccountRPM)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Sync.LockTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Orders.InitialLookback)
	assert.Equal(t, 10*24*time.Hour, cfg.Orders.Overlap)
	assert.Equal(t, 5*time.Minute, cfg.Orders.SafetyMargin)
	assert.Equal(t, "MAIN", cfg.Orders.Warehouse)
	assert.Empty(t, cfg.Marketplace.Accounts)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "SQLite")
	v.Set("SYNC_RETRY_DELAY", "45s")
	v.Set("SYNC_BATCH_SIZE", "50")
	v.Set("ORDERS_SAFETY_MARGIN", "120")
	v.Set("MARKETPLACE_ACCOUNTS", "acc-1:Tienda Norte:tok:en, acc-2::t2")
	v.Set("HTTP_API_TOKEN", "secreto")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "secreto", cfg.HTTP.APIToken)
	assert.Equal(t, 45*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 2*time.Minute, cfg.Orders.SafetyMargin, "número entero = segundos")
	require.Len(t, cfg.Marketplace.Accounts, 2)
	assert.Equal(t, AccountSeed{ID: "acc-1", Name: "Tienda Norte", Token: "tok:en"}, cfg.Marketplace.Accounts[0])
	assert.Equal(t, "t2", cfg.Marketplace.Accounts[1].Token)
}

func TestFromViper_InvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "oracle")
	_, err := fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("RATE_LIMIT_BACKEND", "memcached")
	_, err = fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("MARKETPLACE_ACCOUNTS", "solo-id")
	_, err = fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "stock", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/stock?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
