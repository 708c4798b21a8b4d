package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "documents:raw", cfg.Stream.Stream)
	require.Equal(t, "analyzers", cfg.Stream.Group)
	require.Equal(t, "consumer-1", cfg.Stream.Consumer)
	require.Equal(t, 10, cfg.Stream.BatchSize)
	require.Equal(t, 5*time.Second, cfg.Stream.BlockWait)
	require.Equal(t, 5*time.Minute, cfg.Stream.MinIdle)
	require.Equal(t, time.Minute, cfg.Stream.RecoveryInterval)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "documents", cfg.Qdrant.Collection)
	require.Equal(t, 1024, cfg.Qdrant.Dimension)
	require.Equal(t, "bronze", cfg.Storage.Bucket)
	require.Equal(t, 50, cfg.Pipeline.MinTextLength)
	require.Equal(t, 3, cfg.Pipeline.RetryCount)
	require.Equal(t, time.Second, cfg.Pipeline.RetryBackoff)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6390")
	t.Setenv("CONSUMER_NAME", "worker-7")
	t.Setenv("S3_BUCKET", "bronze-staging")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=db user=app dbname=documents")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "redis.internal:6390", cfg.Stream.Addr)
	require.Equal(t, "worker-7", cfg.Stream.Consumer)
	require.Equal(t, "bronze-staging", cfg.Storage.Bucket)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "host=db user=app dbname=documents", cfg.Database.DSN)
}
