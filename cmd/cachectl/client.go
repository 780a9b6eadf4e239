package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"github.com/insano70/bcos-sub009/cache"
	"github.com/insano70/bcos-sub009/internal/logging"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
)

func newRedisClient() redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr: viper.GetString("redis.addr"),
		DB:   viper.GetInt("redis.db"),
	})
}

func newLogger() logging.Logger {
	return logging.New("cachectl")
}

// buildCache wires a Cache against a live Redis connection, a YAML-backed
// config provider, and one of the reference database/sql fetchers,
// selected by driver name.
func buildCache(sourceConfigPath, driver, dsn string) (*cache.Cache, func(), error) {
	cfg, err := loadCacheConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load cache config: %w", err)
	}

	configProvider, err := sourcedb.LoadStaticConfigProviderFromYAML(sourceConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load source config: %w", err)
	}

	fetcher, closeFetcher, err := openFetcher(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open source database: %w", err)
	}

	client := newRedisClient()
	c := cache.New(client, configProvider, fetcher, cfg, newLogger())

	cleanup := func() {
		_ = closeFetcher()
		_ = client.Close()
	}
	return c, cleanup, nil
}

func openFetcher(driver, dsn string) (sourcedb.Fetcher, func() error, error) {
	switch driver {
	case "postgres":
		return sourcedb.OpenPostgresFetcher(sourcedb.PostgresConfig{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 5})
	case "mysql":
		return sourcedb.OpenMySQLFetcher(sourcedb.MySQLConfig{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 5})
	case "sqlite", "":
		path := dsn
		if path == "" {
			path = "cachectl-demo.db"
		}
		return sourcedb.OpenSQLiteFetcher(sourcedb.DefaultSQLiteConfig(path))
	default:
		return nil, nil, fmt.Errorf("unknown source driver %q", driver)
	}
}
