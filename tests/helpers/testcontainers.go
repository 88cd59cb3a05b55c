// This file is a helper for running tests with testcontainers.
// It is used by cmd/testcontainers as a standalone dev stack and by the integration tests.
// Expects environment variables to be loaded from .env files.
//

package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/localnerve/gestionale/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainers holds the running backing services
type TestContainers struct {
	Network        *testcontainers.DockerNetwork
	DBContainer    testcontainers.Container
	RedisContainer testcontainers.Container

	DBHost   string
	DBPort   string
	RedisURL string
}

// Terminate stops every container that was started
func (tc *TestContainers) Terminate(t testing.TB) {
	ctx := context.Background()
	// TerminateContainer tolerates containers that never finished starting
	if err := testcontainers.TerminateContainer(tc.RedisContainer); err != nil {
		logMessage(t, "Failed to terminate Redis: %v", err)
	}
	if err := testcontainers.TerminateContainer(tc.DBContainer); err != nil {
		logMessage(t, "Failed to terminate database: %v", err)
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// Config returns a configuration pointing at the containers
func (tc *TestContainers) Config() *config.Config {
	cfg := TestConfig()
	cfg.DBType = getEnv("DB_TYPE", "postgres")
	cfg.DBHost = tc.DBHost
	cfg.DBPort = tc.DBPort
	cfg.DBDatabase = getEnv("DB_DATABASE", "gestionale")
	cfg.DBUser = getEnv("DB_USER", "gestionale")
	cfg.DBPassword = getEnv("DB_PASSWORD", "gestionale")
	cfg.DBConnectionLimit = 5
	cfg.DBLogLevel = "silent"
	cfg.RedisURL = tc.RedisURL
	return cfg
}

// CreateAllTestContainers starts the database named by DB_TYPE and a Redis instance on a
// private network, failing the test on error.
func CreateAllTestContainers(t testing.TB) (*TestContainers, error) {
	tc, err := StartTestContainers(context.Background(), t)
	if err != nil {
		exitWithError(t, err, "Failed to start testcontainers")
	}
	return tc, nil
}

// StartTestContainers starts the backing services under ctx. On error, including
// cancellation, whatever was already started is terminated before returning.
// t may be nil when running standalone.
func StartTestContainers(ctx context.Context, t testing.TB) (*TestContainers, error) {
	tc := &TestContainers{}
	fail := func(err error, msg string) (*TestContainers, error) {
		tc.Terminate(t)
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw
	networkName := nw.Name

	// Database
	dbType := getEnv("DB_TYPE", "postgres")
	tcpDbPort, err := nat.NewPort("tcp", dbContainerPort(dbType))
	if err != nil {
		return fail(err, "failed to create DB port")
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("DB_IMAGE", dbImage(dbType)),
			ExposedPorts: []string{string(tcpDbPort)},
			Env:          getDBInitEnvMap(dbType),
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				// Throwaway data directory
				hostConfig.Tmpfs = map[string]string{dbDataDir(dbType): "rw"}
			},
			WaitingFor: wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"db"},
			},
		},
		Started: true,
	})
	tc.DBContainer = dbContainer
	if err != nil {
		return fail(err, "failed to start database")
	}

	dbHost, err := dbContainer.Host(ctx)
	if err != nil {
		return fail(err, "failed to resolve database host")
	}
	dbPort, err := dbContainer.MappedPort(ctx, tcpDbPort)
	if err != nil {
		return fail(err, "failed to resolve database port")
	}
	tc.DBHost = dbHost
	tc.DBPort = dbPort.Port()

	switch dbType {
	case "mysql", "mariadb":
		if err := waitForMySQL(ctx, dbHost, dbPort); err != nil {
			return fail(err, "database not ready")
		}
	}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", dbHost, dbPort.Port())

	// Redis
	tcpRedisPort, err := nat.NewPort("tcp", "6379")
	if err != nil {
		return fail(err, "failed to create Redis port")
	}
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("REDIS_IMAGE", "redis:7-alpine"),
			ExposedPorts: []string{string(tcpRedisPort)},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"redis"},
			},
		},
		Started: true,
	})
	tc.RedisContainer = redisContainer
	if err != nil {
		return fail(err, "failed to start Redis")
	}

	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		return fail(err, "failed to resolve Redis host")
	}
	redisPort, err := redisContainer.MappedPort(ctx, tcpRedisPort)
	if err != nil {
		return fail(err, "failed to resolve Redis port")
	}
	tc.RedisURL = fmt.Sprintf("redis://%s/0", net.JoinHostPort(redisHost, redisPort.Port()))
	logMessage(t, "REDIS_URL=%s", tc.RedisURL)

	logMessage(t, "Gestionale testcontainers started successfully")
	return tc, nil
}

func dbImage(dbType string) string {
	switch dbType {
	case "mysql":
		return "mysql:8"
	case "mariadb":
		return "mariadb:11"
	}
	return "postgres:16-alpine"
}

func dbContainerPort(dbType string) string {
	switch dbType {
	case "mysql", "mariadb":
		return "3306"
	}
	return "5432"
}

func dbDataDir(dbType string) string {
	switch dbType {
	case "mysql", "mariadb":
		return "/var/lib/mysql"
	}
	return "/var/lib/postgresql/data"
}

func getDBInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "mariadb", "mysql":
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "root"),
			"MYSQL_DATABASE":      getEnv("DB_DATABASE", "gestionale"),
			"MYSQL_USER":          getEnv("DB_USER", "gestionale"),
			"MYSQL_PASSWORD":      getEnv("DB_PASSWORD", "gestionale"),
		}
	}
	return map[string]string{
		"POSTGRES_PASSWORD": getEnv("DB_PASSWORD", "gestionale"),
		"POSTGRES_USER":     getEnv("DB_USER", "gestionale"),
		"POSTGRES_DB":       getEnv("DB_DATABASE", "gestionale"),
	}
}

// waitForMySQL polls until the server accepts the application user. The port opens
// before the entrypoint has finished creating the database.
func waitForMySQL(ctx context.Context, host string, port nat.Port) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s",
		getEnv("DB_USER", "gestionale"),
		getEnv("DB_PASSWORD", "gestionale"),
		net.JoinHostPort(host, port.Port()),
		getEnv("DB_DATABASE", "gestionale"),
	)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return fmt.Errorf("not ready after 30 seconds: %w", err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t testing.TB, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		slog.Error(msg, "error", err)
		os.Exit(1)
	}
}

func logMessage(t testing.TB, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		slog.Info(fmt.Sprintf(format, args...))
	}
}
