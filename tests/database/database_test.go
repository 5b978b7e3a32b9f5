package database_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/JaimeStill/mathlens/pkg/database"
)

func TestNewReturnsSystem(t *testing.T) {
	cfg := database.Config{
		Host:            "localhost",
		Port:            5432,
		Name:            "mathlens",
		User:            "mathlens",
		Password:        "mathlens",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    4,
		ConnMaxLifetime: "30m",
		ConnTimeout:     "5s",
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if sys == nil {
		t.Fatal("New() returned nil system")
	}

	conn := sys.Connection()
	if conn == nil {
		t.Fatal("Connection() returned nil")
	}

	// sql.Open is lazy — Close should succeed even without a reachable server
	conn.Close()
}

func TestNewSetsPoolParams(t *testing.T) {
	cfg := database.Config{
		Host:            "localhost",
		Port:            5432,
		Name:            "mathlens",
		User:            "mathlens",
		SSLMode:         "disable",
		MaxOpenConns:    16,
		MaxIdleConns:    6,
		ConnMaxLifetime: "10m",
		ConnTimeout:     "3s",
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := sys.Connection()
	defer conn.Close()

	stats := conn.Stats()
	if stats.MaxOpenConnections != 16 {
		t.Errorf("MaxOpenConnections = %d, want 16", stats.MaxOpenConnections)
	}
}

func TestReadyWithoutServer(t *testing.T) {
	cfg := database.Config{
		Host:            "127.0.0.1",
		Port:            1, // nothing listens here
		Name:            "mathlens",
		User:            "mathlens",
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: "1m",
		ConnTimeout:     "1s",
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Connection().Close()

	err = sys.Ready(context.Background())
	if !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Ready() = %v, want ErrNotReady", err)
	}
}
