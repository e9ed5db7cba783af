// Package test offers helpers for protocol tests: trusted-dealer key
// batches and loggers tied to the test name.
package test

import (
	"os"
	"testing"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
	"github.com/honeybft/honeybft/log"
)

// BatchKeys deals a fresh (threshold, n) key set for the given scheme.
func BatchKeys(t testing.TB, sch *crypto.Scheme, n, threshold int) *key.KeySet {
	t.Helper()
	ks, err := key.Generate(sch, n, threshold)
	if err != nil {
		t.Fatalf("batch keys: %v", err)
	}
	return ks
}

// LogLevel returns the level to default the test logger to, based on the
// HONEYBFT_TEST_LOGS presence.
func LogLevel(t testing.TB) int {
	logLevel := log.InfoLevel
	debugEnv, isDebug := os.LookupEnv("HONEYBFT_TEST_LOGS")
	if isDebug && debugEnv == "DEBUG" {
		t.Log("Enabling DebugLevel logs")
		logLevel = log.DebugLevel
	}
	return logLevel
}

// Logger returns a configured logger for the test.
func Logger(t testing.TB) log.Logger {
	return log.New(nil, LogLevel(t), true).
		With("testName", t.Name())
}
