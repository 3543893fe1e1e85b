//go:build !integration

package pgstore_test

import (
	"os"
	"testing"
)

// testDSN returns PODIUM_TEST_DSN or skips. Run with -tags integration to
// start a throwaway Postgres container instead.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PODIUM_TEST_DSN")
	if dsn == "" {
		t.Skip("PODIUM_TEST_DSN not set")
	}
	return dsn
}
