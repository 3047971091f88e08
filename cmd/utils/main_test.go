package utils

import (
	"os"
	"testing"

	"github.com/dominant-strategies/go-tributary/log"
)

func TestMain(m *testing.M) {
	// Comment / un comment below to see log output while testing
	log.WithNullLogger()(log.Global)
	// log.WithLevel("debug")(log.Global)
	os.Exit(m.Run())
}
