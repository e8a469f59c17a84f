package services

import (
	"io"
	"testing"

	"github.com/google/logger"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	logger.Init("services-test", false, false, io.Discard)
	goleak.VerifyTestMain(m)
}
