package usecase

import (
	"fbetl/pkg/logger"
	"fbetl/pkg/metrics"
)

// Shared across the package's tests: the prometheus default registry
// rejects duplicate collector registration.
var (
	testLogger  = logger.New("error")
	testMetrics = metrics.New()
)
