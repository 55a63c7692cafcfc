package transfer_test

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/TheMichaelB/sharegate/internal/metrics"
)

func gatherAndCompare(c *metrics.Collector, expected string, names ...string) error {
	return testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), names...)
}

func gatherCount(c *metrics.Collector, names ...string) (int, error) {
	return testutil.GatherAndCount(c.Registry(), names...)
}
