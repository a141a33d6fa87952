package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimatedTimeRange(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "09:35-11:35", EstimatedTimeRange(1, start))
	assert.Equal(t, "09:40-11:40", EstimatedTimeRange(2, start))
	assert.Equal(t, "10:20-12:20", EstimatedTimeRange(10, start))
}

func TestEstimatedTimeRangeCrossesMidnight(t *testing.T) {
	start := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "23:35-01:35", EstimatedTimeRange(1, start))
}
