package region

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}

	mc.RecordAlloc(4096, 10*time.Nanosecond, nil)
	mc.RecordAlloc(8192, 30*time.Nanosecond, errors.New("oom"))
	mc.RecordFree(4096, time.Nanosecond)
	mc.RecordProtect(time.Nanosecond, nil)
	mc.RecordQuery(time.Nanosecond, errors.New("unmapped"))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.AllocCount)
	assert.Equal(t, int64(1), stats.AllocErrors)
	assert.Equal(t, int64(4096), stats.AllocBytes)
	assert.Equal(t, int64(20), stats.AllocAvgNanos)
	assert.Equal(t, int64(1), stats.FreeCount)
	assert.Equal(t, int64(4096), stats.FreeBytes)
	assert.Equal(t, int64(1), stats.ProtectCount)
	assert.Zero(t, stats.ProtectErrors)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryErrors)
}

func TestBasicMetricsCollector_Empty(t *testing.T) {
	assert.Zero(t, (&BasicMetricsCollector{}).GetStats().AllocAvgNanos)
}

var _ MetricsCollector = NoopMetricsCollector{}
var _ MetricsCollector = (*BasicMetricsCollector)(nil)
