package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRtcTimeRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2021, 3, 1, 6, 7, 8, 0, time.UTC)
	rt := toRtcTime(at)
	assert.Equal(t, int32(121), rt.Year)
	assert.Equal(t, int32(2), rt.Mon)
	assert.Equal(t, int32(59), rt.Yday)
	assert.Equal(t, at, fromRtcTime(&rt))
}
