package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		assert.True(t, strings.HasPrefix(id, "req-"))
		_, dup := seen[id]
		assert.False(t, dup, "duplicate request id %s", id)
		seen[id] = struct{}{}
	}
}

func TestFormatEventTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.FixedZone("CST", 8*3600))
	assert.Equal(t, "2024-03-05T06:07:09.123Z", FormatEventTime(ts))
	assert.Equal(t, "Tue Mar 05 2024", ts.Format(ResponseDateLayout))
}
