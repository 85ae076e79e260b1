package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	RequestID string   `json:"requestId"`
	Optional  *string  `json:"optional,omitempty"`
	Items     []string `json:"items"`
}

func TestMarshal_OmitEmpty(t *testing.T) {
	data, err := Marshal(sample{RequestID: "req-1", Items: []string{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestId":"req-1","items":["a"]}`, string(data))
}

func TestUnmarshal(t *testing.T) {
	var s sample
	require.NoError(t, Unmarshal([]byte(`{"requestId":"req-2","optional":"x","items":[]}`), &s))
	assert.Equal(t, "req-2", s.RequestID)
	require.NotNil(t, s.Optional)
	assert.Equal(t, "x", *s.Optional)
	assert.Empty(t, s.Items)
}

func TestUnmarshal_Invalid(t *testing.T) {
	var s sample
	assert.Error(t, Unmarshal([]byte(`{"requestId":`), &s))
	assert.False(t, Valid([]byte(`{"requestId":`)))
	assert.True(t, Valid([]byte(`{}`)))
}

func TestMarshalToString(t *testing.T) {
	str, err := MarshalToString(map[string]int{"employees": 50})
	require.NoError(t, err)
	assert.Equal(t, `{"employees":50}`, str)
}

func TestRawMessage(t *testing.T) {
	type wrapper struct {
		Data RawMessage `json:"data"`
	}
	var w wrapper
	require.NoError(t, Unmarshal([]byte(`{"data":{"nested":true}}`), &w))
	assert.JSONEq(t, `{"nested":true}`, string(w.Data))
}
