package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8080")
	p, err := Port("TEST_PORT", "1")
	require.NoError(t, err)
	assert.Equal(t, "8080", p)

	t.Setenv("TEST_PORT", "70000")
	_, err = Port("TEST_PORT", "1")
	assert.Error(t, err)
}

func TestRequiredString(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "")
	_, err := RequiredString("TEST_REQUIRED")
	assert.Error(t, err)

	t.Setenv("TEST_REQUIRED", "postgres://x")
	v, err := RequiredString("TEST_REQUIRED")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", v)
}

func TestTypedFallbacks(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	assert.Equal(t, 7, Int("TEST_INT", 7))
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, Int("TEST_INT", 7))

	t.Setenv("TEST_BOOL", "off")
	assert.False(t, Bool("TEST_BOOL", true))
	t.Setenv("TEST_BOOL", "maybe")
	assert.True(t, Bool("TEST_BOOL", true))

	t.Setenv("TEST_DUR", "-1s")
	assert.Equal(t, time.Second, Duration("TEST_DUR", time.Second))
	t.Setenv("TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, Duration("TEST_DUR", time.Second))

	t.Setenv("TEST_LIST", " a, ,b ")
	assert.Equal(t, []string{"a", "b"}, List("TEST_LIST", ""))
}
