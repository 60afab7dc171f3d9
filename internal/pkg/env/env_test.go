package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	prev := Env
	Env = map[string]string{"FROM_FILE": "file-value", "SHADOWED": "file-value"}
	t.Cleanup(func() { Env = prev })

	t.Setenv("SHADOWED", "process-value")

	assert.Equal(t, "file-value", GetEnv("FROM_FILE", "default"))
	assert.Equal(t, "process-value", GetEnv("SHADOWED", "default"))
	assert.Equal(t, "default", GetEnv("MISSING", "default"))
}

func TestGetEnvInt(t *testing.T) {
	prev := Env
	Env = map[string]string{"PORT": "6380", "GARBAGE": "not-a-number"}
	t.Cleanup(func() { Env = prev })

	assert.Equal(t, 6380, GetEnvInt("PORT", 6379))
	assert.Equal(t, 6379, GetEnvInt("GARBAGE", 6379))
	assert.Equal(t, 6379, GetEnvInt("MISSING", 6379))
}
