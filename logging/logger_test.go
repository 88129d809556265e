package logging

import (
	"bytes"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
)

func TestCreateLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := CreateLogger("warn", &buf)

	logger.Info().Msg("page flushed")
	assert.Empty(t, buf.String())

	logger.Warn().Str("file", "students.heap").Msg("slow sync")
	assert.Contains(t, buf.String(), "slow sync")
	assert.Contains(t, buf.String(), "students.heap")
}

func TestNopDropsEverything(t *testing.T) {
	logger := Nop()
	logger.Error().Msg("ignored")
	assert.Equal(t, log.PanicLevel, logger.Level)
}
