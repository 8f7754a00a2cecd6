package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "ledger.log")

	cfg := &Config{
		Level:      "DEBUG",
		Filename:   filename,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
		Compress:   false,
	}

	log, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.Same(t, log, Log)

	Named("ledger").Info("balance updated")
	Sync()

	_, err = os.Stat(filename)
	assert.NoError(t, err)
}

func TestInitLoggerConsoleOnly(t *testing.T) {
	log, err := InitLogger(&Config{Level: "WARN"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	_, err := InitLogger(&Config{Level: "INVALID"})
	assert.Error(t, err)
}
