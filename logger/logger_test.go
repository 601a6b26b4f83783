package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Level(t *testing.T) {
	for verbosity, want := range map[int]logrus.Level{
		-1: logrus.PanicLevel,
		0:  logrus.PanicLevel,
		2:  logrus.ErrorLevel,
		3:  logrus.WarnLevel,
		4:  logrus.InfoLevel,
		5:  logrus.DebugLevel,
		9:  logrus.TraceLevel,
	} {
		assert.Equal(t, want, Config{Verbosity: verbosity}.Level(), "verbosity %d", verbosity)
	}
}

func TestNew_JSON(t *testing.T) {
	var out bytes.Buffer
	log, err := NewWithOutput(Config{Verbosity: 4, Format: FormatJSON}, &out)
	require.NoError(t, err)

	Module(log, "lightclient").WithField("id", 7).Info("New signature commitment")
	Module(log, "lightclient").Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "New signature commitment", entry["msg"])
	assert.Equal(t, "lightclient", entry["module"])
	assert.EqualValues(t, 7, entry["id"])
}

func TestNew_Hooks(t *testing.T) {
	log, err := NewWithOutput(DefaultConfig(), &bytes.Buffer{})
	require.NoError(t, err)
	hook := test.NewLocal(log)

	Module(log, "channel").Warn("Message dispatch failed")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "channel", hook.LastEntry().Data["module"])
}

func TestNew_Errors(t *testing.T) {
	_, err := NewWithOutput(Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithOutput(Config{Format: FormatText, SentryDSN: "not a dsn"}, &bytes.Buffer{})
	assert.Error(t, err)
}
