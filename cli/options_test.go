package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	o, _, err := ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", o.Listen)
	assert.EqualValues(t, 11300, o.Port)
	assert.Equal(t, "0.0.0.0:11300", o.Address())
}

func TestParseFlagsRejectsZeroPort(t *testing.T) {
	_, _, err := ParseFlags([]string{"--port=0"})
	assert.Error(t, err)
}

func TestParseFlagsRejectsZeroMaxJobSize(t *testing.T) {
	_, _, err := ParseFlags([]string{"--max-job-size=0"})
	assert.Error(t, err)
}

func TestParseFlagsRequeueHead(t *testing.T) {
	o, _, err := ParseFlags([]string{"--requeue-head"})
	require.NoError(t, err)
	assert.True(t, o.RequeueHead)
}
