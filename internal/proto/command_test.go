package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandPut(t *testing.T) {
	cmd, err := ParseCommand([]byte("put 1024 0 60 11"))
	require.NoError(t, err)
	assert.Equal(t, CmdPut, cmd.Kind)
	assert.EqualValues(t, 1024, cmd.Pri)
	assert.EqualValues(t, 0, cmd.Delay)
	assert.EqualValues(t, 60, cmd.TTR)
	assert.EqualValues(t, 11, cmd.NBody)
}

func TestParseCommandReserveWithTimeout(t *testing.T) {
	cmd, err := ParseCommand([]byte("reserve-with-timeout 5"))
	require.NoError(t, err)
	assert.Equal(t, CmdReserveWithTimeout, cmd.Kind)
	assert.EqualValues(t, 5, cmd.Sec)
}

func TestParseCommandUseValidatesName(t *testing.T) {
	_, err := ParseCommand([]byte("use -bad"))
	assert.Error(t, err)
	assert.False(t, IsUnknownCommand(err))
}

func TestParseCommandUnknownVerb(t *testing.T) {
	_, err := ParseCommand([]byte("frobnicate 1 2 3"))
	assert.True(t, IsUnknownCommand(err))
}

func TestParseCommandEmptyLine(t *testing.T) {
	_, err := ParseCommand([]byte(""))
	assert.Error(t, err)
	assert.False(t, IsUnknownCommand(err))
}

func TestParseCommandBuryWrongArgCount(t *testing.T) {
	_, err := ParseCommand([]byte("bury 1"))
	assert.Error(t, err)
}

func TestParseCommandRelease(t *testing.T) {
	cmd, err := ParseCommand([]byte("release 42 0 5"))
	require.NoError(t, err)
	assert.Equal(t, CmdRelease, cmd.Kind)
	assert.EqualValues(t, 42, cmd.ID)
	assert.EqualValues(t, 5, cmd.Delay)
}
