package codec

import (
	"strings"
	"testing"

	"github.com/kayako/beanstalk-broker/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderParsesPutWithBody(t *testing.T) {
	d := NewDecoder()
	events, err := d.Feed([]byte("put 10 0 60 5\r\nhello\r\n"))
	require.NoError(t, err)
	require.Len(t, events, 3)

	cmdEv, ok := events[0].(CommandEvent)
	require.True(t, ok)
	assert.Equal(t, proto.CmdPut, cmdEv.Cmd.Kind)
	assert.EqualValues(t, 5, cmdEv.Cmd.NBody)

	chunkEv, ok := events[1].(PutChunkEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", string(chunkEv.Data))

	_, ok = events[2].(PutEndEvent)
	assert.True(t, ok)
}

func TestDecoderSplitAcrossFeeds(t *testing.T) {
	d := NewDecoder()
	events, err := d.Feed([]byte("put 10 0 60 5\r\nhel"))
	require.NoError(t, err)
	require.Len(t, events, 2) // command + partial chunk

	events, err = d.Feed([]byte("lo\r\n"))
	require.NoError(t, err)
	require.Len(t, events, 2) // remaining chunk + end
	_, ok := events[1].(PutEndEvent)
	assert.True(t, ok)
}

func TestDecoderBadFormatEntersDiscard(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte("put nope\r\n"))
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindClient, cerr.Kind)
	assert.Equal(t, proto.RespBadFormat, cerr.Resp.Kind)

	// Decoder resyncs on the next CRLF-terminated line rather than getting
	// stuck, matching spec.md §4.1's DiscardToNewline recovery state.
	events, err := d.Feed([]byte("ignored junk\r\nquit\r\n"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	_, ok := events[0].(DiscardedEvent)
	require.True(t, ok)
	cmdEv, ok := events[1].(CommandEvent)
	require.True(t, ok)
	assert.Equal(t, proto.CmdQuit, cmdEv.Cmd.Kind)
}

func TestDecoderLineTooLong(t *testing.T) {
	d := NewDecoder()
	longLine := "use " + strings.Repeat("a", proto.MaxLineLen)
	_, err := d.Feed([]byte(longLine))
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, proto.RespBadFormat, cerr.Resp.Kind)
}

func TestDecoderDiscardWithoutCRLFDoesNotSpin(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte("put nope\r\n"))
	require.Error(t, err)

	// No CRLF anywhere in this chunk: stepDiscard must ask for more input
	// rather than looping forever re-discarding zero bytes.
	events, err := d.Feed([]byte("no newline here"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), 1)

	events, err = d.Feed([]byte(" still none"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), 1)

	events, err = d.Feed([]byte("\r\nquit\r\n"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	_, ok := events[0].(DiscardedEvent)
	require.True(t, ok)
	cmdEv, ok := events[1].(CommandEvent)
	require.True(t, ok)
	assert.Equal(t, proto.CmdQuit, cmdEv.Cmd.Kind)
}

func TestDecoderExpectedCRLFAfterBody(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte("put 10 0 60 3\r\nabcXY"))
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, proto.RespExpectedCRLF, cerr.Resp.Kind)
}
