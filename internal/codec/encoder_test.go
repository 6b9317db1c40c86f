package codec

import (
	"bytes"
	"testing"

	"github.com/kayako/beanstalk-broker/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeReserved(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, proto.Reserved(7, []byte("hi"))))
	assert.Equal(t, "RESERVED 7 2\r\nhi\r\n", buf.String())
}

func TestEncodeSimple(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, proto.Response{Kind: proto.RespNotFound}))
	assert.Equal(t, "NOT_FOUND\r\n", buf.String())
}

func TestEncodeUsing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, proto.Using("jobs")))
	assert.Equal(t, "USING jobs\r\n", buf.String())
}

func TestEncodeOK(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, proto.OK([]byte("a: 1\n"))))
	assert.Equal(t, "OK 5\r\na: 1\n\r\n", buf.String())
}
