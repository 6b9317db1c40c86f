package session

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/kayako/beanstalk-broker/internal/broker"
	"github.com/stretchr/testify/require"
)

func itoa(n int) string { return strconv.Itoa(n) }

func startTestSession(t *testing.T) (client *bufio.ReadWriter, q *broker.Queue, closeFn func()) {
	t.Helper()
	q = broker.New(broker.Config{MaxJobSize: 1 << 16, SweepInterval: 10 * time.Millisecond}, nil, nil)
	q.Start()

	serverConn, clientConn := net.Pipe()
	sess := New(serverConn, q)
	done := make(chan struct{})
	go func() {
		sess.Serve()
		close(done)
	}()

	rw := bufio.NewReadWriter(bufio.NewReader(clientConn), bufio.NewWriter(clientConn))
	return rw, q, func() {
		clientConn.Close()
		<-done
		q.Stop()
	}
}

func mustWriteLine(t *testing.T, rw *bufio.ReadWriter, line string) {
	t.Helper()
	_, err := rw.WriteString(line + "\r\n")
	require.NoError(t, err)
	require.NoError(t, rw.Flush())
}

func mustReadLine(t *testing.T, rw *bufio.ReadWriter) string {
	t.Helper()
	line, err := rw.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestSessionPutReserveDelete(t *testing.T) {
	rw, _, closeFn := startTestSession(t)
	defer closeFn()

	mustWriteLine(t, rw, "put 10 0 60 5")
	mustWriteLine(t, rw, "hello")
	require.Equal(t, "INSERTED 1\r\n", mustReadLine(t, rw))

	mustWriteLine(t, rw, "reserve")
	require.Equal(t, "RESERVED 1 5\r\n", mustReadLine(t, rw))
	require.Equal(t, "hello\r\n", mustReadLine(t, rw))

	mustWriteLine(t, rw, "delete 1")
	require.Equal(t, "DELETED\r\n", mustReadLine(t, rw))
}

func TestSessionUseWatchIgnore(t *testing.T) {
	rw, _, closeFn := startTestSession(t)
	defer closeFn()

	mustWriteLine(t, rw, "use jobs")
	require.Equal(t, "USING jobs\r\n", mustReadLine(t, rw))

	mustWriteLine(t, rw, "watch extra")
	require.Equal(t, "WATCHING 2\r\n", mustReadLine(t, rw))

	mustWriteLine(t, rw, "ignore default")
	require.Equal(t, "WATCHING 1\r\n", mustReadLine(t, rw))

	mustWriteLine(t, rw, "ignore extra")
	require.Equal(t, "NOT_IGNORED\r\n", mustReadLine(t, rw))
}

func TestSessionJobTooBig(t *testing.T) {
	rw, q, closeFn := startTestSession(t)
	defer closeFn()
	_ = q

	const big = 70000 // exceeds the 65536-byte MaxJobSize configured above
	mustWriteLine(t, rw, "put 10 0 60 "+itoa(big))
	mustWriteLine(t, rw, string(make([]byte, big)))
	require.Equal(t, "JOB_TOO_BIG\r\n", mustReadLine(t, rw))
}

func TestSessionReserveWithTimeoutTimesOut(t *testing.T) {
	rw, _, closeFn := startTestSession(t)
	defer closeFn()

	mustWriteLine(t, rw, "reserve-with-timeout 0")
	require.Equal(t, "TIMED_OUT\r\n", mustReadLine(t, rw))
}

func TestSessionBadFormat(t *testing.T) {
	rw, _, closeFn := startTestSession(t)
	defer closeFn()

	mustWriteLine(t, rw, "put notanumber 0 60 5")
	require.Equal(t, "BAD_FORMAT\r\n", mustReadLine(t, rw))
}
