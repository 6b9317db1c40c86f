/*
	Package session turns one TCP connection into a Beanstalk protocol
	session: it drives internal/codec.Decoder over the bytes read from the
	connection, dispatches decoded commands to internal/broker.Queue, and
	encodes the results back with internal/codec.Encode.

	The event-driven read loop (one background reader goroutine feeding a
	channel, one foreground goroutine selecting over it and over pending
	reserve timers) is grounded on the teacher's goroutine-plus-channel
	idiom in broker/broker_dispatcher.go, generalized from "poll beanstalkd
	for new tubes" to "poll one client connection for new bytes or a
	reservation outcome".
*/
package session

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/kayako/beanstalk-broker/internal/broker"
	"github.com/kayako/beanstalk-broker/internal/codec"
	"github.com/kayako/beanstalk-broker/internal/proto"
	log "github.com/sirupsen/logrus"
)

// readResult is one outcome of the background reader goroutine.
type readResult struct {
	data []byte
	err  error
}

// Session holds one connection's protocol state: its used tube, watch set,
// in-flight put accumulation, and reservation holder. It is not safe for
// concurrent use; Serve owns it for the connection's lifetime.
type Session struct {
	conn net.Conn
	q    *broker.Queue
	dec  *codec.Decoder
	w    *bufio.Writer

	holder  *broker.Holder
	used    string
	watched map[string]struct{}

	pendingPut       *proto.Command
	pendingBody      []byte
	pendingOversized bool

	readCh chan readResult
	log    *log.Entry
}

// New builds a Session bound to conn, registering a fresh holder with q
// already using and watching the default tube, per spec.md §3.
func New(conn net.Conn, q *broker.Queue) *Session {
	h := q.NewHolder()
	q.IncUse(proto.DefaultTube)
	q.IncWatch(proto.DefaultTube)

	return &Session{
		conn:    conn,
		q:       q,
		dec:     codec.NewDecoder(),
		w:       bufio.NewWriter(conn),
		holder:  h,
		used:    proto.DefaultTube,
		watched: map[string]struct{}{proto.DefaultTube: {}},
		readCh:  make(chan readResult, 1),
		log:     log.WithField("remote", conn.RemoteAddr().String()),
	}
}

// Serve runs the session to completion, closing conn and cleaning up
// broker state (spec.md §4.5's disconnect semantics) before returning.
func (s *Session) Serve() {
	defer s.teardown()

	go s.readLoop()

	for {
		res, ok := <-s.readCh
		if !ok {
			return
		}

		if len(res.data) > 0 {
			events, decErr := s.dec.Feed(res.data)
			for _, ev := range events {
				if !s.handleEvent(ev) {
					s.w.Flush()
					return
				}
			}
			s.w.Flush()
			if decErr != nil {
				s.handleDecodeError(decErr)
				return
			}
		}

		if res.err != nil {
			if !errors.Is(res.err, io.EOF) {
				s.log.WithError(res.err).Debug("connection read error")
			}
			return
		}
	}
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		s.readCh <- readResult{data: data, err: err}
		if err != nil {
			return
		}
	}
}

func (s *Session) teardown() {
	s.q.Disconnect(s.holder, s.used, watchedNames(s.watched))
	s.conn.Close()
}

func watchedNames(m map[string]struct{}) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// handleDecodeError responds to a *codec.Error as spec.md §4.1 requires:
// a KindClient error gets its canned response written before closing; a
// KindIO error just closes.
func (s *Session) handleDecodeError(err error) {
	var cerr *codec.Error
	if errors.As(err, &cerr) && cerr.Kind == codec.KindClient {
		s.writeResp(cerr.Resp)
		s.w.Flush()
		return
	}
	s.log.WithError(err).Debug("decode io error")
}

func (s *Session) writeResp(r proto.Response) {
	if err := codec.Encode(s.w, r); err != nil {
		s.log.WithError(err).Debug("write error")
	}
}

func (s *Session) handleEvent(ev codec.Event) bool {
	switch e := ev.(type) {
	case codec.CommandEvent:
		return s.handleCommand(e.Cmd)
	case codec.PutChunkEvent:
		if !s.pendingOversized {
			s.pendingBody = append(s.pendingBody, e.Data...)
		}
		return true
	case codec.PutEndEvent:
		s.finishPut()
		return true
	case codec.DiscardedEvent:
		return true
	default:
		return true
	}
}

func (s *Session) finishPut() {
	cmd := s.pendingPut
	s.pendingPut = nil
	oversized := s.pendingOversized
	body := s.pendingBody
	s.pendingBody = nil
	s.pendingOversized = false

	if oversized {
		s.writeResp(proto.Response{Kind: proto.RespJobTooBig})
		return
	}

	s.q.NoteProducer(s.holder)
	s.q.RecordCommand("put")
	id := s.q.Put(s.used, cmd.Pri, time.Duration(cmd.Delay)*time.Second, time.Duration(cmd.TTR)*time.Second, body)
	s.writeResp(proto.Inserted(id))
}
