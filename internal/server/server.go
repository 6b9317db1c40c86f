/*
	Package server accepts TCP connections and hands each to a fresh
	internal/session.Session, generalizing the teacher's BrokerDispatcher
	(broker/broker_dispatcher.go): where the teacher fanned a tube name out
	to a fixed pool of shell-invoking workers coordinated by a WaitGroup and
	a shutdown channel, Server fans an incoming connection out to its own
	goroutine under the same WaitGroup/channel shutdown idiom.
*/
package server

import (
	"net"
	"sync"

	"github.com/kayako/beanstalk-broker/internal/broker"
	"github.com/kayako/beanstalk-broker/internal/session"
	log "github.com/sirupsen/logrus"
)

// BindError wraps a failure to acquire the listening socket, distinct from
// an error surfacing later out of Accept once the server is already bound
// (spec.md §6 maps these to different process exit codes).
type BindError struct{ Err error }

func (e *BindError) Error() string { return "bind: " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }

// Server listens on one TCP address and serves Beanstalk protocol
// connections against a shared Queue.
type Server struct {
	Address string
	Queue   *broker.Queue

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
}

// New builds a Server bound to address, not yet listening.
func New(address string, q *broker.Queue) *Server {
	return &Server{Address: address, Queue: q, quit: make(chan struct{})}
}

// ListenAndServe starts the queue's background sweep, opens the listener,
// and accepts connections until Shutdown is called. It blocks until the
// listener is closed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return &BindError{Err: err}
	}
	s.listener = ln

	s.Queue.Start()
	log.WithField("address", s.Address).Info("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				log.WithError(err).Error("accept error")
				return err
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess := session.New(conn, s.Queue)
			sess.Serve()
		}()
	}
}

// Shutdown stops accepting new connections, waits until every open session
// has ended, then halts the background sweep. It does not close open
// sessions' connections; each session ends only when its client
// disconnects or quits.
func (s *Server) Shutdown() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	s.Queue.Stop()
}
