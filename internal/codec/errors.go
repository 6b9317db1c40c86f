package codec

import (
	"fmt"

	"github.com/kayako/beanstalk-broker/internal/proto"
)

// ErrorKind classifies a decode failure per spec.md §4.1's contract.
type ErrorKind int

const (
	// KindIO is a stream-level failure: the connection must be closed
	// without attempting to send a response.
	KindIO ErrorKind = iota
	// KindClient is a protocol-level failure: Resp must be sent to the
	// client, then the connection closed. The decoder does not attempt to
	// resume after this; spec.md §4.1 explicitly rejects resumption to
	// avoid desynchronization.
	KindClient
)

// Error is returned by Decoder.Feed on framing failure.
type Error struct {
	Kind ErrorKind
	Resp proto.Response
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindClient {
		return fmt.Sprintf("client protocol error: %v", e.Err)
	}
	return fmt.Sprintf("io error: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func clientError(resp proto.Response, err error) *Error {
	return &Error{Kind: KindClient, Resp: resp, Err: err}
}

func ioError(err error) *Error {
	return &Error{Kind: KindIO, Err: err}
}
