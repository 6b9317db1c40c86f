/*
	Package codec implements the line-oriented, length-prefixed Beanstalk
	wire format: decoding a byte stream into a sequence of typed events, and
	encoding typed responses back into bytes.

	The state machine is a direct translation of original_source's
	tokio_util::codec::Decoder (SeanGeb/beanstalk-rs, src/wire/decoder.rs),
	adapted from a stream-oriented trait method into a buffer-oriented
	Decoder.Feed([]byte) call that internal/session drives with the bytes its
	background reader goroutine reads from the connection.
*/
package codec

import "github.com/kayako/beanstalk-broker/internal/proto"

// Event is one decoded unit of client input.
type Event interface{ isEvent() }

// CommandEvent carries a fully parsed command line.
type CommandEvent struct{ Cmd proto.Command }

// PutChunkEvent carries a slice of a put command's body. A body may be
// split across multiple PutChunkEvents if it arrives in more than one read.
type PutChunkEvent struct{ Data []byte }

// PutEndEvent marks the end of a put body (after its trailing CRLF was
// consumed).
type PutEndEvent struct{}

// DiscardedEvent marks that the decoder discarded bytes while resynchronizing
// after a framing error. It carries no data; the caller should do nothing
// but keep reading.
type DiscardedEvent struct{}

func (CommandEvent) isEvent()   {}
func (PutChunkEvent) isEvent()  {}
func (PutEndEvent) isEvent()    {}
func (DiscardedEvent) isEvent() {}
