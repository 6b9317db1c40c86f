package codec

import (
	"bytes"

	"github.com/kayako/beanstalk-broker/internal/proto"
)

type decoderState int

const (
	stateParseCommand decoderState = iota
	stateParseJob
	stateDiscardToNewline
)

// Decoder implements the three-state framer from spec.md §4.1:
// ParseCommand -> (ParseJob{remaining})? -> ParseCommand, with
// DiscardToNewline as the error-recovery state. It is not safe for
// concurrent use; each connection owns one Decoder.
type Decoder struct {
	state     decoderState
	remaining int // valid when state == stateParseJob

	buf []byte // bytes fed but not yet consumed
}

// NewDecoder returns a Decoder ready to parse a fresh connection's input,
// starting in ParseCommand.
func NewDecoder() *Decoder {
	return &Decoder{state: stateParseCommand}
}

// Feed appends newly-read bytes and decodes as many events as are fully
// available. It returns the events in wire order. A non-nil error is always
// the last thing returned; no further events follow it, and per spec.md
// §4.1 the caller must not call Feed again after a *Error of KindClient
// (send Err.Resp, then close) or KindIO (just close).
func (d *Decoder) Feed(data []byte) ([]Event, error) {
	if len(data) > 0 {
		d.buf = append(d.buf, data...)
	}

	var events []Event
	for {
		ev, progressed, err := d.step()
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
		if !progressed {
			return events, nil
		}
	}
}

// step attempts to make one unit of progress. It returns (event, true, nil)
// if an event was produced, (nil, false, nil) if more input is needed, or
// (nil, true, err) on a framing error.
func (d *Decoder) step() (Event, bool, error) {
	switch d.state {
	case stateParseCommand:
		return d.stepParseCommand()
	case stateParseJob:
		return d.stepParseJob()
	case stateDiscardToNewline:
		return d.stepDiscard()
	default:
		panic("codec: unreachable decoder state")
	}
}

func (d *Decoder) stepParseCommand() (Event, bool, error) {
	limit := len(d.buf)
	if limit > proto.MaxLineLen {
		limit = proto.MaxLineLen
	}

	idx := bytes.Index(d.buf[:limit], []byte("\r\n"))
	if idx < 0 {
		if len(d.buf) >= proto.MaxLineLen {
			d.state = stateDiscardToNewline
			resp := proto.Response{Kind: proto.RespBadFormat}
			return nil, true, clientError(resp, errLineTooLong)
		}
		return nil, false, nil
	}

	line := d.buf[:idx]
	d.consume(idx + 2)

	cmd, err := proto.ParseCommand(line)
	if err != nil {
		d.state = stateDiscardToNewline
		kind := proto.RespBadFormat
		if proto.IsUnknownCommand(err) {
			kind = proto.RespUnknownCommand
		}
		return nil, true, clientError(proto.Response{Kind: kind}, err)
	}

	if cmd.Kind == proto.CmdPut {
		d.state = stateParseJob
		d.remaining = int(cmd.NBody)
	}

	return CommandEvent{Cmd: cmd}, true, nil
}

func (d *Decoder) stepParseJob() (Event, bool, error) {
	if d.remaining == 0 {
		if len(d.buf) < 2 {
			return nil, false, nil
		}
		if d.buf[0] == '\r' && d.buf[1] == '\n' {
			d.consume(2)
			d.state = stateParseCommand
			return PutEndEvent{}, true, nil
		}
		d.state = stateDiscardToNewline
		return nil, true, clientError(proto.Response{Kind: proto.RespExpectedCRLF}, errExpectedCRLF)
	}

	if len(d.buf) == 0 {
		return nil, false, nil
	}

	take := d.remaining
	if take > len(d.buf) {
		take = len(d.buf)
	}

	chunk := make([]byte, take)
	copy(chunk, d.buf[:take])
	d.consume(take)
	d.remaining -= take

	return PutChunkEvent{Data: chunk}, true, nil
}

func (d *Decoder) stepDiscard() (Event, bool, error) {
	if len(d.buf) == 0 {
		return nil, false, nil
	}

	if idx := bytes.Index(d.buf, []byte("\r\n")); idx >= 0 {
		d.consume(idx + 2)
		d.state = stateParseCommand
		return DiscardedEvent{}, true, nil
	}

	if len(d.buf) <= 1 {
		// Only one byte buffered and no CRLF in it; it may be the first
		// half of a split "\r\n", so wait for more input instead of
		// reporting progress we didn't make.
		return nil, false, nil
	}

	// Preserve the final byte in case it's the start of "\r\n" split across
	// reads, matching original_source's DiscardToNewline behavior.
	d.consume(len(d.buf) - 1)
	return DiscardedEvent{}, true, nil
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[n:]
	if len(d.buf) == 0 {
		// Drop the reference so the backing array can be reclaimed between
		// commands instead of growing unboundedly over a long-lived
		// connection.
		d.buf = nil
	}
}

var (
	errLineTooLong  = errLine("command line exceeds 224 bytes")
	errExpectedCRLF = errLine("job body not terminated by CRLF")
)

type errLine string

func (e errLine) Error() string { return string(e) }
