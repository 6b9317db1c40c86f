package codec

import (
	"fmt"
	"io"

	"github.com/kayako/beanstalk-broker/internal/proto"
)

// Encode writes resp to w in wire format. It is stateless, matching
// original_source's encoder.rs; unlike the decoder it never fails due to
// client input, only to write or serialization errors.
func Encode(w io.Writer, resp proto.Response) error {
	if name, ok := resp.Kind.Name(); ok {
		_, err := io.WriteString(w, name+"\r\n")
		return err
	}

	switch resp.Kind {
	case proto.RespInserted:
		return writeIDLine(w, "INSERTED", resp.ID)
	case proto.RespBuriedID:
		return writeIDLine(w, "BURIED", resp.ID)
	case proto.RespUsing:
		_, err := io.WriteString(w, "USING "+resp.Tube+"\r\n")
		return err
	case proto.RespReserved:
		return writeJobBody(w, "RESERVED", resp.ID, resp.Body)
	case proto.RespFound:
		return writeJobBody(w, "FOUND", resp.ID, resp.Body)
	case proto.RespWatching:
		return writeCountLine(w, "WATCHING", resp.Count)
	case proto.RespKickedCount:
		return writeCountLine(w, "KICKED", resp.Count)
	case proto.RespOK:
		return writeDataBlock(w, "OK", uint64(len(resp.Body)), resp.Body)
	default:
		return fmt.Errorf("codec: unencodable response kind %d", resp.Kind)
	}
}

func writeIDLine(w io.Writer, verb string, id uint64) error {
	_, err := fmt.Fprintf(w, "%s %d\r\n", verb, id)
	return err
}

func writeCountLine(w io.Writer, verb string, n uint64) error {
	_, err := fmt.Fprintf(w, "%s %d\r\n", verb, n)
	return err
}

// writeJobBody writes "<verb> <id> <len>\r\n<body>\r\n", the format shared
// by RESERVED and FOUND.
func writeJobBody(w io.Writer, verb string, id uint64, body []byte) error {
	if _, err := fmt.Fprintf(w, "%s %d %d\r\n", verb, id, len(body)); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// writeDataBlock writes "<verb> <len>\r\n<body>\r\n", the format used by
// stats/list-tubes responses (body is already-serialized YAML).
func writeDataBlock(w io.Writer, verb string, n uint64, body []byte) error {
	if _, err := fmt.Fprintf(w, "%s %d\r\n", verb, n); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
