package resp

import (
	"bytes"
	"fmt"
	"strconv"
)

// errIncomplete is the internal marker for "more bytes needed". It never
// escapes the package: Next translates it into ok == false.
var errIncomplete = fmt.Errorf("resp: incomplete reply")

// Decoder is an incremental RESP parser. Bytes are appended with Feed and
// complete replies are pulled out with Next; partially received replies are
// never consumed, so a reply split across any number of transport chunks
// decodes identically to one delivered whole.
//
// A Decoder is not safe for concurrent use. The connection core only ever
// touches it from the owning event loop.
type Decoder struct {
	buf bytes.Buffer
}

// NewDecoder creates an empty Decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends raw bytes received from the transport
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Buffered returns the number of bytes not yet consumed by Next
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// Next attempts to decode the next complete reply. It returns ok == false
// when the buffered bytes do not yet form a full reply. A non-nil error
// means the stream is malformed and the connection must be torn down; the
// decoder is in an undefined state afterwards.
func (d *Decoder) Next() (Reply, bool, error) {
	data := d.buf.Bytes()
	if len(data) == 0 {
		return Reply{}, false, nil
	}

	reply, n, err := parseReply(data)
	if err == errIncomplete {
		return Reply{}, false, nil
	}
	if err != nil {
		return Reply{}, false, err
	}

	d.buf.Next(n)
	return reply, true, nil
}

// --------------------------------------------------------------------------
// Parsing helpers
// --------------------------------------------------------------------------

// parseReply parses a single reply from the front of data, returning the
// number of bytes consumed. Returns errIncomplete when data is a valid
// prefix of a reply.
func parseReply(data []byte) (Reply, int, error) {
	line, n, err := parseLine(data)
	if err != nil {
		return Reply{}, 0, err
	}

	switch data[0] {
	case '+':
		return Reply{Kind: KindStatus, Str: string(line)}, n, nil

	case '-':
		return Reply{Kind: KindError, Str: string(line)}, n, nil

	case ':':
		v, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Reply{}, 0, fmt.Errorf("resp: malformed integer reply %q", line)
		}
		return Reply{Kind: KindInteger, Int: v}, n, nil

	case '$':
		length, err := strconv.Atoi(string(line))
		if err != nil {
			return Reply{}, 0, fmt.Errorf("resp: malformed bulk length %q", line)
		}
		if length < 0 {
			return Reply{Kind: KindNil}, n, nil
		}
		// payload plus trailing CRLF
		if len(data) < n+length+2 {
			return Reply{}, 0, errIncomplete
		}
		payload := data[n : n+length]
		if data[n+length] != '\r' || data[n+length+1] != '\n' {
			return Reply{}, 0, fmt.Errorf("resp: bulk reply missing terminator")
		}
		return Reply{Kind: KindBulk, Str: string(payload)}, n + length + 2, nil

	case '*':
		count, err := strconv.Atoi(string(line))
		if err != nil {
			return Reply{}, 0, fmt.Errorf("resp: malformed array length %q", line)
		}
		if count < 0 {
			return Reply{Kind: KindNil}, n, nil
		}
		elems := make([]Reply, 0, count)
		pos := n
		for i := 0; i < count; i++ {
			if pos >= len(data) {
				return Reply{}, 0, errIncomplete
			}
			elem, consumed, err := parseReply(data[pos:])
			if err != nil {
				return Reply{}, 0, err
			}
			elems = append(elems, elem)
			pos += consumed
		}
		return Reply{Kind: KindArray, Elems: elems}, pos, nil

	default:
		return Reply{}, 0, fmt.Errorf("resp: unexpected reply type byte %q", data[0])
	}
}

// parseLine extracts the first CRLF-terminated line, excluding the type
// byte and the terminator. Returns the total bytes up to and including the
// terminator.
func parseLine(data []byte) ([]byte, int, error) {
	idx := bytes.Index(data, []byte("\r\n"))
	if idx < 0 {
		return nil, 0, errIncomplete
	}
	if idx == 0 {
		return nil, 0, fmt.Errorf("resp: empty reply line")
	}
	return data[1:idx], idx + 2, nil
}
