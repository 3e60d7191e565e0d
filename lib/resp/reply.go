package resp

import "fmt"

// --------------------------------------------------------------------------
// Reply Type Definition
// --------------------------------------------------------------------------

// Kind identifies the type of a decoded reply
type Kind uint8

const (
	KindStatus  Kind = iota // simple string, e.g. +OK
	KindError               // error reply, e.g. -ERR unknown command
	KindInteger             // integer reply, e.g. :42
	KindBulk                // bulk string, e.g. $5\r\nhello
	KindNil                 // nil bulk ($-1) or nil array (*-1)
	KindArray               // array reply, e.g. *2 ...
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNil:
		return "nil"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Reply is a single decoded server reply. Which fields are set depends on
// the Kind: Str for status/error/bulk, Int for integer, Elems for array.
type Reply struct {
	Kind  Kind
	Str   string
	Int   int64
	Elems []Reply
}

// IsNil reports whether the reply is a nil bulk or nil array
func (r Reply) IsNil() bool { return r.Kind == KindNil }

// IsError reports whether the reply is a protocol-level error reply
func (r Reply) IsError() bool { return r.Kind == KindError }

// Text returns a human-readable rendition of the reply, mirroring the
// output format of the standard redis command line client
func (r Reply) Text() string {
	switch r.Kind {
	case KindStatus:
		return r.Str
	case KindError:
		return "(error) " + r.Str
	case KindInteger:
		return fmt.Sprintf("(integer) %d", r.Int)
	case KindBulk:
		return fmt.Sprintf("%q", r.Str)
	case KindNil:
		return "(nil)"
	case KindArray:
		out := ""
		for i, e := range r.Elems {
			if i > 0 {
				out += "\n"
			}
			out += fmt.Sprintf("%d) %s", i+1, e.Text())
		}
		if out == "" {
			return "(empty array)"
		}
		return out
	default:
		return "(unknown)"
	}
}

// --------------------------------------------------------------------------
// Command Error
// --------------------------------------------------------------------------

// CommandError is the decoded payload of an error reply. It is what a
// command's failure continuation receives when the server rejects the
// command; it carries no transport-level meaning.
type CommandError struct {
	// Message is the raw error text sent by the server, e.g.
	// "ERR unknown command 'BADCMD'"
	Message string
}

func (e CommandError) Error() string { return e.Message }
