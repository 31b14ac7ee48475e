package lspmsg

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Kind is the tagged-union discriminant for a parsed Message.
type Kind int

const (
	// KindUnknown covers anything that doesn't fit the closed vocabulary
	// below: an unrecognized method, a malformed envelope, or a message
	// shape that isn't Request/Notification/Response at all. Its bytes
	// are never interpreted, only carried.
	KindUnknown Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is one JSON-RPC frame payload, classified per component B's
// closed-vocabulary rules. Raw always holds the exact bytes last assigned
// to this Message (the original input, or the result of a Remap edit);
// nothing is reconstructed from a struct model, so untouched fields
// round-trip byte-for-byte.
type Message struct {
	Kind   Kind
	Method string // "" for Response and Unknown messages
	Raw    []byte
}

// ErrNotJSON is returned by Parse when the input isn't valid JSON at all.
var ErrNotJSON = errors.New("lspmsg: not a JSON value")

// Parse classifies raw JSON bytes into a Message. Invalid JSON returns
// ErrNotJSON; valid JSON that just doesn't match any known shape becomes
// KindUnknown rather than an error, since Unknown is itself a legitimate,
// forwarded-verbatim classification.
func Parse(raw []byte) (*Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrNotJSON
	}

	result := gjson.ParseBytes(raw)
	method := result.Get("method")
	id := result.Get("id")
	hasResult := result.Get("result").Exists()
	hasError := result.Get("error").Exists()

	switch {
	case method.Exists() && id.Exists() && IsKnownRequestMethod(method.String()):
		return &Message{Kind: KindRequest, Method: method.String(), Raw: raw}, nil

	case method.Exists() && !id.Exists() && IsKnownNotificationMethod(method.String()):
		return &Message{Kind: KindNotification, Method: method.String(), Raw: raw}, nil

	case !method.Exists() && id.Exists() && (hasResult || hasError):
		return &Message{Kind: KindResponse, Raw: raw}, nil

	default:
		return &Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

// Bytes returns the message's current wire representation.
func (m *Message) Bytes() []byte { return m.Raw }

// String returns the current wire representation as a string, for
// forwarding over a text-framed transport (WebSocket text frames, the
// codec's string-typed frames).
func (m *Message) String() string { return string(m.Raw) }
