package bus

import (
	"strings"

	"github.com/ohmycache/rabbit-lru-cache/types"
)

// verbReset and delPrefix are the two recognized wire forms (spec §4.3).
const (
	verbReset = "reset"
	delPrefix = "del:"
)

// Verb identifies what a decoded message asks the receiver to do.
type Verb int

const (
	// VerbUnknown is any payload that is neither "reset" nor "del:<key>".
	// It never mutates state but is still reported for observability.
	VerbUnknown Verb = iota
	VerbDelete
	VerbReset
)

// Message is a decoded invalidation message.
type Message struct {
	Verb   Verb
	Key    string // only set when Verb == VerbDelete
	Raw    string // the original payload, for invalidation-message-received
	Sender string // x-cache-id header value
}

// EncodeDelete builds the wire payload for a delete of key.
func EncodeDelete(key string) []byte {
	return []byte(delPrefix + key)
}

// EncodeReset builds the wire payload for a reset.
func EncodeReset() []byte {
	return []byte(verbReset)
}

// Decode parses a raw payload plus its originator header into a Message.
func Decode(payload []byte, sender string) Message {
	raw := string(payload)
	m := Message{Raw: raw, Sender: sender}
	switch {
	case raw == verbReset:
		m.Verb = VerbReset
	case strings.HasPrefix(raw, delPrefix):
		m.Verb = VerbDelete
		m.Key = raw[len(delPrefix):]
	default:
		m.Verb = VerbUnknown
	}
	return m
}

// IsSelfOrigin reports whether a message originated from cacheID itself
// (spec I2: self-origin messages never mutate local state).
func (m Message) IsSelfOrigin(cacheID string) bool {
	return m.Sender == cacheID
}

// ExchangeName derives the fanout exchange name from a user-supplied
// namespace (spec §3).
func ExchangeName(name string) string {
	return types.ExchangePrefix + name
}

// QueueName derives this instance's exclusive queue name (spec §3).
func QueueName(exchange, cacheID string) string {
	return exchange + "-" + cacheID
}
