package channel

import (
	"encoding/json"
	"fmt"
)

// Message is one decoded inbound JSON object
type Message map[string]interface{}

// Type returns the "type" discriminator, or ""
func (m Message) Type() string {
	s, _ := m["type"].(string)
	return s
}

// Channel returns the "channel" field, or ""
func (m Message) Channel() string {
	s, _ := m["channel"].(string)
	return s
}

// Decode re-encodes the message into v
func (m Message) Decode(v interface{}) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("channel: re-encode message: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// -----------------------------------------------------------------------------
// Handler keys. Types and channels are separate key spaces, so a channel
// named like a message type never receives that type's messages.
// -----------------------------------------------------------------------------

type keyKind int

const (
	kindType keyKind = iota
	kindChannel
)

type Key struct {
	kind keyKind
	name string
}

// ByType matches messages whose "type" equals t
func ByType(t string) Key { return Key{kind: kindType, name: t} }

// ByChannel matches messages whose "channel" equals c
func ByChannel(c string) Key { return Key{kind: kindChannel, name: c} }

func (k Key) String() string {
	if k.kind == kindChannel {
		return "channel:" + k.name
	}
	return "type:" + k.name
}

// Handler receives every message matching its key
type Handler func(msg Message)

// HandlerID identifies a registration for OffMessage
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}
