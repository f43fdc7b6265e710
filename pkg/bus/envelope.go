package bus

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// MetadataType is the watermill metadata key holding the envelope type.
const MetadataType = "cdslive.type"

// Envelope is one action or state notification. On the wire the type rides
// in message metadata and the body is the bare JSON payload.
type Envelope struct {
	Type    string
	Payload json.RawMessage
}

func newMessage(typ string, payload any) (*message.Message, error) {
	if typ == "" {
		return nil, errors.New("empty envelope type")
	}
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s payload", typ)
		}
		body = b
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataType, typ)
	return msg, nil
}

// FromMessage reads the envelope back out of a bus message.
func FromMessage(msg *message.Message) (Envelope, error) {
	typ := msg.Metadata.Get(MetadataType)
	if typ == "" {
		return Envelope{}, errors.Errorf("message %s has no type", msg.UUID)
	}
	return Envelope{Type: typ, Payload: json.RawMessage(msg.Payload)}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.Errorf("empty payload for %s", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrapf(err, "unmarshal %s payload", e.Type)
	}
	return nil
}
