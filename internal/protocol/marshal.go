package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks an inbound frame that could not be decoded or failed
// field validation. The transport drops such frames and keeps the
// connection open.
var ErrMalformed = errors.New("protocol: malformed frame")

// envelope is the minimal decode used to pick the concrete inbound type.
type envelope struct {
	Kind string `json:"kind"`
}

// ParseInbound decodes a client frame into its typed form (Join or Action),
// validating required fields.
func ParseInbound(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	switch env.Kind {
	case KindJoin:
		var msg Join
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		if msg.Name == "" {
			return nil, fmt.Errorf("%w: join requires a name", ErrMalformed)
		}
		return msg, nil

	case KindAction:
		var msg Action
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		switch msg.Action {
		case "fold", "check", "call", "allin":
		case "bet", "raise":
			if msg.Amount <= 0 {
				return nil, fmt.Errorf("%w: %s requires a positive amount", ErrMalformed, msg.Action)
			}
		default:
			return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, msg.Action)
		}
		return msg, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, env.Kind)
	}
}

// Marshal encodes an outbound frame.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
