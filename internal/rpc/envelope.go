package rpc

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	DirectionToEngine = "to_engine"
	DirectionToHost   = "to_host"

	KindRequest  = "request"
	KindResponse = "response"

	// NotifyID marks side-effect-only requests that never receive a response.
	NotifyID = 0
)

// Envelope is the single message shape on the channel. Kind selects which of
// the request or response fields are meaningful.
type Envelope struct {
	Direction string          `json:"direction" validate:"required,oneof=to_engine to_host"`
	Kind      string          `json:"kind" validate:"required,oneof=request response"`
	ID        int             `json:"id" validate:"gte=0"`
	Method    string          `json:"method,omitempty" validate:"required_if=Kind request,excluded_if=Kind response,max=64"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty" validate:"excluded_if=Kind request"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (e Envelope) IsNotification() bool {
	return e.Kind == KindRequest && e.ID == NotifyID
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func envelopeValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		validate = v
	})
	return validate
}

// Decode parses one line and checks it is a well-formed envelope travelling
// in the expected direction.
func Decode(line []byte, direction string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := envelopeValidator().Struct(env); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Direction != direction {
		return Envelope{}, fmt.Errorf("invalid envelope: direction %q, want %q", env.Direction, direction)
	}
	if env.Kind == KindResponse && env.ID == NotifyID {
		return Envelope{}, fmt.Errorf("invalid envelope: response with reserved id %d", NotifyID)
	}
	return env, nil
}

func marshalRaw(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}
