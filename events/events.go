package events

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	startJSON = []byte(`{"type":"start"}`)
	deltaJSON = []byte(`{"type":"delta"}`)
	endJSON   = []byte(`{"type":"end"}`)
	errorJSON = []byte(`{"type":"error"}`)
)

// Event is the normalized wire unit shared by every provider adapter.
// For a given model within one request the sequence is: at most one Start,
// zero or more Delta, then exactly one End or Error. Events for different
// models interleave freely.
type Event interface {
	event()

	// ModelID returns the tag of the originating provider variant.
	ModelID() string
}

// Start announces that a provider began producing output.
type Start struct {
	Model string `json:"model"`
}

func (Start) event() {}

func (s Start) ModelID() string { return s.Model }

// Delta carries one incremental UTF-8 text fragment. Fragments for a model
// concatenate in emission order into the full response.
type Delta struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

func (Delta) event() {}

func (d Delta) ModelID() string { return d.Model }

// End terminates a model's sequence after a clean upstream completion.
type End struct {
	Model string `json:"model"`
}

func (End) event() {}

func (e End) ModelID() string { return e.Model }

// Error terminates a model's sequence with a human-readable message. It may
// appear without a prior Start when the upstream call never began.
type Error struct {
	Model string `json:"model"`
	Err   error  `json:"error"`
}

func (Error) event() {}

func (e Error) ModelID() string { return e.Model }

func (e Error) Error() string {
	return fmt.Sprintf("model: %s, error: %v", e.Model, e.Err)
}

// MarshalJSON implements custom JSON marshaling for Start
func (s Start) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(startJSON, "model", s.Model)
}

// UnmarshalJSON implements custom JSON unmarshaling for Start
func (s *Start) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "start" {
		return fmt.Errorf("missing or invalid type, expected 'start'")
	}

	model := gjson.GetBytes(data, "model")
	if !model.Exists() {
		return fmt.Errorf("missing required field 'model'")
	}
	s.Model = model.String()

	return nil
}

// MarshalJSON implements custom JSON marshaling for Delta
func (d Delta) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(deltaJSON, "model", d.Model)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "text", d.Text)
}

// UnmarshalJSON implements custom JSON unmarshaling for Delta
func (d *Delta) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "delta" {
		return fmt.Errorf("missing or invalid type, expected 'delta'")
	}

	model := gjson.GetBytes(data, "model")
	if !model.Exists() {
		return fmt.Errorf("missing required field 'model'")
	}
	d.Model = model.String()

	text := gjson.GetBytes(data, "text")
	if !text.Exists() {
		return fmt.Errorf("missing required field 'text'")
	}
	d.Text = text.String()

	return nil
}

// MarshalJSON implements custom JSON marshaling for End
func (e End) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(endJSON, "model", e.Model)
}

// UnmarshalJSON implements custom JSON unmarshaling for End
func (e *End) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "end" {
		return fmt.Errorf("missing or invalid type, expected 'end'")
	}

	model := gjson.GetBytes(data, "model")
	if !model.Exists() {
		return fmt.Errorf("missing required field 'model'")
	}
	e.Model = model.String()

	return nil
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(errorJSON, "model", e.Model)
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		result, err = sjson.SetBytes(result, "error", e.Err.Error())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Error
func (e *Error) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "error" {
		return fmt.Errorf("missing or invalid type, expected 'error'")
	}

	model := gjson.GetBytes(data, "model")
	if !model.Exists() {
		return fmt.Errorf("missing required field 'model'")
	}
	e.Model = model.String()

	errMsg := gjson.GetBytes(data, "error")
	if !errMsg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Err = errors.New(errMsg.String())

	return nil
}

// Decode parses a single wire line into the matching Event variant.
func Decode(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	switch gjson.GetBytes(data, "type").String() {
	case "start":
		var ev Start
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "delta":
		var ev Delta
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "end":
		var ev End
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type in %s", data)
	}
}

// Interface compliance checks.
var (
	_ Event = Start{}
	_ Event = Delta{}
	_ Event = End{}
	_ Event = Error{}
)
