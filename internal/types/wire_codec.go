// wire_codec.go — hand-rolled JSON codec for Event. The wire frame is one
// flat JSON object: the header fields, "eventType", and the tag-specific
// body fields all live at the top level (§3, §6). Encoding/json can't
// express "flatten whichever one of N structs is active" declaratively, so
// Event implements json.Marshaler/Unmarshaler directly — the same strategy
// the teacher's JSONRPCRequest uses to classify an ambiguous "id" field
// before committing to a concrete shape.
package types

import "encoding/json"

// wireHeader is the header + discriminator + free-form tags, marshaled and
// unmarshaled independently of whichever body is active.
type wireHeader struct {
	EventID   string            `json:"eventId"`
	SessionID string            `json:"sessionId"`
	Timestamp int64             `json:"timestamp"`
	EventType Tag               `json:"eventType"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// UnmarshalJSON decodes the header and the tag-specific body from the same
// flat JSON object. Unknown, non-recon tags decode the header successfully
// but leave every body pointer nil; Valid() rejects those at ingest time.
func (e *Event) UnmarshalJSON(data []byte) error {
	var h wireHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	e.EventID = h.EventID
	e.SessionID = h.SessionID
	e.Timestamp = h.Timestamp
	e.Tag = h.EventType
	e.Tags = h.Tags

	switch e.Tag {
	case TagSession:
		var b SessionBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Session = &b
	case TagNetwork:
		var b NetworkBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Network = &b
	case TagConsole:
		var b ConsoleBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Console = &b
	case TagState:
		var b StateBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.State = &b
	case TagRender:
		var b RenderBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Render = &b
	case TagPerformance:
		var b PerformanceBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Performance = &b
	case TagDatabase:
		var b DatabaseBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.Database = &b
	case TagDOMSnapshot:
		var b DOMSnapshotBody
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		e.DOMSnapshot = &b
	default:
		if IsReconTag(e.Tag) {
			e.Recon = append(json.RawMessage(nil), data...)
		}
	}
	return nil
}

// MarshalJSON re-flattens the header and the active body into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	merged := map[string]json.RawMessage{}

	h, err := json.Marshal(wireHeader{
		EventID:   e.EventID,
		SessionID: e.SessionID,
		Timestamp: e.Timestamp,
		EventType: e.Tag,
		Tags:      e.Tags,
	})
	if err != nil {
		return nil, err
	}
	if err := mergeObject(merged, h); err != nil {
		return nil, err
	}

	var bodyBytes []byte
	if IsReconTag(e.Tag) && len(e.Recon) > 0 {
		bodyBytes = e.Recon
	} else if b := e.body(); b != nil {
		bodyBytes, err = json.Marshal(b)
		if err != nil {
			return nil, err
		}
	}
	if bodyBytes != nil {
		if err := mergeObject(merged, bodyBytes); err != nil {
			return nil, err
		}
	}

	return json.Marshal(merged)
}

// mergeObject decodes a JSON object into dst's keys, overwriting existing
// ones. Used to flatten the header and body passes into a single object.
func mergeObject(dst map[string]json.RawMessage, obj []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		dst[k] = v
	}
	return nil
}
