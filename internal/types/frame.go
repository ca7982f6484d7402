// frame.go — the wire frame format (§6). Inbound frames are either event
// records (§3) or a command_reply; outbound frames are command requests.
// Frame decoding is polymorphic on a discriminator field, in the same
// two-pass style the teacher's MCP layer uses to classify JSON-RPC ids
// before committing to a concrete shape.
package types

import "encoding/json"

// InboundFrame is the decoded shape of anything arriving on /sdk. Exactly
// one of Event or CommandReply is populated, based on whether eventType
// equals "command_reply".
type InboundFrame struct {
	Event        *Event
	CommandReply *CommandReply
}

// commandReplyDiscriminator is the tag value that marks a command reply
// rather than an event frame.
const commandReplyDiscriminator = "command_reply"

// CommandReply is an inbound command_reply frame (§6, §4.5).
type CommandReply struct {
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// discriminatorProbe is decoded first to decide which concrete shape to
// parse the rest of the frame into.
type discriminatorProbe struct {
	EventType string `json:"eventType"`
}

// UnmarshalJSON classifies the frame by eventType before committing to a
// concrete struct, mirroring the teacher's JSONRPCRequest decode strategy.
func (f *InboundFrame) UnmarshalJSON(data []byte) error {
	var probe discriminatorProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.EventType == commandReplyDiscriminator {
		var reply CommandReply
		if err := json.Unmarshal(data, &reply); err != nil {
			return err
		}
		f.CommandReply = &reply
		return nil
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	f.Event = &evt
	return nil
}

// CommandFrame is an outbound command frame (§6, §4.5).
type CommandFrame struct {
	Command   string          `json:"command"`
	RequestID string          `json:"requestId"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// DOMSnapshotParams is the params body of a capture_dom_snapshot command.
type DOMSnapshotParams struct {
	MaxSize int `json:"maxSize"`
}

// ReconScanParams is the params body of a recon_scan command.
type ReconScanParams struct {
	Categories []string `json:"categories"`
}

// ReconElementSnapshotParams is the params body of a recon_element_snapshot command.
type ReconElementSnapshotParams struct {
	Selector string `json:"selector"`
	Depth    int    `json:"depth"`
}

// ReconElementSnapshotResult is the reply data of a recon_element_snapshot command.
type ReconElementSnapshotResult struct {
	Root       json.RawMessage `json:"root"`
	TotalNodes int             `json:"totalNodes"`
	Depth      int             `json:"depth"`
	Selector   string          `json:"selector"`
}
