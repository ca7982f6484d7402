// commands.go — the collector's sendCommand entry point (§4.5), used by
// the tool surface (not itself in core scope) to request fresh data from a
// live /sdk session.
package collector

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/devlens/devlens/internal/commandrouter"
	"github.com/devlens/devlens/internal/types"
)

// SendCommand issues command with params against sessionID and blocks for
// the result, defaulting to the collector's configured command timeout.
func (c *Collector) SendCommand(sessionID, command string, params any, timeout time.Duration) commandrouter.Result {
	if timeout <= 0 {
		timeout = c.cfg.CommandTimeout
	}

	var paramBytes json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return commandrouter.Result{Outcome: commandrouter.OutcomeDisconnected, Err: err.Error()}
		}
		paramBytes = encoded
	}

	frame := types.CommandFrame{
		Command:   command,
		RequestID: uuid.NewString(),
		Params:    paramBytes,
	}
	res := c.router.SendCommand(c.reg, sessionID, frame, timeout, nil)
	c.metrics.CommandOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	return res
}
