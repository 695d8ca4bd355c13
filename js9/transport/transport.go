package transport

import (
	"context"
	"encoding/json"
)

// Command is the wire form of one helper call. ID routes the command to a
// JS9 display on the page, Multi broadcasts it to every display, and PageID
// pins a specific page when several share the helper. A command with an
// empty Cmd carries routing fields only and acts as a liveness probe.
type Command struct {
	Cmd    string `json:"cmd,omitempty"`
	Args   []any  `json:"args,omitempty"`
	ID     string `json:"id"`
	Multi  bool   `json:"multi"`
	PageID string `json:"pageid,omitempty"`
}

// Transport carries commands to the helper. Implementations are safe for
// concurrent use. They surface failures as ConnectionError or TimeoutError
// and hand results back raw: interpreting a result, including the helper's
// in-band error strings, is the caller's job. A transport never retries a
// call on its own.
type Transport interface {
	// Call sends one command and waits for its reply. The reply is always
	// valid JSON; plain-text responses come back as JSON strings.
	Call(ctx context.Context, cmd *Command) (json.RawMessage, error)

	// Alive probes the helper using the command's routing fields.
	Alive(ctx context.Context, cmd *Command) (json.RawMessage, error)

	// Ops lists the operations the helper advertised at connect time, when
	// it advertised any.
	Ops() []string

	Close() error
}
