package consumer

import (
	"context"
	"encoding/json"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/tidwall/gjson"
)

// Message is a claimed message as seen by a Handler.
type Message struct {
	Channel    string
	ConsumerID string
	// Name is the message file name, its identity.
	Name string
	// Raw is the file content exactly as written by the producer.
	Raw    []byte
	Header schema.Header
	// Body is Raw decoded into generic JSON values.
	Body map[string]any
}

// Get returns the value at a gjson path, e.g. "commands.0.type".
func (m Message) Get(path string) gjson.Result {
	return gjson.GetBytes(m.Raw, path)
}

// Handler processes one message. A returned error (or a panic) deadletters
// the message with the error text as the reason. The context is not
// cancelled when the loop shuts down, so a handler already running can
// finish.
type Handler func(ctx context.Context, msg Message) error

// HandlerFunc adapts a function that ignores the context.
func HandlerFunc(fn func(Message) error) Handler {
	return func(_ context.Context, msg Message) error {
		return fn(msg)
	}
}

func parseMessage(channel, consumerID, name string, raw []byte) (Message, error) {
	msg := Message{
		Channel:    channel,
		ConsumerID: consumerID,
		Name:       name,
		Raw:        raw,
		Header: schema.Header{
			SchemaName:    gjson.GetBytes(raw, "schemaName").String(),
			SchemaVersion: gjson.GetBytes(raw, "schemaVersion").String(),
		},
	}
	if err := json.Unmarshal(raw, &msg.Body); err != nil {
		return msg, perrors.NewValidationError(perrors.ErrInvalidJSON, "").WithCause(err)
	}
	return msg, nil
}
