package consumer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// maxStderrInReason bounds how much of a failed command's stderr ends up in
// the deadletter reason.
const maxStderrInReason = 4096

// ExecHandler returns a Handler that runs an external command once per
// message. The raw message is written to the command's stdin, its stdout is
// passed through, and the environment carries FILEPIPE_CHANNEL,
// FILEPIPE_CONSUMER, FILEPIPE_FILE and FILEPIPE_SCHEMA. A non-zero exit fails
// the message; the reason includes the command's stderr.
func ExecHandler(name string, args ...string) Handler {
	return func(ctx context.Context, msg Message) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdin = bytes.NewReader(msg.Raw)
		cmd.Env = append(os.Environ(),
			"FILEPIPE_CHANNEL="+msg.Channel,
			"FILEPIPE_CONSUMER="+msg.ConsumerID,
			"FILEPIPE_FILE="+msg.Name,
			"FILEPIPE_SCHEMA="+msg.Header.SchemaName,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		cmd.Stdout = os.Stdout

		if err := cmd.Run(); err != nil {
			detail := strings.TrimSpace(stderr.String())
			if len(detail) > maxStderrInReason {
				detail = detail[:maxStderrInReason] + "..."
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && detail != "" {
				return fmt.Errorf("%s: %w: %s", name, err, detail)
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
