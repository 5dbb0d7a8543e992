package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var sendCmd = &cobra.Command{
	Use:   "send <channel> [file|-]",
	Short: "Write a message into a channel's inbox",
	Long: `Write a JSON message into a channel's inbox using temp-then-rename, so no
reader ever sees a partial file. The message is read from the given file, or
from stdin when the file is "-" or omitted.

With --envelope TYPE the input becomes the payload of a HandoffEnvelope
with a fresh id and issue time.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

var (
	sendName     string
	sendLabel    string
	sendEnvelope string
	sendCheck    bool
)

func init() {
	sendCmd.Flags().StringVar(&sendName, "name", "", "message file name (default: timestamped and unique)")
	sendCmd.Flags().StringVar(&sendLabel, "label", "", "label embedded in the generated file name")
	sendCmd.Flags().StringVar(&sendEnvelope, "envelope", "", "wrap the input in a HandoffEnvelope with this payload type")
	sendCmd.Flags().BoolVar(&sendCheck, "check", false, "validate before writing and refuse invalid messages")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	channels, err := rt.channels(args[:1])
	if err != nil {
		return err
	}
	ch := channels[0]

	data, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	if sendEnvelope != "" {
		if data, err = wrapEnvelope(sendEnvelope, data); err != nil {
			return err
		}
	}

	if sendCheck {
		v, err := rt.validator()
		if err != nil {
			return err
		}
		if verdict := v.ValidateFor(rt.cfg.Family(ch.Name()), data); !verdict.Valid {
			return fmt.Errorf("message rejected: %s", verdict.Reason)
		}
	}

	name := sendName
	if name == "" {
		name = store.NewMessageName(sendLabel)
	}
	if err := ch.Write(name, data); err != nil {
		return err
	}
	rt.logger.Debug("message sent", "channel", ch.Name(), "file", name, "bytes", len(data))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", ch.Name(), name)
	return nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return data, nil
}

type envelope struct {
	SchemaName    string          `json:"schemaName"`
	SchemaVersion string          `json:"schemaVersion"`
	IssuedUtc     string          `json:"issuedUtc"`
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

// wrapEnvelope embeds payload in a HandoffEnvelope addressed to payloadType.
func wrapEnvelope(payloadType string, payload []byte) ([]byte, error) {
	payload = []byte(strings.TrimSpace(string(payload)))
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return nil, fmt.Errorf("envelope payload must be a JSON object")
	}
	return json.Marshal(envelope{
		SchemaName:    schema.HandoffEnvelope,
		SchemaVersion: "1.0.0",
		IssuedUtc:     time.Now().UTC().Format(time.RFC3339),
		ID:            uuid.NewString(),
		Type:          payloadType,
		Payload:       payload,
	})
}
