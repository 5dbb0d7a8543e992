package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check message files without routing them",
	Long: `Run the router's validation on local files and print a verdict for each.

--channel applies that channel's schema family; --schema names the family
directly. Without either, any schema the validator knows is accepted.
Exits non-zero if any file is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var (
	validateChannel string
	validateSchema  string
	validateLight   bool
)

func init() {
	validateCmd.Flags().StringVar(&validateChannel, "channel", "", "validate as if routed on this channel")
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "required schema family")
	validateCmd.Flags().BoolVar(&validateLight, "light", false, "only check JSON syntax and identifiers")
	validateCmd.MarkFlagsMutuallyExclusive("channel", "schema")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	validator := schema.NewValidator(nil)
	if !validateLight {
		if validator, err = rt.validator(); err != nil {
			return err
		}
	}
	family := validateSchema
	if validateChannel != "" {
		family = rt.cfg.Family(validateChannel)
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		verdict := validator.ValidateFor(family, data)
		if verdict.Valid {
			_, _ = fmt.Fprintf(out, "ok       %s (%s %s, %s)\n", filepath.Base(path),
				verdict.Header.SchemaName, verdict.Header.SchemaVersion, verdict.Tier)
			continue
		}
		invalid++
		_, _ = fmt.Fprintf(out, "invalid  %s: %s\n", filepath.Base(path), verdict.Reason)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d file(s) invalid", invalid, len(args))
	}
	return nil
}
