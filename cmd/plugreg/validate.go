package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plugin> <project-path>",
	Short: "Run a plugin's installation checks against a project directory",
	Long:  "Runs the declared installation checks for a plugin against a project directory and prints per-check results as JSON. Exits non-zero when any check fails.",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	c := buildComponents(cfg)
	pluginName, projectPath := args[0], args[1]

	res, err := c.validator.ValidateInstallation(cmd.Context(), pluginName, projectPath)
	if err != nil {
		return fmt.Errorf("validate %q: %w", pluginName, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if !res.Valid {
		return errors.New("validation failed")
	}
	return nil
}
