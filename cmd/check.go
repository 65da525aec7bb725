package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/smazurov/warden/internal/config"
	"github.com/smazurov/warden/internal/process"
)

// CreateCheckCmd creates the check command. It resolves the [child] table the
// way the server would and reports whether the command can be spawned, without
// spawning it.
func CreateCheckCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the child process configuration",
		Long: `Loads the [child] table from the config file, checks that the executable ` +
			`can be found and the working directory exists, and prints the resolved table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			child, err := config.LoadChildConfig(configFile)
			if err != nil {
				return fmt.Errorf("load %s: %w", configFile, err)
			}
			if err := checkChild(child); err != nil {
				return err
			}

			data, err := config.MarshalChild(child)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s", data)
			fmt.Fprintf(out, "# OK: %s\n", child.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.toml", "Path to configuration file")
	return cmd
}

func checkChild(child process.Command) error {
	if _, err := exec.LookPath(child.Name); err != nil {
		return fmt.Errorf("executable %q not found: %w", child.Name, err)
	}
	if child.Dir == "" {
		return nil
	}
	info, err := os.Stat(child.Dir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return errors.New("working directory " + child.Dir + " is not a directory")
	}
	return nil
}
