package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := loadEnv(true)
				if err != nil {
					return err
				}
				defer e.Close()
				fmt.Fprintln(cmd.OutOrStdout(), e.mgr.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := loadEnv(true)
				if err != nil {
					return err
				}
				defer e.Close()
				var buf bytes.Buffer
				if err := toml.NewEncoder(&buf).Encode(e.cfg); err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default config file if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := loadEnv(true)
				if err != nil {
					return err
				}
				defer e.Close()
				if _, err := os.Stat(e.mgr.Path()); err == nil {
					return fmt.Errorf("%s already exists", e.mgr.Path())
				}
				if err := e.mgr.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", e.mgr.Path())
				return nil
			},
		},
	)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}
