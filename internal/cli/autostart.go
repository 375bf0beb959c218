package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"palmguard/internal/autostart"
)

func init() {
	autostartCmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start palmguard at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setStartOnBoot(cmd, true)
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Do not start palmguard at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setStartOnBoot(cmd, false)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether palmguard starts at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				state := "disabled"
				if autostart.IsEnabled() {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Autostart: %s\n", state)
				return nil
			},
		},
	)
	rootCmd.AddCommand(autostartCmd)
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage the login item",
}

// setStartOnBoot updates the login item and persists general.start_on_boot
// so a running instance does not undo it on reload
func setStartOnBoot(cmd *cobra.Command, on bool) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := autostart.Sync(on); err != nil {
		return err
	}
	cfg := e.mgr.Get()
	cfg.General.StartOnBoot = on
	if err := e.mgr.Set(cfg); err != nil {
		return err
	}
	if err := e.mgr.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Autostart %s\n", map[bool]string{true: "enabled", false: "disabled"}[on])
	return nil
}
