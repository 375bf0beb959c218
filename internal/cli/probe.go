package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"palmguard/internal/control"
	"palmguard/internal/engine"
	"palmguard/internal/selector"
)

var (
	probeStrategies string
	jsonOutput      bool
)

func init() {
	probeCmd.Flags().StringVar(&probeStrategies, "strategy", "", "comma-separated strategies to try, in priority order")
	for _, c := range []*cobra.Command{probeCmd, stateCmd, toggleCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	}
	rootCmd.AddCommand(probeCmd, stateCmd, toggleCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which control strategy works on this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(eng *engine.Engine) error {
			if probeStrategies != "" {
				kinds, err := parseStrategies(probeStrategies)
				if err != nil {
					return err
				}
				if _, err := eng.Reprobe(cmd.Context(), kinds); err != nil {
					return err
				}
			}
			return printStatus(cmd.OutOrStdout(), eng)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the touchpad state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(eng *engine.Engine) error {
			return printStatus(cmd.OutOrStdout(), eng)
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle the touchpad once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(eng *engine.Engine) error {
			if err := eng.ToggleNow(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), eng)
		})
	},
}

func withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	eng, err := engine.New(ctx, e.cfg, engine.Options{Logger: e.logger})
	if err != nil {
		return err
	}
	return fn(eng)
}

func parseStrategies(s string) ([]control.Kind, error) {
	var kinds []control.Kind
	for _, name := range strings.Split(s, ",") {
		k, err := control.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

type probeReport struct {
	State  control.State   `json:"state"`
	Handle selector.Handle `json:"handle"`
}

func printStatus(w io.Writer, eng *engine.Engine) error {
	report := probeReport{State: eng.State(), Handle: eng.Handle()}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeReport(w, report)
}

func writeReport(w io.Writer, r probeReport) error {
	fmt.Fprintf(w, "Strategy: %s\n", r.Handle.Kind)
	if d := r.Handle.Descriptor; d != nil {
		fmt.Fprintf(w, "Setting:  %s\n", d)
	}
	for _, k := range r.Handle.Inspectors {
		fmt.Fprintf(w, "Inspector: %s\n", k)
	}
	_, err := fmt.Fprintf(w, "State:    %s\n", r.State)
	return err
}
