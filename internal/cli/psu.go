package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the service description and PSU limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			info, err := c.Info(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			renderInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of every PSU",
		Long: `Show the status of every PSU.

Connected PSUs are sampled. Disconnected PSUs are listed with their limits
only; status never connects hardware.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func (a *app) newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <identity>",
		Short: "Connect a PSU, including one parked by teardown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.Connect(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printResult(cmd, map[string]bool{"ok": true}, fmt.Sprintf("%s connected", args[0]))
		},
	}
}

func (a *app) newSetVoltageCmd() *cobra.Command {
	return a.newSetpointCmd("set-voltage", "Set the output voltage in volts", "V", (*Client).SetVoltage)
}

func (a *app) newSetCurrentCmd() *cobra.Command {
	return a.newSetpointCmd("set-current", "Set the output current in milliamps", "mA", (*Client).SetCurrent)
}

// newSetpointCmd builds set-voltage and set-current. The server rejects
// values outside the PSU's limits before touching hardware.
func (a *app) newSetpointCmd(use, short, unit string, set func(*Client, context.Context, string, float64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <identity> <value>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ok, err := set(c, cmd.Context(), args[0], value)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("%s: %g %s accepted", args[0], value, unit)
			if !ok {
				msg = fmt.Sprintf("%s: %g %s declined by hardware", args[0], value, unit)
			}
			return a.printResult(cmd, map[string]bool{"ok": ok}, msg)
		},
	}
}

func (a *app) newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <identity>",
		Short: "Sample voltage, current and relay of a PSU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			r, err := c.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printResult(cmd, r,
				fmt.Sprintf("%s: %s V  %s mA  relay %s", args[0], formatValue(r.Voltage), formatValue(r.Current), onOff(r.On)))
		},
	}
}

func (a *app) newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay <identity> [on|off]",
		Short: "Show or switch the output relay of a PSU",
		Long: `Show or switch the output relay of a PSU.

Without a state the cached relay state is shown and no hardware is touched.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				r, err := c.Relay(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printResult(cmd, r, fmt.Sprintf("%s: relay %s", args[0], r.State))
			}

			desired, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			r, err := c.SetRelay(cmd.Context(), args[0], desired)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("%s: relay %s", args[0], r.State)
			if r.On != desired {
				msg += fmt.Sprintf(" (requested %s)", onOff(desired))
			}
			return a.printResult(cmd, r, msg)
		},
	}
}

func (a *app) newTeardownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Disconnect every PSU and park it until connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.Teardown(cmd.Context())
			if err != nil {
				return err
			}
			msg := "all PSUs torn down"
			if res.Error != "" {
				msg = "all PSUs parked; disconnect errors: " + res.Error
			}
			return a.printResult(cmd, res, msg)
		},
	}
}

// printResult writes v as JSON or text as a one-line summary.
func (a *app) printResult(cmd *cobra.Command, v any, text string) error {
	if a.jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid relay state %q: want on or off", s)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
