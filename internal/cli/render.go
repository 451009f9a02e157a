package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/hvpsu/internal/api"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// Column widths of the status table.
const (
	identityWidth = 14
	boardWidth    = 10
	stateWidth    = 13
	valueWidth    = 12
	relayWidth    = 7
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("240"))

	cellStyle = lipgloss.NewStyle().PaddingRight(2)

	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderStatus prints one row per PSU in identity order.
func renderStatus(w io.Writer, status *psu.Status) {
	fmt.Fprintf(w, "%s  %s\n\n", status.Service, status.Timestamp.Local().Format("2006-01-02 15:04:05"))

	header := fmt.Sprintf("%-*s %-*s %-*s %*s %*s %-*s %s",
		identityWidth, "PSU",
		boardWidth, "Board",
		stateWidth, "State",
		valueWidth, "Voltage [V]",
		valueWidth, "Current [mA]",
		relayWidth, "Relay",
		"Limits")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, id := range sortedKeys(status.PSUs) {
		e := status.PSUs[id]

		state := disconnectedStyle.Render(fmt.Sprintf("%-*s", stateWidth, "disconnected"))
		if e.Connected {
			state = connectedStyle.Render(fmt.Sprintf("%-*s", stateWidth, "connected"))
		}

		voltage, current := "-", "-"
		if e.Reading != nil {
			voltage = formatValue(e.Reading.Voltage)
			current = formatValue(e.Reading.Current)
		}

		relay := "n/a"
		if e.Limits.HasRelay {
			relay = "-"
			if e.RelayOn != nil {
				relay = onOff(*e.RelayOn)
			}
		}

		row := fmt.Sprintf("%-*s %-*s %s %*s %*s %-*s %s",
			identityWidth, id,
			boardWidth, formatBoard(e.Board),
			state,
			valueWidth, voltage,
			valueWidth, current,
			relayWidth, relay,
			formatLimits(e.Limits))
		fmt.Fprintln(w, cellStyle.Render(row))

		if e.Error != "" {
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%-*s %s", identityWidth, "", e.Error)))
		}
	}
}

// renderInfo prints the service description and each PSU's limits.
func renderInfo(w io.Writer, info *api.InfoResponse) {
	name := info.Service
	if info.Name != "" {
		name = fmt.Sprintf("%s (%s)", info.Service, info.Name)
	}
	fmt.Fprintf(w, "%s  version %s\n\n", name, info.Version)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %s", identityWidth, "PSU", "Limits")))
	for _, id := range sortedKeys(info.PSUs) {
		fmt.Fprintln(w, cellStyle.Render(fmt.Sprintf("%-*s %s", identityWidth, id, formatLimits(info.PSUs[id]))))
	}
}

// formatBoard shows the USB path when configured, else the board index.
func formatBoard(b psu.Board) string {
	if b.USBPath != "" {
		return b.USBPath
	}
	return "#" + strconv.Itoa(b.Index)
}

func formatLimits(l psu.DeviceLimits) string {
	s := fmt.Sprintf("%s V / %s mA", formatValue(l.MaxVoltage), formatValue(l.MaxCurrent))
	if l.HasRelay {
		s += ", relay"
	}
	return s
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
