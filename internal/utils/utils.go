package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// SanitizeWorkspaceName cleans a user-supplied name so it is safe as a
// workspace file name component.
func SanitizeWorkspaceName(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))

	replacer := strings.NewReplacer(
		"_", "-",
		".", "-",
		",", "-",
		";", "-",
		":", "-",
		"/", "-",
		"\\", "-",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}

// FormatMinutes renders a minute count as a compact human duration,
// e.g. "1h 30m" or "45m". Negative or zero values render as a dash.
func FormatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "-"
	}
	d := time.Duration(minutes * float64(time.Minute)).Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatTimestamp shortens an RFC3339 timestamp for table cells. Values
// that fail to parse are returned unchanged so bad data stays visible.
func FormatTimestamp(ts string) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

// CopyToClipboard copies the given text to the system clipboard
func CopyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("unsupported platform for clipboard operations")
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
