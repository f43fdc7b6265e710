package styles

import "github.com/go-go-golems/cdslive/pkg/conn"

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconRunning = "▶"
	IconPending = "○"
	IconSkipped = "⊘"
	IconBullet  = "•"
)

// JobStatusIcon maps a CDS job status to an icon.
func JobStatusIcon(status string) string {
	switch status {
	case "Building", "Checking":
		return IconRunning
	case "Waiting", "Pending":
		return IconPending
	case "Success":
		return IconSuccess
	case "Fail", "Stopped":
		return IconError
	case "Skipped", "Disabled", "Never Built":
		return IconSkipped
	}
	return IconBullet
}

func LevelIcon(level string) string {
	switch level {
	case "error":
		return IconError
	case "warn":
		return IconWarning
	case "info":
		return IconInfo
	}
	return IconBullet
}

func ConnIcon(s conn.State) string {
	switch s {
	case conn.Connected:
		return IconSuccess
	case conn.Connecting, conn.Reconnecting:
		return IconPending
	}
	return IconError
}
