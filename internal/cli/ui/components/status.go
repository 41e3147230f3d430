package components

import (
	"strings"

	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Status represents a status type for rendering.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusWarning
	StatusInfo
	StatusPending
	StatusRunning
	StatusStopped
)

// statusIcons maps each status to its icon and style.
var statusIcons = map[Status]struct {
	icon  string
	style lipgloss.Style
}{
	StatusSuccess: {icon: styles.IconSuccess, style: styles.Theme.Success},
	StatusError:   {icon: styles.IconError, style: styles.Theme.Error},
	StatusWarning: {icon: styles.IconWarning, style: styles.Theme.Warning},
	StatusInfo:    {icon: styles.IconInfo, style: styles.Theme.Info},
	StatusPending: {icon: styles.IconPending, style: styles.Theme.Muted},
	StatusRunning: {icon: styles.IconSuccess, style: styles.Theme.Success},
	StatusStopped: {icon: styles.IconError, style: styles.Theme.Error},
}

// RenderStatus renders a status with icon and optional label.
func RenderStatus(status Status, label string) string {
	entry := statusIcons[status]
	if label == "" {
		return entry.style.Render(entry.icon)
	}
	return entry.style.Render(entry.icon + " " + label)
}

// RenderStatusBadge renders a status as a badge with background.
func RenderStatusBadge(status Status, label string) string {
	var badgeStyle lipgloss.Style
	switch status {
	case StatusSuccess, StatusRunning:
		badgeStyle = styles.Theme.BadgeSuccess
	case StatusError, StatusStopped:
		badgeStyle = styles.Theme.BadgeError
	case StatusWarning:
		badgeStyle = styles.Theme.BadgeWarning
	case StatusPending:
		badgeStyle = styles.Theme.BadgePending
	default:
		badgeStyle = styles.Theme.BadgeInfo
	}
	return badgeStyle.Render(label)
}

// ParseStatus converts a string status to Status type. It understands
// both container states and delete workflow states.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "success", "ok", "done", "deleted":
		return StatusSuccess
	case "error", "failed":
		return StatusError
	case "warning", "degraded", "fallback-cleanup":
		return StatusWarning
	case "info":
		return StatusInfo
	case "pending", "starting", "waiting", "resolving-digest", "deleting", "running-gc":
		return StatusPending
	case "running", "up":
		return StatusRunning
	case "stopped", "down", "exited", "dead":
		return StatusStopped
	default:
		return StatusInfo
	}
}

// ContainerStatusIndicator renders a container state with appropriate styling.
func ContainerStatusIndicator(status string) string {
	return RenderStatus(ParseStatus(status), status)
}

// OutcomeBadge renders a delete workflow outcome as a badge.
func OutcomeBadge(state string) string {
	return RenderStatusBadge(ParseStatus(state), state)
}
