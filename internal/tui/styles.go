package tui

import "github.com/charmbracelet/lipgloss"

// UI 颜色
const (
	colorPrimary   = "#00D9FF"
	colorSecondary = "#BD93F9"
	colorText      = "#F8F8F2"
	colorMuted     = "#6272A4"
	colorBorder    = "#3C3C3C"
	colorMenuBg    = "#1E1F29"
	colorSelectBg  = "#44475A"
	colorError     = "#FF5555"
	colorWarning   = "#FFB86C"
	colorSuccess   = "#50FA7B"
	colorHelp      = "#626262"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPrimary)).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText))

	controlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color(colorSelectBg))

	controlFocusedStyle = controlStyle.
				Foreground(lipgloss.Color(colorPrimary)).
				Bold(true)

	controlDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorHelp))

	menuStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color(colorMenuBg))

	menuFocusStyle = menuStyle.
			Background(lipgloss.Color(colorBorder))

	menuSelectedStyle = menuStyle.
				Foreground(lipgloss.Color(colorPrimary)).
				Background(lipgloss.Color(colorSelectBg)).
				Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(0, 1)

	cardSelectedStyle = cardStyle.
				BorderForeground(lipgloss.Color(colorPrimary))

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Bold(true)

	cardDateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted))

	cardProviderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorSuccess))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPrimary)).
			Padding(0, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPrimary)).
			Bold(true)

	countryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Bold(true)

	emptyStateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorHelp)).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError)).
			Bold(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWarning)).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorHelp))
)
