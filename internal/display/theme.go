package display

import "github.com/charmbracelet/lipgloss"

// Theme 定义终端主题色彩和样式
// Theme defines terminal colors and styles
type Theme struct {
	// 基础色 / Base colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Danger    lipgloss.Color
	Success   lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color
	Border    lipgloss.Color

	// 预构建样式 / Pre-built styles
	TitleStyle     lipgloss.Style
	StatusBarStyle lipgloss.Style
	SidebarStyle   lipgloss.Style
	PanelStyle     lipgloss.Style
	InputStyle     lipgloss.Style
	ErrorStyle     lipgloss.Style
	SuccessStyle   lipgloss.Style
	MutedStyle     lipgloss.Style
	DangerStyle    lipgloss.Style
	UserStyle      lipgloss.Style
	AIStyle        lipgloss.Style
	BadgeStyle     lipgloss.Style
	SubjectStyle   lipgloss.Style
	PredicateStyle lipgloss.Style
}

// DarkTheme 暗色主题（默认）
// DarkTheme is the default dark theme
func DarkTheme() Theme {
	t := Theme{
		Primary:   lipgloss.Color("#7C3AED"),
		Secondary: lipgloss.Color("#06B6D4"),
		Accent:    lipgloss.Color("#F59E0B"),
		Danger:    lipgloss.Color("#EF4444"),
		Success:   lipgloss.Color("#10B981"),
		Muted:     lipgloss.Color("#6B7280"),
		Text:      lipgloss.Color("#E5E7EB"),
		TextDim:   lipgloss.Color("#9CA3AF"),
		Border:    lipgloss.Color("#374151"),
	}

	t.TitleStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.StatusBarStyle = lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(lipgloss.Color("#111827"))

	t.SidebarStyle = lipgloss.NewStyle().
		Foreground(t.Text).
		BorderLeft(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border)

	t.PanelStyle = lipgloss.NewStyle().
		Foreground(t.Text)

	t.InputStyle = lipgloss.NewStyle().
		Foreground(t.Text).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(t.Danger).
		Bold(true)

	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(t.Success)

	t.MutedStyle = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.DangerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(t.Danger).
		Bold(true).
		Padding(0, 1)

	t.UserStyle = lipgloss.NewStyle().
		Foreground(t.Secondary).
		Bold(true)

	t.AIStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.BadgeStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(t.Primary).
		Padding(0, 1)

	t.SubjectStyle = lipgloss.NewStyle().
		Bold(true)

	t.PredicateStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Italic(true)

	return t
}

// PlainTheme 无颜色主题，用于非终端输出
// PlainTheme has no colors, for output that is not a terminal.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		TitleStyle:     plain,
		StatusBarStyle: plain,
		SidebarStyle:   plain,
		PanelStyle:     plain,
		InputStyle:     plain,
		ErrorStyle:     plain,
		SuccessStyle:   plain,
		MutedStyle:     plain,
		DangerStyle:    plain,
		UserStyle:      plain,
		AIStyle:        plain,
		BadgeStyle:     plain.Padding(0, 1),
		SubjectStyle:   plain,
		PredicateStyle: plain,
	}
}
