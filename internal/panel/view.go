package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chromeHeight 日志区之外的固定行数（页眉、页签、按钮、通知、帮助）
const chromeHeight = 14

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("39")).
			Padding(0, 1)
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Padding(0, 1)

	focusLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	bannerStyles = map[Severity]lipgloss.Style{
		SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("25")).Padding(0, 1),
		SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1),
		SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")).Padding(0, 1),
	}
)

func (m *Model) View() string {
	var sections []string
	sections = append(sections, m.renderHeader(), "", m.renderTabs(), "")

	switch m.state.ActiveTab {
	case TabConfig:
		sections = append(sections, m.renderForm())
	case TabLogs:
		sections = append(sections, m.renderLogs())
	}

	sections = append(sections, "", m.renderButtons())
	if b := m.renderBanner(); b != "" {
		sections = append(sections, "", b)
	}
	sections = append(sections, "", m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func statusText(l StatusLabel) string {
	switch l.Class {
	case ClassRunning:
		return runningStyle.Render(l.Text)
	case ClassStopped:
		return stoppedStyle.Render(l.Text)
	}
	return mutedStyle.Render(l.Text)
}

func (m *Model) renderHeader() string {
	s := m.state
	line := fmt.Sprintf("Configuration: %s   Bot: %s", statusText(s.ConfigStatus), statusText(s.BotStatus))
	if s.LNBitsAvailable != nil {
		lnbits := StatusLabel{Text: "unavailable", Class: ClassStopped}
		if *s.LNBitsAvailable {
			lnbits = StatusLabel{Text: "available", Class: ClassRunning}
		}
		line += fmt.Sprintf("   LNBits: %s", statusText(lnbits))
	}
	return lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(m.title+" | Control Panel"), line)
}

func (m *Model) renderTabs() string {
	tabs := []struct {
		tab   Tab
		label string
	}{
		{TabConfig, "F1 Configuration"},
		{TabLogs, "F2 Logs"},
	}
	var out []string
	for _, t := range tabs {
		if t.tab == m.state.ActiveTab {
			out = append(out, activeTabStyle.Render(t.label))
		} else {
			out = append(out, tabStyle.Render(t.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

// maskValue 敏感字段只显示掩码
func maskValue(f Field) string {
	if f.Sensitive && f.Value != "" {
		return strings.Repeat("•", len([]rune(f.Value)))
	}
	return f.Value
}

func (m *Model) renderForm() string {
	form := m.state.Form
	var lines []string
	lines = append(lines, titleStyle.Render("Bot Configuration"))
	for i, f := range form.Fields {
		label := labelStyle.Render(fmt.Sprintf("  %-20s", f.Label))
		cursor := ""
		if i == form.Focus {
			label = focusLabelStyle.Render(fmt.Sprintf("> %-20s", f.Label))
			cursor = "_"
		}
		line := label + " " + maskValue(f) + cursor
		if f.Name == "price" {
			if hint := priceHint(f.Value); hint != "" {
				line += "  " + mutedStyle.Render(hint)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderLogs() string {
	v := m.state.Logs
	lines := v.Lines()
	end := v.ScrollTop + v.Height
	if end > len(lines) {
		end = len(lines)
	}
	var visible []string
	if v.ScrollTop < end {
		visible = lines[v.ScrollTop:end]
	}
	for len(visible) < v.Height {
		visible = append(visible, "")
	}
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	return logBoxStyle.Width(width).Render(strings.Join(visible, "\n"))
}

func renderButton(b Button, key string) string {
	text := fmt.Sprintf("%s [%s]", b.Label, key)
	if b.Enabled {
		return buttonStyle.Render(text)
	}
	return disabledButtonStyle.Render(text)
}

func (m *Model) renderButtons() string {
	s := m.state
	return lipgloss.JoinHorizontal(lipgloss.Top,
		renderButton(s.Save, "ctrl+s"), " ",
		renderButton(s.Test, "ctrl+t"), " ",
		renderButton(s.Start, "ctrl+b"), " ",
		renderButton(s.Stop, "ctrl+x"),
	)
}

func (m *Model) renderBanner() string {
	b := m.state.Banner
	if !b.Visible {
		return ""
	}
	style, ok := bannerStyles[b.Severity]
	if !ok {
		style = bannerStyles[SeverityInfo]
	}
	return style.Render(b.Message)
}

func (m *Model) renderHelp() string {
	if m.state.ActiveTab == TabLogs {
		return mutedStyle.Render("r refresh • ↑/↓ pgup/pgdown scroll • g/G top/bottom • ctrl+c quit")
	}
	return mutedStyle.Render("tab/↑/↓ move • type to edit • ctrl+u clear field • enter save • ctrl+c quit")
}
