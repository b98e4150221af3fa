package display

import (
	"fmt"
	"strings"

	"kgchat/internal/escape"
	"kgchat/internal/i18n"
	"kgchat/internal/transcript"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Renderer 终端渲染器；所有文本先经过 escape.Terminal
// Renderer renders for terminals; every piece of text goes through escape.Terminal first.
type Renderer struct {
	Theme    Theme
	Markdown bool
}

// Terminal 以默认暗色主题渲染完整视图
// Terminal renders the full view with the default dark theme.
func Terminal(v View, width int) string {
	return Renderer{Theme: DarkTheme()}.Terminal(v, width)
}

// Terminal 依次渲染对话与侧栏面板 / Terminal renders the chat then the sidebar panels
func (r Renderer) Terminal(v View, width int) string {
	return r.Chat(v, width) + "\n\n" + r.Sidebar(v, width)
}

func term(s string) string {
	return escape.Terminal(s)
}

// TruncateLine 清洗并截断单行文本 / TruncateLine sanitizes s and cuts it to width cells
func TruncateLine(s string, width int) string {
	if width <= 1 {
		return ""
	}
	return runewidth.Truncate(term(s), width, "…")
}

func clampWidth(width int) int {
	if width <= 0 {
		return 80
	}
	if width < 20 {
		return 20
	}
	return width
}

// Chat 渲染问答记录 / Chat renders the transcript
func (r Renderer) Chat(v View, width int) string {
	width = clampWidth(width)
	if v.NoHistory {
		return r.Theme.MutedStyle.Render(i18n.T("placeholder.history"))
	}
	wrap := lipgloss.NewStyle().Width(width)
	blocks := make([]string, 0, len(v.Messages))
	for _, m := range v.Messages {
		label := r.Theme.AIStyle.Render(i18n.T("label.ai"))
		if m.Role == transcript.RoleUser {
			label = r.Theme.UserStyle.Render(i18n.T("label.you"))
		}
		header := label
		if m.Clock != "" {
			header += " " + r.Theme.MutedStyle.Render(m.Clock)
		}
		body := term(m.Text)
		if m.Role == transcript.RoleAssistant && r.Markdown {
			if rendered := RenderMarkdown(body, width); rendered != "" {
				body = rendered
			}
		} else {
			body = wrap.Render(body)
		}
		blocks = append(blocks, header+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// Sidebar 渲染会话、统计、实体、关系与图片面板
// Sidebar renders the session, stats, entities, triples and graph panels.
func (r Renderer) Sidebar(v View, width int) string {
	width = clampWidth(width)
	sections := []string{
		r.section(i18n.T("label.session"), r.sessionLine(v, width)),
		r.section(i18n.T("panel.stats"), r.statsBlock(v)),
		r.section(i18n.T("panel.entities"), r.entitiesBlock(v, width)),
		r.section(i18n.T("panel.triples"), r.triplesBlock(v, width)),
		r.section(i18n.T("panel.graph"), r.graphLine(v)),
	}
	return strings.Join(sections, "\n\n")
}

func (r Renderer) section(title, body string) string {
	return r.Theme.TitleStyle.Render(title) + "\n" + body
}

func (r Renderer) sessionLine(v View, width int) string {
	if v.SessionID == "" {
		return r.Theme.MutedStyle.Render(i18n.T("label.none"))
	}
	return runewidth.Truncate(term(v.SessionID), width, "…")
}

func (r Renderer) statsBlock(v View) string {
	if !v.Stats.Present {
		return r.Theme.MutedStyle.Render(i18n.T("placeholder.stats"))
	}
	lines := []string{
		fmt.Sprintf("%s: %d", i18n.T("stats.entities"), v.Stats.Entities),
		fmt.Sprintf("%s: %d", i18n.T("stats.triples"), v.Stats.Triples),
	}
	if v.Stats.History > 0 {
		lines = append(lines, fmt.Sprintf("%s: %d", i18n.T("stats.history"), v.Stats.History))
	}
	return strings.Join(lines, "\n")
}

// entitiesBlock 按宽度折行排列实体徽章
// entitiesBlock lays entity badges out in rows that fit the width.
func (r Renderer) entitiesBlock(v View, width int) string {
	if v.NoEntities {
		return r.Theme.MutedStyle.Render(i18n.T("placeholder.entities"))
	}
	var rows []string
	var row []string
	used := 0
	for _, e := range v.Entities {
		text := runewidth.Truncate(term(e), width-2, "…")
		badge := r.Theme.BadgeStyle.Render(text)
		w := lipgloss.Width(badge)
		if used > 0 && used+1+w > width {
			rows = append(rows, strings.Join(row, " "))
			row, used = nil, 0
		}
		if used > 0 {
			used++
		}
		row = append(row, badge)
		used += w
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, " "))
	}
	return strings.Join(rows, "\n")
}

func (r Renderer) triplesBlock(v View, width int) string {
	if v.NoTriples {
		return r.Theme.MutedStyle.Render(i18n.T("placeholder.triples"))
	}
	lines := make([]string, 0, len(v.Triples))
	for _, row := range v.Triples {
		plain := fmt.Sprintf("%d. %s → %s → %s", row.N, term(row.Subject), term(row.Predicate), term(row.Object))
		if runewidth.StringWidth(plain) > width {
			lines = append(lines, runewidth.Truncate(plain, width, "…"))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s → %s → %s",
			r.Theme.MutedStyle.Render(fmt.Sprintf("%d.", row.N)),
			r.Theme.SubjectStyle.Render(term(row.Subject)),
			r.Theme.PredicateStyle.Render(term(row.Predicate)),
			r.Theme.SubjectStyle.Render(term(row.Object)),
		))
	}
	return strings.Join(lines, "\n")
}

func (r Renderer) graphLine(v View) string {
	if v.NoGraph {
		return r.Theme.MutedStyle.Render(i18n.T("placeholder.graph"))
	}
	if v.Image.Err != nil {
		return r.Theme.ErrorStyle.Render(term(v.Image.Err.Error()))
	}
	return i18n.T("image.ready", v.Image.Info.MIME, HumanSize(v.Image.Info.Size))
}
