package display

import (
	"fmt"
	"strings"

	"kgchat/internal/escape"
	"kgchat/internal/i18n"
	"kgchat/internal/transcript"
)

// HTML 渲染各面板的标记；所有文本都经过 escape.HTML
// HTML renders the panel markup; every piece of text goes through escape.HTML.
func HTML(v View) string {
	var b strings.Builder
	b.WriteString(`<div class="kg-view">` + "\n")
	writeHTMLSession(&b, v)
	writeHTMLChat(&b, v)
	writeHTMLEntities(&b, v)
	writeHTMLTriples(&b, v)
	writeHTMLStats(&b, v)
	writeHTMLGraph(&b, v)
	b.WriteString("</div>\n")
	return b.String()
}

func h(s string) string {
	return escape.HTML(s)
}

func placeholderHTML(key string) string {
	return `<p class="text-muted">` + h(i18n.T(key)) + "</p>\n"
}

func writeHTMLSession(b *strings.Builder, v View) {
	id := v.SessionID
	if id == "" {
		id = i18n.T("label.none")
	}
	fmt.Fprintf(b, `<div id="session"><span class="label">%s</span> <code>%s</code></div>`+"\n",
		h(i18n.T("label.session")), h(id))
}

func writeHTMLChat(b *strings.Builder, v View) {
	b.WriteString(`<div id="chatHistory">` + "\n")
	if v.NoHistory {
		b.WriteString(`<div class="text-muted text-center">` + h(i18n.T("placeholder.history")) + "</div>\n")
	}
	for _, m := range v.Messages {
		class, label := "ai-message", i18n.T("label.ai")
		if m.Role == transcript.RoleUser {
			class, label = "user-message", i18n.T("label.you")
		}
		fmt.Fprintf(b, `<div class="message %s"><strong>%s:</strong> %s`, class, h(label), h(m.Text))
		if m.Clock != "" {
			fmt.Fprintf(b, ` <div class="message-time">%s</div>`, h(m.Clock))
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")
}

func writeHTMLEntities(b *strings.Builder, v View) {
	b.WriteString(`<div id="entitiesList">` + "\n")
	if v.NoEntities {
		b.WriteString(placeholderHTML("placeholder.entities"))
	}
	for _, e := range v.Entities {
		fmt.Fprintf(b, `<span class="entity-badge">%s</span>`+"\n", h(e))
	}
	b.WriteString("</div>\n")
}

func writeHTMLTriples(b *strings.Builder, v View) {
	b.WriteString(`<div id="triplesList">` + "\n")
	if v.NoTriples {
		b.WriteString(placeholderHTML("placeholder.triples"))
	}
	for _, t := range v.Triples {
		fmt.Fprintf(b, `<div class="triple-item"><small class="text-muted">%d.</small> <strong>%s</strong> → <em>%s</em> → <strong>%s</strong></div>`+"\n",
			t.N, h(t.Subject), h(t.Predicate), h(t.Object))
	}
	b.WriteString("</div>\n")
}

func writeHTMLStats(b *strings.Builder, v View) {
	b.WriteString(`<div id="statsContent">` + "\n")
	if !v.Stats.Present {
		b.WriteString(placeholderHTML("placeholder.stats"))
	} else {
		fmt.Fprintf(b, `<p>%s: <strong>%d</strong></p>`+"\n", h(i18n.T("stats.entities")), v.Stats.Entities)
		fmt.Fprintf(b, `<p>%s: <strong>%d</strong></p>`+"\n", h(i18n.T("stats.triples")), v.Stats.Triples)
		if v.Stats.History > 0 {
			fmt.Fprintf(b, `<p>%s: <strong>%d</strong></p>`+"\n", h(i18n.T("stats.history")), v.Stats.History)
		}
	}
	b.WriteString("</div>\n")
}

func writeHTMLGraph(b *strings.Builder, v View) {
	b.WriteString(`<div id="graph">` + "\n")
	// 只接受可解码的 data:image 引用作为 src
	if v.NoGraph || v.Image.Err != nil {
		b.WriteString(`<div id="noGraph">` + h(i18n.T("placeholder.graph")) + "</div>\n")
	} else {
		fmt.Fprintf(b, `<img id="knowledgeGraph" alt="%s" src="%s">`+"\n", h(i18n.T("panel.graph")), h(v.Image.Src))
	}
	b.WriteString("</div>\n")
}
