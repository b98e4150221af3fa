// Package display 把会话上下文投影为视图，并渲染为 HTML 或终端文本
// Package display projects the session context onto a view and renders it as HTML or terminal text.
package display

import (
	"time"

	"kgchat/internal/session"
	"kgchat/internal/transcript"
)

// ClockLayout 问答条目的本地时间格式 / ClockLayout formats the local clock reading of an entry
const ClockLayout = "15:04:05"

type Message struct {
	Role  transcript.Role
	Text  string
	Clock string
}

type TripleRow struct {
	N         int
	Subject   string
	Predicate string
	Object    string
}

// Stats 缺失的数值显示为 0；Present=false 时显示“暂无数据”
// Stats shows absent numbers as 0; Present=false shows the "no data" placeholder.
type Stats struct {
	Present  bool
	Entities int
	Triples  int
	History  int
}

type Image struct {
	Present bool
	Src     string
	Info    ImageInfo
	Err     error
}

// View 渲染所需的全部数据；文本均为未转义原文
// View carries everything a renderer needs; all text is raw and unescaped.
type View struct {
	SessionID string
	Messages  []Message
	Entities  []string
	Triples   []TripleRow
	Stats     Stats
	Image     Image

	NoHistory  bool
	NoEntities bool
	NoTriples  bool
	NoGraph    bool
}

// Project 纯函数：相同输入产生相同视图
// Project is pure: the same context always yields the same view.
func Project(sc session.Context) View {
	v := View{SessionID: sc.ID}

	for _, e := range sc.Transcript.Entries() {
		v.Messages = append(v.Messages, Message{Role: e.Role, Text: e.Text, Clock: clock(e.At)})
	}
	v.NoHistory = len(v.Messages) == 0

	v.Entities = append([]string(nil), sc.Graph.Entities...)
	v.NoEntities = len(v.Entities) == 0

	for i, t := range sc.Graph.Triples {
		v.Triples = append(v.Triples, TripleRow{N: i + 1, Subject: t.Subject, Predicate: t.Predicate, Object: t.Object})
	}
	v.NoTriples = len(v.Triples) == 0

	if sc.Graph.HasStats {
		v.Stats = Stats{
			Present:  true,
			Entities: sc.Graph.Stats.Entities,
			Triples:  sc.Graph.Stats.Triples,
			History:  sc.Graph.Stats.History,
		}
	}

	if sc.Graph.Image != "" {
		info, err := DescribeImage(sc.Graph.Image)
		v.Image = Image{Present: true, Src: sc.Graph.Image, Info: info, Err: err}
	}
	v.NoGraph = !v.Image.Present
	return v
}

func clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(ClockLayout)
}
