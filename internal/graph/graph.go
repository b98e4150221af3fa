// Package graph 聚合服务端返回的实体、关系与统计
// Package graph aggregates the entities, triples and stats returned by the service.
package graph

import (
	"fmt"
	"strings"

	"kgchat/internal/kgapi"
)

// Policy 片段合并策略 / Policy decides how fragments merge into the state
type Policy string

const (
	// PolicyLatest 用最新片段替换实体与关系（与服务端行为一致）
	// PolicyLatest replaces entities and triples with the latest fragment.
	PolicyLatest Policy = "latest"
	// PolicyCumulative 跨轮次累积实体与关系
	// PolicyCumulative accumulates entities and triples across turns.
	PolicyCumulative Policy = "cumulative"
)

// ParsePolicy 解析策略名，空串为 latest
// ParsePolicy parses a policy name; empty means latest.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyLatest):
		return PolicyLatest, nil
	case string(PolicyCumulative):
		return PolicyCumulative, nil
	default:
		return PolicyLatest, fmt.Errorf("unknown graph policy %q (want latest or cumulative)", s)
	}
}

type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// Stats 服务端权威的运行总数，客户端从不自行计数
// Stats are the server's authoritative running totals; the client never counts.
type Stats struct {
	Entities int
	Triples  int
	History  int
}

// Fragment 一次提问带回的增量
// Fragment is the increment carried back by one question.
type Fragment struct {
	Entities []string
	Triples  []Triple
	Stats    *Stats
	Image    string
}

// FragmentFromAsk 从 ask 响应构造片段；缺失字段按空/0 处理
// FragmentFromAsk builds a fragment from an ask response; absent fields become empty or 0.
func FragmentFromAsk(resp kgapi.AskResponse) Fragment {
	f := Fragment{Image: resp.GraphImage}
	if resp.Extraction != nil {
		f.Entities = append([]string(nil), resp.Extraction.Entities...)
	}
	for _, t := range resp.NewTriples {
		f.Triples = append(f.Triples, Triple{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object})
	}
	if resp.GraphStats != nil {
		f.Stats = &Stats{
			Entities: resp.GraphStats.TotalEntities,
			Triples:  resp.GraphStats.TotalTriples,
			History:  resp.GraphStats.TotalHistory,
		}
	}
	return f
}

// State 当前会话的图谱视图；零值即重置后的状态
// State is the graph view of the active session; the zero value is the reset state.
type State struct {
	Entities []string
	Triples  []Triple
	Stats    Stats
	// HasStats 为 false 时显示“暂无数据” / HasStats false shows the "no data" placeholder
	HasStats bool
	Image    string
}

// Apply 按策略合并片段并返回新状态，接收者不变
// Apply merges a fragment under the policy and returns the new state; the receiver is unchanged.
func (s State) Apply(f Fragment, policy Policy) State {
	next := State{Image: f.Image}
	switch policy {
	case PolicyCumulative:
		next.Entities = unionEntities(s.Entities, f.Entities)
		next.Triples = mergeTriples(s.Triples, f.Triples)
	default:
		next.Entities = append([]string(nil), f.Entities...)
		next.Triples = append([]Triple(nil), f.Triples...)
	}
	if f.Stats != nil {
		next.Stats = *f.Stats
	}
	// 响应缺少统计时显示 0，而不是保留旧值或显示占位
	next.HasStats = true
	return next
}

func (s State) Reset() State {
	return State{}
}

// Load 用 get_graph 快照整体替换状态；图片保留（快照不含图片）
// Load replaces the state from a get_graph snapshot; the image is kept since snapshots carry none.
func (s State) Load(snap kgapi.GraphSnapshot) State {
	next := State{
		Entities: append([]string(nil), snap.Entities...),
		Stats: Stats{
			Entities: snap.Stats.TotalEntities,
			Triples:  snap.Stats.TotalTriples,
			History:  snap.Stats.TotalHistory,
		},
		HasStats: true,
		Image:    s.Image,
	}
	for _, t := range snap.Triples {
		next.Triples = append(next.Triples, Triple{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object})
	}
	return next
}

func (s State) Empty() bool {
	return len(s.Entities) == 0 && len(s.Triples) == 0 && !s.HasStats && s.Image == ""
}

func unionEntities(prev, add []string) []string {
	out := make([]string, 0, len(prev)+len(add))
	seen := make(map[string]struct{}, len(prev)+len(add))
	for _, list := range [][]string{prev, add} {
		for _, e := range list {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func mergeTriples(prev, add []Triple) []Triple {
	out := make([]Triple, 0, len(prev)+len(add))
	seen := make(map[Triple]struct{}, len(prev)+len(add))
	for _, list := range [][]Triple{prev, add} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
