package graph

import (
	"reflect"
	"testing"

	"kgchat/internal/kgapi"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyLatest, false},
		{"latest", PolicyLatest, false},
		{" Cumulative ", PolicyCumulative, false},
		{"merge", PolicyLatest, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePolicy(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParsePolicy(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyLatestReplaces(t *testing.T) {
	var s State
	s = s.Apply(Fragment{Entities: []string{"A"}, Stats: &Stats{Entities: 1}}, PolicyLatest)
	s = s.Apply(Fragment{Entities: []string{"B"}, Stats: &Stats{Entities: 2}}, PolicyLatest)
	if !reflect.DeepEqual(s.Entities, []string{"B"}) {
		t.Fatalf("entities=%v, want [B]", s.Entities)
	}
	if s.Stats.Entities != 2 {
		t.Fatalf("total entities=%d, want 2", s.Stats.Entities)
	}
}

func TestApplyCumulativeUnions(t *testing.T) {
	var s State
	s = s.Apply(Fragment{
		Entities: []string{"A", "B"},
		Triples:  []Triple{{"A", "knows", "B"}},
		Stats:    &Stats{Entities: 2, Triples: 1},
	}, PolicyCumulative)
	s = s.Apply(Fragment{
		Entities: []string{"B", "C"},
		Triples:  []Triple{{"A", "knows", "B"}, {"B", "likes", "C"}},
		Stats:    &Stats{Entities: 3, Triples: 2},
	}, PolicyCumulative)
	if !reflect.DeepEqual(s.Entities, []string{"A", "B", "C"}) {
		t.Fatalf("entities=%v", s.Entities)
	}
	if len(s.Triples) != 2 {
		t.Fatalf("triples=%v", s.Triples)
	}
	if s.Stats != (Stats{Entities: 3, Triples: 2}) {
		t.Fatalf("stats=%+v", s.Stats)
	}
}

func TestApplyImageAndMissingStats(t *testing.T) {
	s := State{}.Apply(Fragment{Image: "data:image/png;base64,AA==", Stats: &Stats{Entities: 5}}, PolicyLatest)
	if s.Image == "" {
		t.Fatal("image should be set")
	}
	s = s.Apply(Fragment{}, PolicyLatest)
	if s.Image != "" {
		t.Fatalf("image=%q, want placeholder", s.Image)
	}
	if !s.HasStats || s.Stats != (Stats{}) {
		t.Fatalf("stats=%+v has=%v, want zeros", s.Stats, s.HasStats)
	}
}

func TestApplyDoesNotAliasFragment(t *testing.T) {
	ents := []string{"A"}
	s := State{}.Apply(Fragment{Entities: ents}, PolicyLatest)
	ents[0] = "Z"
	if s.Entities[0] != "A" {
		t.Fatalf("state aliases fragment slice: %v", s.Entities)
	}
}

func TestFragmentFromAskScenario(t *testing.T) {
	resp := kgapi.AskResponse{
		Answer:     "X is Y",
		Extraction: &kgapi.Extraction{Entities: []string{"X", "Y"}},
		NewTriples: []kgapi.Triple{{Subject: "X", Predicate: "is", Object: "Y"}},
		GraphStats: &kgapi.GraphStats{TotalEntities: 2, TotalTriples: 1},
	}
	s := State{}.Apply(FragmentFromAsk(resp), PolicyLatest)
	if !reflect.DeepEqual(s.Entities, []string{"X", "Y"}) {
		t.Fatalf("entities=%v", s.Entities)
	}
	if len(s.Triples) != 1 || s.Triples[0] != (Triple{"X", "is", "Y"}) {
		t.Fatalf("triples=%v", s.Triples)
	}
	if s.Stats.Entities != 2 || s.Stats.Triples != 1 {
		t.Fatalf("stats=%+v", s.Stats)
	}
}

func TestFragmentFromAskWithoutOptionalFields(t *testing.T) {
	f := FragmentFromAsk(kgapi.AskResponse{Answer: "ok"})
	if f.Entities != nil || f.Triples != nil || f.Stats != nil || f.Image != "" {
		t.Fatalf("fragment=%+v, want empty", f)
	}
}

func TestResetAndLoad(t *testing.T) {
	s := State{}.Apply(Fragment{Entities: []string{"A"}, Image: "img"}, PolicyLatest)
	if s.Reset().Empty() != true {
		t.Fatal("reset state should be empty")
	}
	snap := kgapi.GraphSnapshot{
		Entities: []string{"A", "B"},
		Triples:  []kgapi.Triple{{Subject: "A", Predicate: "p", Object: "B"}},
		Stats:    kgapi.GraphStats{TotalEntities: 2, TotalTriples: 1, TotalHistory: 3},
	}
	loaded := s.Load(snap)
	if len(loaded.Entities) != 2 || len(loaded.Triples) != 1 || loaded.Stats.History != 3 {
		t.Fatalf("loaded=%+v", loaded)
	}
	if loaded.Image != "img" {
		t.Fatalf("image=%q, want kept", loaded.Image)
	}
}
