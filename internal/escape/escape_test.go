package escape

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "script tag", in: "<script>alert(1)</script>", want: "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{name: "ampersand", in: "A & B", want: "A &amp; B"},
		{name: "quotes", in: `"x" 'y'`, want: "&#34;x&#34; &#39;y&#39;"},
		{name: "chinese passthrough", in: "什么是人工智能？", want: "什么是人工智能？"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTML(tc.in); got != tc.want {
				t.Fatalf("HTML(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHTML_NeverLeavesMarkup(t *testing.T) {
	inputs := []string{"<b>bold</b>", "<img src=x onerror=alert(1)>", "a<b", "</p><p>"}
	for _, in := range inputs {
		got := HTML(in)
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("HTML(%q)=%q still contains markup characters", in, got)
		}
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "X is Y", want: "X is Y"},
		{name: "csi color", in: "\x1b[31mred\x1b[0m", want: "red"},
		{name: "osc title bel", in: "\x1b]0;pwned\adone", want: "done"},
		{name: "osc title st", in: "\x1b]8;;http://x\x1b\\link", want: "link"},
		{name: "keeps newline and tab", in: "a\n\tb", want: "a\n\tb"},
		{name: "drops carriage return and bell", in: "a\rb\a", want: "ab"},
		{name: "drops c1 csi", in: "a\u009b2Jb", want: "a2Jb"},
		{name: "trailing escape", in: "abc\x1b", want: "abc"},
		{name: "unicode", in: "北京 → 景点", want: "北京 → 景点"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Terminal(tc.in); got != tc.want {
				t.Fatalf("Terminal(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
