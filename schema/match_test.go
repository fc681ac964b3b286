package schema

import "testing"

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		pattern string
		stage   string
		want    bool
	}{
		{"", "anything", true},
		{"*", "anything", true},
		{"bake", "bake", true},
		{"bake", "Bake", false},
		{"bake", "post-bake", false},
		{"post-*", "post-bake", true},
		{"post-*", "pre-bake", false},
		{"ba?e", "bake", true},
		{"[be]*", "etch", true},
		{"[!b]*", "bake", false},
		{"[!b]*", "coat", true},
		{`a\b`, `a\b`, true},
		{"litho*", "litho/coat", true},
		{"*/bake", "line1/bake", true},
		{"litho?coat", "litho/coat", true},
		{"[unclosed", "[unclosed", true},
		{"[unclosed", "u", false},
	}
	for _, tt := range tests {
		if got := compilePattern(tt.pattern).match(tt.stage); got != tt.want {
			t.Errorf("match(%q, %q) = %v, want %v", tt.pattern, tt.stage, got, tt.want)
		}
	}
}

func TestParseFamily(t *testing.T) {
	for _, s := range []string{"material", "equipment", "quality"} {
		if _, ok := ParseFamily(s); !ok {
			t.Errorf("ParseFamily(%q) not recognised", s)
		}
	}
	if _, ok := ParseFamily("solder"); ok {
		t.Error("unknown family accepted")
	}
}
