package schema

import (
	"path"
	"strings"
)

type matchKind int

const (
	matchAll matchKind = iota
	matchExact
	matchGlob
)

// slashStandIn replaces "/" before matching since path.Match never lets a
// wildcard cross a separator.
const slashStandIn = "\x00"

// matcher is a stage pattern compiled once when the fields document loads.
type matcher struct {
	kind    matchKind
	pattern string
}

// compilePattern classifies a declared stage pattern. Empty and "*" match
// everything, a pattern without glob metacharacters matches by equality and
// anything else is a shell-style glob. "[!...]" negation is accepted, a
// backslash is literal and "/" is an ordinary character. A malformed glob
// falls back to exact comparison.
func compilePattern(p string) matcher {
	if p == "" || p == "*" {
		return matcher{kind: matchAll}
	}
	if !strings.ContainsAny(p, "*?[") {
		return matcher{kind: matchExact, pattern: p}
	}
	g := strings.ReplaceAll(p, `\`, `\\`)
	g = strings.ReplaceAll(g, "[!", "[^")
	g = strings.ReplaceAll(g, "/", slashStandIn)
	if _, err := path.Match(g, ""); err != nil {
		return matcher{kind: matchExact, pattern: p}
	}
	return matcher{kind: matchGlob, pattern: g}
}

func (m matcher) match(stage string) bool {
	switch m.kind {
	case matchAll:
		return true
	case matchExact:
		return stage == m.pattern
	case matchGlob:
		ok, _ := path.Match(m.pattern, strings.ReplaceAll(stage, "/", slashStandIn))
		return ok
	}
	return false
}
