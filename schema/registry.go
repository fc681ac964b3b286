package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...any)

// document is the on-disk fields configuration. JSON documents are accepted
// since they parse as YAML.
type document struct {
	ProcessSegments []string          `yaml:"process_segments"`
	Materials       []FieldDefinition `yaml:"materials"`
	Equipment       []FieldDefinition `yaml:"equipment"`
	Quality         []FieldDefinition `yaml:"quality"`
}

// Snapshot is an immutable view of one load of the fields document.
type Snapshot struct {
	pipeline []string
	defs     map[Family][]FieldDefinition

	present  bool
	modTime  time.Time
	size     int64
	degraded error
}

// Registry resolves field definitions from a fields document, reloading it
// when the file's modification time changes. Readers never lock; a reload
// swaps in a new Snapshot.
type Registry struct {
	path     string
	fallback []string
	logFn    LogFunc
	onReload func(degraded bool)

	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes reload and degradation messages to fn.
func WithLogger(fn LogFunc) Option { return func(r *Registry) { r.logFn = fn } }

// WithReloadHook is called after every reload.
func WithReloadHook(fn func(degraded bool)) Option { return func(r *Registry) { r.onReload = fn } }

// NewRegistry creates a registry over the document at path. fallback is the
// pipeline used when the document is absent, unreadable or declares none.
func NewRegistry(path string, fallback []string, opts ...Option) *Registry {
	r := &Registry{
		path:     path,
		fallback: append([]string(nil), fallback...),
		logFn:    func(string, ...any) {},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Path returns the fields document path.
func (r *Registry) Path() string { return r.path }

// Load returns the current snapshot, reloading the document first if its
// modification time or size changed since the last load. It never fails;
// problems with the document yield the fallback pipeline and no definitions.
func (r *Registry) Load() *Snapshot {
	present, modTime, size := r.stat()
	if s := r.snap.Load(); s != nil && s.sameSource(present, modTime, size) {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.snap.Load(); s != nil && s.sameSource(present, modTime, size) {
		return s
	}
	s := r.read(present, modTime, size)
	r.snap.Store(s)
	if s.degraded != nil {
		r.logFn("schema: %s degraded, using defaults where needed: %v", r.path, s.degraded)
	} else if present {
		r.logFn("schema: loaded %s (%d stages)", r.path, len(s.pipeline))
	}
	if r.onReload != nil {
		r.onReload(s.degraded != nil)
	}
	return s
}

// Resolve is shorthand for Load().Resolve.
func (r *Registry) Resolve(f Family, stage string) []FieldDefinition {
	return r.Load().Resolve(f, stage)
}

// Schema is shorthand for Load().Schema.
func (r *Registry) Schema(f Family, stage string) Schema {
	return r.Load().Schema(f, stage)
}

// Pipeline is shorthand for Load().Pipeline.
func (r *Registry) Pipeline() []string {
	return r.Load().Pipeline()
}

func (r *Registry) stat() (bool, time.Time, int64) {
	info, err := os.Stat(r.path)
	if err != nil {
		return false, time.Time{}, 0
	}
	return true, info.ModTime(), info.Size()
}

func (r *Registry) read(present bool, modTime time.Time, size int64) *Snapshot {
	s := &Snapshot{
		pipeline: append([]string(nil), r.fallback...),
		defs:     map[Family][]FieldDefinition{},
		present:  present,
		modTime:  modTime,
		size:     size,
	}
	if !present {
		return s
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		s.degraded = err
		return s
	}
	// Tabs are only whitespace in a JSON document but YAML rejects them as
	// indentation.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		data = bytes.ReplaceAll(data, []byte("\t"), []byte(" "))
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			s.degraded = fmt.Errorf("parse: %w", err)
			return s
		}
		// Type errors leave the well-formed parts decoded.
		s.degraded = err
	}

	if len(doc.ProcessSegments) > 0 {
		s.pipeline = append([]string(nil), doc.ProcessSegments...)
	}
	s.defs[Material] = prepare(doc.Materials)
	s.defs[Equipment] = prepare(doc.Equipment)
	s.defs[Quality] = prepare(doc.Quality)
	return s
}

func prepare(in []FieldDefinition) []FieldDefinition {
	out := make([]FieldDefinition, 0, len(in))
	for _, d := range in {
		if d.Key == "" {
			continue
		}
		d.compile()
		out = append(out, d)
	}
	return out
}

func (s *Snapshot) sameSource(present bool, modTime time.Time, size int64) bool {
	return s.present == present && s.modTime.Equal(modTime) && s.size == size
}

// Degraded returns the problem found while loading, if any.
func (s *Snapshot) Degraded() error { return s.degraded }

// Pipeline returns a copy of the ordered stage names.
func (s *Snapshot) Pipeline() []string {
	return append([]string(nil), s.pipeline...)
}

// StageIndex returns the position of stage in the pipeline, or -1.
func (s *Snapshot) StageIndex(stage string) int {
	for i, name := range s.pipeline {
		if name == stage {
			return i
		}
	}
	return -1
}

// Resolve returns copies of the family's declared definitions that apply to
// stage, in declaration order. An empty stage applies no filter. Within a
// placement the first definition of a key wins.
func (s *Snapshot) Resolve(f Family, stage string) []FieldDefinition {
	defs := s.defs[f]
	out := make([]FieldDefinition, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if stage != "" && !d.AppliesTo(stage) {
			continue
		}
		id := d.Key
		if d.IsColumn() {
			id = "column:" + d.Key
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d.clone())
	}
	return out
}

// Schema returns the built-in schema for the family with the definitions
// resolved for stage merged in.
func (s *Snapshot) Schema(f Family, stage string) Schema {
	return merge(builtinSchema(f), s.Resolve(f, stage))
}

// DeclaredStages returns the sorted union of stage names referenced by any
// definition. Unconstrained definitions, "*" and glob patterns expand to the
// pipeline stages they match.
func (s *Snapshot) DeclaredStages() []string {
	set := map[string]bool{}
	for _, f := range Families {
		for _, d := range s.defs[f] {
			if len(d.matchers) == 0 {
				for _, st := range s.pipeline {
					set[st] = true
				}
				continue
			}
			for _, m := range d.matchers {
				switch m.kind {
				case matchExact:
					set[m.pattern] = true
				default:
					for _, st := range s.pipeline {
						if m.match(st) {
							set[st] = true
						}
					}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for st := range set {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}
