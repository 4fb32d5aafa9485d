// Package patterns holds the named regular-expression dictionary used to tag
// records with weapon systems and military units.
package patterns

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-classify/internal/metrics"
	"github.com/miradorstack/mirador-classify/internal/models"
)

var (
	// ErrInvalidPattern marks an entry whose pattern text does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrDuplicateKey marks an entry whose key was already declared in its group.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrEmptyKey marks an entry without a key.
	ErrEmptyKey = errors.New("empty key")
)

// Source is an uncompiled dictionary entry as declared in configuration.
type Source struct {
	Key     string `yaml:"key" json:"key"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Entry is a compiled dictionary entry.
type Entry struct {
	Key     string
	Group   models.Group
	Pattern string
	Regexp  *regexp.Regexp
}

// Skipped describes an entry excluded at load time.
type Skipped struct {
	Key     string
	Group   models.Group
	Pattern string
	Err     error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s/%s: %v", s.Group, s.Key, s.Err)
}

// Dictionary is an immutable, ordered set of compiled entries split into
// systems and units. Declaration order is part of the contract: matching
// walks entries front to back and the first hit wins.
type Dictionary struct {
	version  string
	loadedAt time.Time
	systems  []Entry
	units    []Entry
	skipped  []Skipped
}

// Empty returns a dictionary with no entries.
func Empty() *Dictionary {
	return &Dictionary{version: uuid.NewString(), loadedAt: time.Now().UTC()}
}

// Load compiles both groups. Entries that fail to compile, repeat a key, or
// have no key are excluded and reported through Skipped; they never fail the
// load as a whole.
func Load(logger *slog.Logger, systems, units []Source) *Dictionary {
	if logger == nil {
		logger = slog.Default()
	}

	c := compiler{cache: make(map[string]*regexp.Regexp)}
	d := Empty()
	d.systems, d.skipped = c.compileGroup(models.GroupSystem, systems, d.skipped)
	d.units, d.skipped = c.compileGroup(models.GroupUnit, units, d.skipped)

	for _, s := range d.skipped {
		logger.Warn("pattern excluded",
			slog.String("group", string(s.Group)),
			slog.String("key", s.Key),
			slog.Any("error", s.Err))
		metrics.ObservePatternSkipped(string(s.Group))
	}
	logger.Info("pattern dictionary loaded",
		slog.String("version", d.version),
		slog.Int("systems", len(d.systems)),
		slog.Int("units", len(d.units)),
		slog.Int("skipped", len(d.skipped)))

	return d
}

// Version identifies this load; annotations computed against another
// version are stale.
func (d *Dictionary) Version() string {
	if d == nil {
		return ""
	}
	return d.version
}

// LoadedAt returns when the dictionary was compiled.
func (d *Dictionary) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}

// Systems returns the system entries in declaration order.
func (d *Dictionary) Systems() []Entry {
	if d == nil {
		return nil
	}
	return append([]Entry(nil), d.systems...)
}

// Units returns the unit entries in declaration order.
func (d *Dictionary) Units() []Entry {
	if d == nil {
		return nil
	}
	return append([]Entry(nil), d.units...)
}

// Skipped returns the entries excluded at load time.
func (d *Dictionary) Skipped() []Skipped {
	if d == nil {
		return nil
	}
	return append([]Skipped(nil), d.skipped...)
}

// Len returns the number of compiled entries across both groups.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.systems) + len(d.units)
}

// FirstMatch returns the first entry in group whose pattern matches text.
func (d *Dictionary) FirstMatch(group models.Group, text string) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	entries := d.systems
	if group == models.GroupUnit {
		entries = d.units
	}
	for _, e := range entries {
		if e.Regexp.MatchString(text) {
			return e, true
		}
	}
	return Entry{}, false
}

// compiler memoises compiled patterns by source text so identical text yields
// the same *regexp.Regexp within one load.
type compiler struct {
	cache map[string]*regexp.Regexp
}

func (c compiler) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.cache[pattern]; ok {
		return re, nil
	}
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	c.cache[pattern] = re
	return re, nil
}

func (c compiler) compileGroup(group models.Group, sources []Source, skipped []Skipped) ([]Entry, []Skipped) {
	entries := make([]Entry, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		key := strings.TrimSpace(src.Key)
		switch {
		case key == "":
			skipped = append(skipped, Skipped{Key: src.Key, Group: group, Pattern: src.Pattern, Err: ErrEmptyKey})
			continue
		case hasKey(seen, key):
			skipped = append(skipped, Skipped{Key: key, Group: group, Pattern: src.Pattern, Err: ErrDuplicateKey})
			continue
		}
		re, err := c.compile(src.Pattern)
		if err != nil {
			skipped = append(skipped, Skipped{Key: key, Group: group, Pattern: src.Pattern, Err: err})
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, Entry{Key: key, Group: group, Pattern: src.Pattern, Regexp: re})
	}
	return entries, skipped
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
