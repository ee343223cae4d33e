package view

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/starford/algiz/internal/apperr"
)

// Kind classifies a view by its name.
type Kind string

const (
	KindMain  Kind = "main"
	KindInbox Kind = "in"
	KindOpen  Kind = "open"
	KindUser  Kind = "user"
	KindQuery Kind = "query"
	KindStash Kind = "stash"
)

// Reserved views always exist and can be cleared but not deleted.
var Reserved = []string{string(KindMain), string(KindInbox), string(KindOpen)}

// generated lists the kinds whose names carry a numeric suffix.
var generated = []Kind{KindUser, KindQuery, KindStash}

const countersFile = ".counters.yaml"

// NamePattern restricts view names to one plain path element.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidateName rejects names that cannot be used as a view directory.
func ValidateName(name string) error {
	if err := validation.Validate(name, validation.Required, validation.Match(NamePattern)); err != nil {
		return fmt.Errorf("view: name %q: %w", name, err)
	}
	return nil
}

// IsReserved reports whether name is one of the fixed views.
func IsReserved(name string) bool {
	return slices.Contains(Reserved, name)
}

// KindOf classifies name. Names that are neither reserved nor generated
// are plain user views.
func KindOf(name string) Kind {
	if IsReserved(name) {
		return Kind(name)
	}
	for _, k := range generated {
		if _, ok := suffix(name, k); ok {
			return k
		}
	}
	return KindUser
}

// suffix returns N for a name spelled {kind}{N}.
func suffix(name string, k Kind) (int, bool) {
	rest, ok := strings.CutPrefix(name, string(k))
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || strconv.Itoa(n) != rest {
		return 0, false
	}
	return n, true
}

// counters holds the highest suffix ever handed out per kind.
type counters map[Kind]int

func (m *Materializer) loadCounters() (counters, error) {
	data, err := os.ReadFile(filepath.Join(m.root, countersFile))
	if errors.Is(err, os.ErrNotExist) {
		return counters{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("view: read counters: %w", err)
	}
	c := counters{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("view: parse counters: %w", err)
	}
	return c, nil
}

func (m *Materializer) saveCounters(c counters) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("view: encode counters: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(m.root, countersFile), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("view: write counters: %w", err)
	}
	return nil
}

// Generate creates a fresh view named {kind}{N}. N is one more than both the
// largest suffix among existing views and the largest ever generated, so
// numbers are not reused after deletion.
func (m *Materializer) Generate(k Kind) (string, error) {
	if !slices.Contains(generated, k) {
		return "", fmt.Errorf("view: kind %q has no generated names: %w", k, apperr.ErrConflict)
	}
	c, err := m.loadCounters()
	if err != nil {
		return "", err
	}
	names, err := m.Names()
	if err != nil {
		return "", err
	}
	next := c[k]
	for _, name := range names {
		if n, ok := suffix(name, k); ok && n > next {
			next = n
		}
	}
	next++
	name := string(k) + strconv.Itoa(next)
	if err := m.Create(name); err != nil {
		return "", err
	}
	c[k] = next
	if err := m.saveCounters(c); err != nil {
		return "", err
	}
	return name, nil
}
