// Package branch loads the academic branch structures sessions are opened
// against. A branch file is YAML (or JSON, which YAML accepts):
//
//	branches:
//	  - id: cse
//	    branchName: Computer Engineering
//	    academicYears: [SE, TE, BE]
//	    workingDays: [Monday, Tuesday, Wednesday, Thursday, Friday]
package branch

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/intake/internal/core"
)

type file struct {
	Branches []core.Branch `yaml:"branches"`
}

// Catalog is an in-memory set of branches. It satisfies core.BranchSource.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]core.Branch
	order []string
	path  string
}

// New builds a catalog from branches. IDs default to a slug of the name.
func New(branches []core.Branch) (*Catalog, error) {
	c := &Catalog{}
	if err := c.replace(branches); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a branch file. An empty path yields an empty catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(nil)
	}
	branches, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := New(branches)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.path = path
	return c, nil
}

// Reload re-reads the file the catalog was loaded from. On error the
// current branches are kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	branches, err := readFile(c.path)
	if err != nil {
		return err
	}
	return c.replace(branches)
}

// Branch returns a copy of the branch with the given ID.
func (c *Catalog) Branch(id string) (*core.Branch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &b, true
}

// Branches returns all branches in file order.
func (c *Catalog) Branches() []core.Branch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Branch, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the branch IDs, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

func (c *Catalog) replace(branches []core.Branch) error {
	byID := make(map[string]core.Branch, len(branches))
	order := make([]string, 0, len(branches))
	var errs []error

	for i, b := range branches {
		b.ID = strings.TrimSpace(b.ID)
		if b.ID == "" {
			b.ID = Slug(b.Name)
		}
		if b.ID == "" {
			errs = append(errs, fmt.Errorf("branch #%d: id or branchName is required", i+1))
			continue
		}
		if _, dup := byID[b.ID]; dup {
			errs = append(errs, fmt.Errorf("branch #%d: duplicate id %q", i+1, b.ID))
			continue
		}
		byID[b.ID] = b
		order = append(order, b.ID)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.mu.Lock()
	c.byID, c.order = byID, order
	c.mu.Unlock()
	return nil
}

func readFile(path string) ([]core.Branch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read branch file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse branch file %s: %w", path, err)
	}
	return f.Branches, nil
}

// Slug lower-cases a name and joins its words with dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
