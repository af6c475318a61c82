// Package collection holds name-indexed snapshots of parameter records.
//
// A Collection is a copy: it never observes later writes to the block or
// frame it was built from. Build a new one to see updated values.
package collection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/phawd/internal/param"
)

var ErrNameNotFound = errors.New("collection: name not found")

type Collection struct {
	records map[string]param.Record
}

// Build copies records into a new collection. Duplicate names: last wins.
func Build(records []param.Record) *Collection {
	c := &Collection{records: make(map[string]param.Record, len(records))}
	for _, r := range records {
		c.records[r.Name()] = r
	}
	return c
}

func (c *Collection) Lookup(name string) (param.Record, error) {
	if c != nil {
		if r, ok := c.records[name]; ok {
			return r, nil
		}
	}
	return param.Record{}, fmt.Errorf("%w: %q", ErrNameNotFound, name)
}

func (c *Collection) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.records[name]
	return ok
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Names returns the collection's names in sorted order.
func (c *Collection) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.records))
	for name := range c.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
