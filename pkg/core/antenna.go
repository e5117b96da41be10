package core

import (
	"slices"

	"golang.org/x/text/cases"
)

// AntennaCatalog is the bijection between antenna names and ids.
// Ids are row numbers of the ANTENNA subtable. Lookups ignore case.
type AntennaCatalog struct {
	names []string
	index map[string]int
}

// NewAntennaCatalog builds a catalog from ANTENNA.NAME in row order.
// When two rows fold to the same name the first one wins.
func NewAntennaCatalog(names []string) *AntennaCatalog {
	c := &AntennaCatalog{
		names: slices.Clone(names),
		index: make(map[string]int, len(names)),
	}
	fold := cases.Fold()
	for id, name := range names {
		key := fold.String(name)
		if _, dup := c.index[key]; !dup {
			c.index[key] = id
		}
	}
	return c
}

// ID resolves a name to its antenna id.
func (c *AntennaCatalog) ID(name string) (int, error) {
	if id, ok := c.index[cases.Fold().String(name)]; ok {
		return id, nil
	}
	return 0, &UnknownAntennaError{Name: name, Available: c.Names()}
}

// Name returns the name of antenna id, or "" when out of range.
func (c *AntennaCatalog) Name(id int) string {
	if id < 0 || id >= len(c.names) {
		return ""
	}
	return c.names[id]
}

// Len returns the number of antennas.
func (c *AntennaCatalog) Len() int { return len(c.names) }

// Names returns the antenna names in id order.
func (c *AntennaCatalog) Names() []string { return slices.Clone(c.names) }
