// Package catalog holds the loaded street tree records and answers the counting
// and species-search queries behind the statistics.
package catalog

import (
	"strings"

	"github.com/stwalsh4118/streettrees/internal/models"
)

// Catalog is an append-only, insertion-ordered collection of tree records.
//
// Add keeps per-species, per-borough and per-pair counts keyed by the folded
// names, so counting never walks the records. The counts always agree with a
// linear scan of the records.
//
// It is not synchronized. One goroutine builds it during ingestion and hands it
// to readers only after loading has finished; from then on it is read-only.
type Catalog struct {
	trees []*models.TreeRecord

	bySpecies map[string]int
	byBorough map[string]int
	byPair    map[pairKey]int

	// species holds each distinct species once, in first-seen order.
	species []speciesName
}

type pairKey struct {
	species string
	borough string
}

type speciesName struct {
	key  string
	name string
}

// New creates an empty catalog.
func New() *Catalog {
	return NewWithCapacity(0)
}

// NewWithCapacity creates an empty catalog with room for n records.
func NewWithCapacity(n int) *Catalog {
	if n < 0 {
		n = 0
	}
	return &Catalog{
		trees:     make([]*models.TreeRecord, 0, n),
		bySpecies: make(map[string]int),
		byBorough: make(map[string]int, 5),
		byPair:    make(map[pairKey]int),
	}
}

// Add appends a record. Nil records are ignored.
func (c *Catalog) Add(tree *models.TreeRecord) {
	if tree == nil {
		return
	}
	c.trees = append(c.trees, tree)

	species, borough := tree.SpeciesKey(), tree.BoroughKey()
	if _, seen := c.bySpecies[species]; !seen {
		c.species = append(c.species, speciesName{key: species, name: tree.Species()})
	}
	c.bySpecies[species]++
	c.byBorough[borough]++
	c.byPair[pairKey{species: species, borough: borough}]++
}

// Size returns the number of records.
func (c *Catalog) Size() int {
	return len(c.trees)
}

// CountBySpecies counts records whose species equals name, ignoring case.
func (c *Catalog) CountBySpecies(name string) int {
	return c.bySpecies[models.Fold(name)]
}

// CountByBorough counts records whose borough equals name, ignoring case.
func (c *Catalog) CountByBorough(name string) int {
	return c.byBorough[models.Fold(name)]
}

// CountBySpeciesAndBorough counts records matching both species and borough,
// ignoring case.
func (c *Catalog) CountBySpeciesAndBorough(species, borough string) int {
	return c.byPair[pairKey{species: models.Fold(species), borough: models.Fold(borough)}]
}

// MatchingSpeciesNames returns the distinct species names containing query as a
// case-insensitive substring. Names are deduplicated ignoring case, keep the
// casing of their first occurrence and are returned in first-seen order.
// The result is empty, never nil, when nothing matches.
func (c *Catalog) MatchingSpeciesNames(query string) []string {
	want := models.Fold(query)
	matches := []string{}
	for _, s := range c.species {
		if strings.Contains(s.key, want) {
			matches = append(matches, s.name)
		}
	}
	return matches
}

// SpeciesNames returns every distinct species in first-seen order.
func (c *Catalog) SpeciesNames() []string {
	return c.MatchingSpeciesNames("")
}

// BoroughTotals returns the record count of each canonical borough, including
// boroughs with no records.
func (c *Catalog) BoroughTotals() map[string]int {
	totals := make(map[string]int, 5)
	for _, b := range models.CanonicalBoroughs() {
		totals[b] = c.CountByBorough(b)
	}
	return totals
}

// Each calls fn for every record in insertion order until fn returns false.
func (c *Catalog) Each(fn func(*models.TreeRecord) bool) {
	for _, t := range c.trees {
		if !fn(t) {
			return
		}
	}
}
