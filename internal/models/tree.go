package models

import (
	"fmt"
	"sort"
)

// Zip code bounds (inclusive)
const (
	MinZip = 0
	MaxZip = 99999
)

// TreeRecord is one validated street tree. Fields are set once by NewTreeRecord
// and never change; a *TreeRecord is always fully valid.
type TreeRecord struct {
	status  Status
	health  Health
	species string
	borough string

	// Folded forms of species and borough, computed once for comparisons.
	speciesKey string
	boroughKey string

	x        float64
	y        float64
	id       int
	diameter int
	zip      int
}

// NewTreeRecord validates every field and builds a TreeRecord.
// Fields are checked in the order id, diameter, status, health, species, zip,
// borough; the first violation is returned as an *InvalidFieldError and no
// record is built. x and y are stored unchecked.
func NewTreeRecord(id, diameter int, status, health, species string, zip int, borough string, x, y float64) (*TreeRecord, error) {
	if id < 0 {
		return nil, &InvalidFieldError{Field: "id", Value: id, Reason: "must not be negative"}
	}
	if diameter < 0 {
		return nil, &InvalidFieldError{Field: "diameter", Value: diameter, Reason: "must not be negative"}
	}

	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	hl, err := parseHealth(health)
	if err != nil {
		return nil, err
	}

	if species == "" {
		return nil, &InvalidFieldError{Field: "species", Value: species, Reason: "must not be empty"}
	}
	if zip < MinZip || zip > MaxZip {
		return nil, &InvalidFieldError{
			Field:  "zip",
			Value:  zip,
			Reason: fmt.Sprintf("must be between %d and %d", MinZip, MaxZip),
		}
	}
	if !oneOfFold(borough, canonicalBoroughs) {
		return nil, &InvalidFieldError{Field: "borough", Value: borough, Reason: "must be a NYC borough"}
	}

	return &TreeRecord{
		id:         id,
		diameter:   diameter,
		status:     st,
		health:     hl,
		species:    species,
		speciesKey: Fold(species),
		zip:        zip,
		borough:    borough,
		boroughKey: Fold(borough),
		x:          x,
		y:          y,
	}, nil
}

func parseStatus(in string) (Status, error) {
	if in == "" {
		return StatusAbsent, nil
	}
	if !oneOfFold(in, validStatuses) {
		return StatusAbsent, &InvalidFieldError{Field: "status", Value: in, Reason: "must be alive, dead, stump or empty"}
	}
	return Status(in), nil
}

func parseHealth(in string) (Health, error) {
	if in == "" {
		return HealthAbsent, nil
	}
	if !oneOfFold(in, validHealths) {
		return HealthAbsent, &InvalidFieldError{Field: "health", Value: in, Reason: "must be good, fair, poor or empty"}
	}
	return Health(in), nil
}

func (t *TreeRecord) ID() int         { return t.id }
func (t *TreeRecord) Diameter() int   { return t.diameter }
func (t *TreeRecord) Status() Status  { return t.status }
func (t *TreeRecord) Health() Health  { return t.health }
func (t *TreeRecord) Species() string { return t.species }
func (t *TreeRecord) Zip() int        { return t.zip }
func (t *TreeRecord) Borough() string { return t.borough }
func (t *TreeRecord) X() float64      { return t.x }
func (t *TreeRecord) Y() float64      { return t.y }

// SpeciesKey returns the species folded with Fold.
func (t *TreeRecord) SpeciesKey() string { return t.speciesKey }

// BoroughKey returns the borough folded with Fold.
func (t *TreeRecord) BoroughKey() string { return t.boroughKey }

// Equals reports whether t and other are the same tree. Records are the same tree
// when their ids match. A shared id with a different species is not a plain
// mismatch: it returns an *IntegrityError because the dataset contradicts itself.
func (t *TreeRecord) Equals(other *TreeRecord) (bool, error) {
	if other == nil || t.id != other.id {
		return false, nil
	}
	if t.speciesKey != other.speciesKey {
		return false, &IntegrityError{ID: t.id, Species: t.species, OtherSpecies: other.species}
	}
	return true, nil
}

// CompareTo orders trees by species in reverse alphabetical order, then by
// descending id. It returns -1 when t sorts before other, 1 when after, 0 when
// both keys tie.
func (t *TreeRecord) CompareTo(other *TreeRecord) int {
	a, b := t.speciesKey, other.speciesKey
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	case t.id > other.id:
		return -1
	case t.id < other.id:
		return 1
	default:
		return 0
	}
}

// SortTrees sorts trees in place using CompareTo.
func SortTrees(trees []*TreeRecord) {
	sort.SliceStable(trees, func(i, j int) bool {
		return trees[i].CompareTo(trees[j]) < 0
	})
}

// Describe renders every field with a label, in the order id, diameter, status,
// health, species, borough, zip, x, y.
func (t *TreeRecord) Describe() string {
	return fmt.Sprintf("ID: %d Diameter: %d Status: %s Health: %s Species: %s Borough: %s Zipcode: %d x-Pos: %v y-Pos: %v",
		t.id, t.diameter, t.status, t.health, t.species, t.borough, t.zip, t.x, t.y)
}

func (t *TreeRecord) String() string {
	return t.Describe()
}
