package models

// TreeFields carries the raw, unvalidated values of one census row as read
// from a source (CSV line or database row).
type TreeFields struct {
	Status  string
	Health  string
	Species string
	Borough string
	X       float64
	Y       float64
	ID      int
	Diam    int
	Zip     int
}

// Build validates the fields and returns the corresponding TreeRecord.
func (f TreeFields) Build() (*TreeRecord, error) {
	return NewTreeRecord(f.ID, f.Diam, f.Status, f.Health, f.Species, f.Zip, f.Borough, f.X, f.Y)
}
