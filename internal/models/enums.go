package models

// Status is the recorded condition of a tree: alive, dead or stump.
// The zero value is StatusAbsent.
type Status string

// StatusAbsent means the census did not record a status.
const StatusAbsent Status = ""

var validStatuses = []string{"alive", "dead", "stump"}

// IsAbsent reports whether no status was recorded.
func (s Status) IsAbsent() bool { return s == StatusAbsent }

func (s Status) String() string {
	if s.IsAbsent() {
		return "null"
	}
	return string(s)
}

// Health is the surveyor's assessment: good, fair or poor.
// The zero value is HealthAbsent.
type Health string

// HealthAbsent means the census did not record a health assessment.
const HealthAbsent Health = ""

var validHealths = []string{"good", "fair", "poor"}

// IsAbsent reports whether no health was recorded.
func (h Health) IsAbsent() bool { return h == HealthAbsent }

func (h Health) String() string {
	if h.IsAbsent() {
		return "null"
	}
	return string(h)
}

// Canonical borough names in display order.
const (
	Manhattan    = "Manhattan"
	Bronx        = "Bronx"
	Brooklyn     = "Brooklyn"
	Queens       = "Queens"
	StatenIsland = "Staten Island"
)

var canonicalBoroughs = []string{Manhattan, Bronx, Brooklyn, Queens, StatenIsland}

// CanonicalBoroughs returns the five boroughs in display order.
func CanonicalBoroughs() []string {
	out := make([]string, len(canonicalBoroughs))
	copy(out, canonicalBoroughs)
	return out
}

// ParseBorough returns the canonical spelling of name, matched case-insensitively.
func ParseBorough(name string) (string, bool) {
	for _, b := range canonicalBoroughs {
		if EqualFold(b, name) {
			return b, true
		}
	}
	return "", false
}

func oneOfFold(value string, allowed []string) bool {
	for _, a := range allowed {
		if EqualFold(a, value) {
			return true
		}
	}
	return false
}
