package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stwalsh4118/streettrees/internal/models"
)

// ErrMalformedLine marks a line that could not be mapped onto tree fields:
// too few columns or a non-numeric value in a numeric column.
var ErrMalformedLine = errors.New("malformed line")

// Column positions in the 2015 census export.
const (
	colID       = 0
	colDiameter = 3
	colStatus   = 6
	colHealth   = 7
	colSpecies  = 9
	colZip      = 25
	colBorough  = 29
	colX        = 39
	colY        = 40

	minColumns = colY + 1
)

// LineError ties a failure to the 1-based line of the input it came from.
type LineError struct {
	Err  error
	Line int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseFields maps one tokenized line onto TreeFields.
func ParseFields(tokens []string) (models.TreeFields, error) {
	if len(tokens) < minColumns {
		return models.TreeFields{}, fmt.Errorf("%w: expected at least %d columns, got %d", ErrMalformedLine, minColumns, len(tokens))
	}

	var (
		f   models.TreeFields
		err error
	)
	if f.ID, err = atoi(tokens, colID, "id"); err != nil {
		return f, err
	}
	if f.Diam, err = atoi(tokens, colDiameter, "diameter"); err != nil {
		return f, err
	}
	if f.Zip, err = atoi(tokens, colZip, "zip"); err != nil {
		return f, err
	}
	if f.X, err = atof(tokens, colX, "x"); err != nil {
		return f, err
	}
	if f.Y, err = atof(tokens, colY, "y"); err != nil {
		return f, err
	}

	f.Status = strings.TrimSpace(tokens[colStatus])
	f.Health = strings.TrimSpace(tokens[colHealth])
	f.Species = strings.TrimSpace(tokens[colSpecies])
	f.Borough = strings.TrimSpace(tokens[colBorough])
	return f, nil
}

func atoi(tokens []string, col int, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(tokens[col]))
	if err != nil {
		return 0, fmt.Errorf("%w: %s column %q is not an integer", ErrMalformedLine, name, tokens[col])
	}
	return v, nil
}

func atof(tokens []string, col int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tokens[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s column %q is not a number", ErrMalformedLine, name, tokens[col])
	}
	return v, nil
}

// ParseLine tokenizes line and builds a validated TreeRecord from it.
func ParseLine(line string) (*models.TreeRecord, error) {
	fields, err := ParseFields(SplitLine(line))
	if err != nil {
		return nil, err
	}
	return fields.Build()
}
