package face

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dimension is the length of encodings produced by the face encoder
const Dimension = 128

// DefaultTolerance is the match threshold used when none is configured
const DefaultTolerance = 0.5

// ErrDimensionMismatch is returned when two encodings have different lengths
var ErrDimensionMismatch = errors.New("face encoding dimension mismatch")

// Encoding is a face embedding vector
type Encoding []float64

// Validate checks the encoding has the expected dimension and only finite values
func (e Encoding) Validate() error {
	if len(e) != Dimension {
		return fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(e), Dimension)
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid face encoding: value %d is not finite", i)
		}
	}
	return nil
}

// Distance returns the Euclidean distance between two encodings
func Distance(a, b Encoding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return floats.Distance(a, b, 2), nil
}

// Match compares a known encoding with a candidate. The faces match when the
// distance is at most tolerance.
func Match(known, candidate Encoding, tolerance float64) (bool, float64, error) {
	distance, err := Distance(known, candidate)
	if err != nil {
		return false, 0, err
	}
	return distance <= tolerance, distance, nil
}
