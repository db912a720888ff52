package fixedpoint

import (
	"math"
	"sync"

	fperrors "versemarket/core/errors"
)

// TableStep is the sample spacing of the Φ/φ/erf lookup tables.
const TableStep = 0.01

// TableLow and TableHigh bound the domain the tables cover; lookups clamp
// inputs to this range.
const (
	TableLow  = -4.0
	TableHigh = 4.0
)

// TablePoints is the number of samples: (4 - (-4)) / 0.01 + 1 = 801.
const TablePoints = 801

// Tables holds the precomputed standard-normal CDF (Φ), PDF (φ), and erf
// values over [-4,4] at step 0.01. Population is one-time; a second call to
// Populate returns ErrAlreadyInitialized.
type Tables struct {
	mu          sync.RWMutex
	populated   bool
	phiCDF      [TablePoints]float64
	phiPDF      [TablePoints]float64
	erfValues   [TablePoints]float64
}

// NewTables returns an empty, unpopulated table set.
func NewTables() *Tables {
	return &Tables{}
}

// Populate performs the one-time chunked population of all three tables.
// Re-population after a successful Populate is rejected.
func (t *Tables) Populate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.populated {
		return fperrors.ErrAlreadyInitialized
	}
	const chunk = 128
	for start := 0; start < TablePoints; start += chunk {
		end := start + chunk
		if end > TablePoints {
			end = TablePoints
		}
		for i := start; i < end; i++ {
			x := TableLow + float64(i)*TableStep
			t.erfValues[i] = math.Erf(x / math.Sqrt2)
			t.phiCDF[i] = 0.5 * (1 + t.erfValues[i])
			t.phiPDF[i] = math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
		}
	}
	t.populated = true
	return nil
}

// Populated reports whether Populate has completed successfully.
func (t *Tables) Populated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.populated
}

func (t *Tables) index(x float64) (int, float64) {
	if x < TableLow {
		x = TableLow
	}
	if x > TableHigh {
		x = TableHigh
	}
	pos := (x - TableLow) / TableStep
	idx := int(pos)
	if idx >= TablePoints-1 {
		idx = TablePoints - 2
	}
	frac := pos - float64(idx)
	return idx, frac
}

func interpolate(table [TablePoints]float64, idx int, frac float64) float64 {
	return table[idx] + frac*(table[idx+1]-table[idx])
}

// CDF returns the standard normal CDF Φ(x) via clamp + linear interpolation,
// guaranteed absolute error < 1e-3 against the reference erf-based value.
func (t *Tables) CDF(x float64) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.populated {
		return 0, fperrors.ErrTablesNotInitialized
	}
	idx, frac := t.index(x)
	return interpolate(t.phiCDF, idx, frac), nil
}

// PDF returns the standard normal PDF φ(x) via clamp + linear interpolation.
func (t *Tables) PDF(x float64) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.populated {
		return 0, fperrors.ErrTablesNotInitialized
	}
	idx, frac := t.index(x)
	return interpolate(t.phiPDF, idx, frac), nil
}

// Erf returns erf(x/sqrt(2)) via clamp + linear interpolation.
func (t *Tables) Erf(x float64) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.populated {
		return 0, fperrors.ErrTablesNotInitialized
	}
	idx, frac := t.index(x)
	return interpolate(t.erfValues, idx, frac), nil
}
