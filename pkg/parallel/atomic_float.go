package parallel

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64Array is a fixed-size array of float64 cells supporting lock-free
// concurrent additions, to the same or different indices.
type AtomicFloat64Array struct {
	cells []atomic.Uint64
}

// NewAtomicFloat64Array allocates size cells, all 0.0.
func NewAtomicFloat64Array(size int) *AtomicFloat64Array {
	return &AtomicFloat64Array{cells: make([]atomic.Uint64, size)}
}

// Len returns the number of cells.
func (a *AtomicFloat64Array) Len() int {
	return len(a.cells)
}

// Get returns the current value at index.
func (a *AtomicFloat64Array) Get(index int) float64 {
	return math.Float64frombits(a.cells[index].Load())
}

// Set overwrites the value at index.
func (a *AtomicFloat64Array) Set(index int, value float64) {
	a.cells[index].Store(math.Float64bits(value))
}

// Add atomically adds delta to the value at index and returns the new value.
func (a *AtomicFloat64Array) Add(index int, delta float64) float64 {
	cell := &a.cells[index]
	for {
		old := cell.Load()
		next := math.Float64frombits(old) + delta
		if cell.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Reset sets every cell back to 0.0. It must not race with Add.
func (a *AtomicFloat64Array) Reset() {
	for i := range a.cells {
		a.cells[i].Store(0)
	}
}

// Snapshot copies the current values into a plain slice.
func (a *AtomicFloat64Array) Snapshot() []float64 {
	out := make([]float64, len(a.cells))
	for i := range a.cells {
		out[i] = math.Float64frombits(a.cells[i].Load())
	}
	return out
}
