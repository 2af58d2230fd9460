package sequence

import "math"

// FillForward replaces each NaN with the last defined value above it in the
// same column. Leading NaNs are left alone.
func FillForward(m [][]float64) {
	if len(m) == 0 {
		return
	}
	for j := range m[0] {
		last := math.NaN()
		for i := range m {
			if math.IsNaN(m[i][j]) {
				m[i][j] = last
			} else {
				last = m[i][j]
			}
		}
	}
}

// FillBackward replaces each NaN with the next defined value below it.
// A column with no defined value stays NaN.
func FillBackward(m [][]float64) {
	if len(m) == 0 {
		return
	}
	for j := range m[0] {
		next := math.NaN()
		for i := len(m) - 1; i >= 0; i-- {
			if math.IsNaN(m[i][j]) {
				m[i][j] = next
			} else {
				next = m[i][j]
			}
		}
	}
}
