package math

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Format formats a float with a precision of 3 decimals.
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// Unique returns the distinct values of ii in ascending order.
func Unique(ii []int) []int {
	seen := make(map[int]struct{}, len(ii))
	uu := make([]int, 0)
	for _, i := range ii {
		if _, ok := seen[i]; !ok {
			seen[i] = struct{}{}
			uu = append(uu, i)
		}
	}
	sort.Ints(uu)
	return uu
}

// Where returns the indices of the elements of ii accepted by the predicate.
func Where(ii []int, accept func(i int) bool) []int {
	idx := make([]int, 0, len(ii))
	for i, v := range ii {
		if accept(v) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Pick returns the elements of ii at the given indices.
func Pick(ii []int, idx []int) []int {
	pp := make([]int, len(idx))
	for i, j := range idx {
		pp[i] = ii[j]
	}
	return pp
}

// SelectRows copies the rows of x at the given indices into a new matrix.
// It returns nil if no indices are given, as gonum does not allow empty matrices.
func SelectRows(x mat.Matrix, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, j := range idx {
		out.SetRow(i, Row(x, j))
	}
	return out
}

// SliceRows returns a copy of the rows [from, to) of x.
func SliceRows(x mat.Matrix, from, to int) *mat.Dense {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return SelectRows(x, idx)
}

// StackRows concatenates the rows of the given matrices.
func StackRows(xx ...mat.Matrix) *mat.Dense {
	var rows, cols int
	for _, x := range xx {
		if empty(x) {
			continue
		}
		r, c := x.Dims()
		rows += r
		cols = c
	}
	if rows == 0 {
		return nil
	}
	out := mat.NewDense(rows, cols, nil)
	var k int
	for _, x := range xx {
		if empty(x) {
			continue
		}
		r, _ := x.Dims()
		for i := 0; i < r; i++ {
			out.SetRow(k, Row(x, i))
			k++
		}
	}
	return out
}

// empty checks for nil matrices, including typed nil pointers.
func empty(x mat.Matrix) bool {
	if x == nil {
		return true
	}
	if d, ok := x.(*mat.Dense); ok && d == nil {
		return true
	}
	return false
}
