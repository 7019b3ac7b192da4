package dynamics

import (
	"gonum.org/v1/gonum/mat"
)

func scaleVec(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = s * x
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// applyMat multiplies a dense matrix by a plain vector.
func applyMat(m mat.Matrix, v []float64) []float64 {
	rows, _ := m.Dims()
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(len(v), v))
	res := make([]float64, rows)
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}

// transposed returns a dense copy of m's transpose.
func transposed(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// negEye returns -I of size n.
func negEye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, -1)
	}
	return out
}

// columnMat returns v as an n x 1 matrix.
func columnMat(v []float64) *mat.Dense {
	out := mat.NewDense(len(v), 1, nil)
	for i, x := range v {
		out.Set(i, 0, x)
	}
	return out
}

// scaledMat returns s*m as a new dense matrix.
func scaledMat(m mat.Matrix, s float64) *mat.Dense {
	var out mat.Dense
	out.Scale(s, m)
	return &out
}
