package training

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/scoring"
)

// Columns whose standard deviation falls below this are treated as
// constant: they get weight 0 and are left out of the solve.
const minColumnStd = 1e-12

type fitResult struct {
	Weights    []float64
	Bias       float64
	Iterations int
	GradNorm   float64
	Converged  bool
}

// fitLogistic minimizes mean log-loss + l2/2*|w|^2 by Newton's method with
// step halving. Targets may be soft (any value in [0,1]). Columns are
// standardized for the solve and the scale is folded back into the returned
// weights, so they apply to raw feature values. The bias is not penalized.
func fitLogistic(x [][]float64, y []float64, l2 float64, maxIter int, tol float64) (fitResult, error) {
	n := len(x)
	if n == 0 {
		return fitResult{}, eris.New("training: no rows to fit")
	}
	d := len(x[0])

	mu := make([]float64, d)
	sd := make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			mu[j] += v
		}
	}
	for j := range mu {
		mu[j] /= float64(n)
	}
	for _, row := range x {
		for j, v := range row {
			dv := v - mu[j]
			sd[j] += dv * dv
		}
	}
	var active []int
	for j := range sd {
		sd[j] = math.Sqrt(sd[j] / float64(n))
		if sd[j] > minColumnStd {
			active = append(active, j)
		}
	}

	// z[i][0] is the intercept column.
	k := len(active) + 1
	z := make([][]float64, n)
	for i, row := range x {
		z[i] = make([]float64, k)
		z[i][0] = 1
		for a, j := range active {
			z[i][a+1] = (row[j] - mu[j]) / sd[j]
		}
	}

	beta := make([]float64, k)
	res := fitResult{}
	for iter := 0; ; iter++ {
		grad, hess := gradHess(z, y, beta, l2)
		res.GradNorm = norm(grad)
		res.Iterations = iter
		if res.GradNorm < tol {
			res.Converged = true
			break
		}
		if iter == maxIter {
			break
		}

		step, err := solve(hess, grad)
		if err != nil {
			return res, err
		}
		cur := loss(z, y, beta, l2)
		next := make([]float64, k)
		for t := 1.0; t > 1e-10; t /= 2 {
			for j := range beta {
				next[j] = beta[j] - t*step[j]
			}
			// Tolerate round-off so the last quadratic steps are taken.
			if loss(z, y, next, l2) <= cur+1e-12*math.Max(1, math.Abs(cur)) {
				break
			}
		}
		copy(beta, next)
	}

	res.Weights = make([]float64, d)
	res.Bias = beta[0]
	for a, j := range active {
		w := beta[a+1] / sd[j]
		res.Weights[j] = w
		res.Bias -= w * mu[j]
	}
	return res, nil
}

func gradHess(z [][]float64, y, beta []float64, l2 float64) ([]float64, [][]float64) {
	k := len(beta)
	n := float64(len(z))
	grad := make([]float64, k)
	hess := make([][]float64, k)
	for j := range hess {
		hess[j] = make([]float64, k)
	}
	for i, row := range z {
		p := scoring.Sigmoid(dot(row, beta))
		r := p - y[i]
		s := p * (1 - p)
		for a := range row {
			grad[a] += r * row[a]
			for b := 0; b <= a; b++ {
				hess[a][b] += s * row[a] * row[b]
			}
		}
	}
	for a := range k {
		grad[a] /= n
		for b := 0; b <= a; b++ {
			hess[a][b] /= n
			hess[b][a] = hess[a][b]
		}
		if a > 0 {
			grad[a] += l2 * beta[a]
			hess[a][a] += l2
		}
	}
	return grad, hess
}

func loss(z [][]float64, y, beta []float64, l2 float64) float64 {
	var sum float64
	for i, row := range z {
		s := dot(row, beta)
		// log(1+exp(s)) - y*s, evaluated without overflow.
		sum += math.Log1p(math.Exp(-math.Abs(s))) + math.Max(s, 0) - y[i]*s
	}
	sum /= float64(len(z))
	for j := 1; j < len(beta); j++ {
		sum += l2 / 2 * beta[j] * beta[j]
	}
	return sum
}

// solve returns x with a·x = b by Gaussian elimination with partial
// pivoting. a and b are not modified.
func solve(a [][]float64, b []float64) ([]float64, error) {
	k := len(b)
	m := make([][]float64, k)
	for i := range a {
		m[i] = make([]float64, k+1)
		copy(m[i], a[i])
		m[i][k] = b[i]
	}
	for col := range k {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-14 {
			return nil, eris.New("training: singular hessian")
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := col + 1; r < k; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= k; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	x := make([]float64, k)
	for r := k - 1; r >= 0; r-- {
		s := m[r][k]
		for c := r + 1; c < k; c++ {
			s -= m[r][c] * x[c]
		}
		x[r] = s / m[r][r]
	}
	return x, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}
