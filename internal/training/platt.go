package training

import (
	"github.com/sells-group/veracity-cli/internal/scoring"
)

// plattTargets smooths the 0/1 labels toward the class prior:
// t+ = (N+ + 1)/(N+ + 2), t- = 1/(N- + 2).
func plattTargets(y []int) []float64 {
	var pos, neg int
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	hi := float64(pos+1) / float64(pos+2)
	lo := 1 / float64(neg+2)
	t := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			t[i] = hi
		} else {
			t[i] = lo
		}
	}
	return t
}

// fitPlatt fits p = sigmoid(A*raw + B) to held-out labels by minimizing
// log-loss against smoothed targets.
func fitPlatt(raw []float64, y []int, maxIter int, tol float64) (scoring.Platt, fitResult, error) {
	x := make([][]float64, len(raw))
	for i, r := range raw {
		x[i] = []float64{r}
	}
	res, err := fitLogistic(x, plattTargets(y), 0, maxIter, tol)
	if err != nil {
		return scoring.Platt{}, res, err
	}
	return scoring.Platt{A: res.Weights[0], B: res.Bias}, res, nil
}
