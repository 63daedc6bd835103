// Package equilibrium solves two-player zero-sum matrix games.
//
// Matrices are laid out with rows for the opponent's actions and columns for
// the maximising player's actions, so a policy always has one entry per
// column.
package equilibrium

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultTolerance is passed to the simplex pivot rules.
	DefaultTolerance = 1e-10

	// sumTolerance bounds how far a policy may drift from summing to one.
	sumTolerance = 1e-6

	// boundsSlack absorbs rounding when comparing against matrix bounds.
	boundsSlack = 1e-9
)

// Solver computes maximin strategies with a linear program.
type Solver struct {
	// Tolerance is the simplex tolerance; zero means DefaultTolerance.
	Tolerance float64
}

// SolveZeroSum solves m with default settings.
func SolveZeroSum(m mat.Matrix) ([]float64, float64, error) {
	return Solver{}.SolveZeroSum(m)
}

// SolveZeroSum returns the column player's maximin mixed strategy and the
// game value. Every entry of m must be strictly positive.
//
// The game is solved from the column player's side of the shifted matrix
// c - m, with c above every entry:
//
//	maximise Σz  subject to  (c - m)·z ≤ 1, z ≥ 0
//
// giving policy = z/Σz and value = c - 1/Σz. The row slacks form a feasible
// starting basis, so the simplex never needs a phase-one search. If that
// solve fails, the surplus form
//
//	minimise Σx  subject to  m·x ≥ 1, x ≥ 0
//
// is tried before giving up.
func (s Solver) SolveZeroSum(m mat.Matrix) ([]float64, float64, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, 0, solveFailure(errors.New("empty payoff matrix"))
	}
	lo, hi := bounds(m)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, 0, solveFailure(errors.New("payoff matrix contains NaN"))
	}
	if lo <= 0 {
		return nil, 0, solveFailure(fmt.Errorf("payoff matrix must be strictly positive (min %v)", lo))
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	policy, value, err := solveSlack(m, hi+1, tol)
	if err != nil {
		var surplusErr error
		policy, value, surplusErr = solveSurplus(m, tol)
		if surplusErr != nil {
			return nil, 0, solveFailure(errors.Join(err, surplusErr))
		}
	}

	if err := validate(lo, hi, value, policy); err != nil {
		return nil, 0, err
	}
	clampUnit(policy)
	if err := checkGuarantee(m, policy, value); err != nil {
		return nil, 0, solveFailure(err)
	}
	return policy, value, nil
}

// solveSlack runs the simplex on [c - m | I]·[z; s] = 1 starting from the
// slack basis.
func solveSlack(m mat.Matrix, shift, tol float64) (policy []float64, value float64, err error) {
	rows, cols := m.Dims()
	n := cols + rows

	a := mat.NewDense(rows, n, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.Set(i, j, shift-m.At(i, j))
		}
		a.Set(i, cols+i, 1)
	}

	c := make([]float64, n)
	for j := 0; j < cols; j++ {
		c[j] = -1
	}
	b := make([]float64, rows)
	basis := make([]int, rows)
	for i := range b {
		b[i] = 1
		basis[i] = cols + i
	}

	z, err := simplex(c, a, b, tol, basis)
	if err != nil {
		return nil, 0, fmt.Errorf("slack form: %w", err)
	}
	z = z[:cols]
	if err := nonNegative(z); err != nil {
		return nil, 0, fmt.Errorf("slack form: %w", err)
	}
	total := floats.Sum(z)
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, 0, fmt.Errorf("slack form: objective %v", total)
	}

	policy = make([]float64, cols)
	floats.ScaleTo(policy, 1/total, z)
	return policy, shift - 1/total, nil
}

// solveSurplus runs the simplex on [m | -I]·[x; s] = 1, which needs a
// phase-one search for its starting basis.
func solveSurplus(m mat.Matrix, tol float64) (policy []float64, value float64, err error) {
	rows, cols := m.Dims()
	n := cols + rows

	a := mat.NewDense(rows, n, nil)
	a.Slice(0, rows, 0, cols).(*mat.Dense).Copy(m)
	for i := 0; i < rows; i++ {
		a.Set(i, cols+i, -1)
	}

	c := make([]float64, n)
	for j := 0; j < cols; j++ {
		c[j] = 1
	}
	b := make([]float64, rows)
	for i := range b {
		b[i] = 1
	}

	x, err := simplex(c, a, b, tol, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("surplus form: %w", err)
	}
	x = x[:cols]
	if err := nonNegative(x); err != nil {
		return nil, 0, fmt.Errorf("surplus form: %w", err)
	}
	total := floats.Sum(x)
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, 0, fmt.Errorf("surplus form: objective %v", total)
	}

	value = 1 / total
	policy = make([]float64, cols)
	floats.ScaleTo(policy, value, x)
	return policy, value, nil
}

// simplex wraps lp.Simplex, turning panics and malformed output into
// errors.
func simplex(c []float64, a *mat.Dense, b []float64, tol float64, basis []int) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			x = nil
			err = fmt.Errorf("simplex panicked: %v", r)
		}
	}()

	opt, x, err := lp.Simplex(c, a, b, tol, basis)
	if err != nil {
		return nil, fmt.Errorf("simplex: %w", err)
	}
	if math.IsNaN(opt) || math.IsInf(opt, 0) {
		return nil, fmt.Errorf("simplex returned objective %v", opt)
	}
	if _, n := a.Dims(); len(x) != n || floats.HasNaN(x) {
		return nil, errors.New("simplex returned a malformed solution")
	}
	return x, nil
}

func nonNegative(x []float64) error {
	for j, v := range x {
		if v < -boundsSlack {
			return fmt.Errorf("variable %d is negative (%v)", j, v)
		}
	}
	return nil
}

// checkGuarantee rejects a policy that earns less than value against some
// row by more than rounding, which is how a numerically struggling solve
// shows up.
func checkGuarantee(m mat.Matrix, policy []float64, value float64) error {
	rows, _ := m.Dims()
	var mx mat.VecDense
	mx.MulVec(m, mat.NewVecDense(len(policy), policy))
	for i := 0; i < rows; i++ {
		if got := mx.AtVec(i); got < value-sumTolerance {
			return fmt.Errorf("row %d earns %v, below value %v", i, got, value)
		}
	}
	return nil
}

func validate(lo, hi, value float64, policy []float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalidResult(value, policy, "value is not finite")
	}
	if value < lo-boundsSlack || value > hi+boundsSlack {
		return invalidResult(value, policy, "value outside [%v, %v]", lo, hi)
	}
	for j, p := range policy {
		if math.IsNaN(p) {
			return invalidResult(value, policy, "policy[%d] is NaN", j)
		}
		if p < -boundsSlack || p > 1+boundsSlack {
			return invalidResult(value, policy, "policy[%d] = %v outside [0, 1]", j, p)
		}
	}
	if sum := floats.Sum(policy); math.Abs(sum-1) > sumTolerance {
		return invalidResult(value, policy, "policy sums to %v", sum)
	}
	return nil
}

func clampUnit(p []float64) {
	for i, v := range p {
		p[i] = math.Min(1, math.Max(0, v))
	}
}

func bounds(m mat.Matrix) (lo, hi float64) {
	rows, cols := m.Dims()
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				return math.NaN(), math.NaN()
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// BestResponse returns the pure strategy that maximises the column
// player's expected payoff against a fixed distribution over rows. Ties go
// to the lowest column.
func BestResponse(m mat.Matrix, opponent []float64) ([]float64, float64, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, 0, errors.New("empty payoff matrix")
	}
	if len(opponent) != rows {
		return nil, 0, fmt.Errorf("opponent distribution has %d entries, matrix has %d rows", len(opponent), rows)
	}

	var expected mat.VecDense
	expected.MulVec(m.T(), mat.NewVecDense(rows, opponent))
	payoffs := expected.RawVector().Data

	best := floats.MaxIdx(payoffs)
	policy := make([]float64, cols)
	policy[best] = 1
	return policy, payoffs[best], nil
}
