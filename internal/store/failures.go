package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/bodegabrawl/internal/equilibrium"
	"github.com/lox/bodegabrawl/internal/fileutil"
	"github.com/lox/bodegabrawl/internal/game"
)

// Float is a float64 that survives JSON even when it is NaN or infinite,
// which is exactly when a failure payload needs it.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Failure is the diagnostic payload for one failed solve. It holds enough
// to rerun the solve offline.
type Failure struct {
	RunID string           `json:"run_id,omitempty"`
	Index int              `json:"index"`
	State game.GameState   `json:"state"`
	Game  [][]float64      `json:"game"`
	Error equilibrium.Kind `json:"error"`
	V     *Float           `json:"v,omitempty"`
	P     []Float          `json:"p,omitempty"`
}

// Matrix rebuilds the payoff matrix.
func (f *Failure) Matrix() (*mat.Dense, error) {
	if len(f.Game) == 0 || len(f.Game[0]) == 0 {
		return nil, errors.New("failure has an empty payoff matrix")
	}
	rows, cols := len(f.Game), len(f.Game[0])
	m := mat.NewDense(rows, cols, nil)
	for i, row := range f.Game {
		if len(row) != cols {
			return nil, fmt.Errorf("payoff row %d has %d entries, want %d", i, len(row), cols)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// Recorder writes one JSON file per failed index into a directory.
type Recorder struct {
	dir   string
	runID string
}

// NewRecorder returns a recorder writing into dir. The directory is
// created lazily on the first failure.
func NewRecorder(dir, runID string) *Recorder {
	return &Recorder{dir: dir, runID: runID}
}

// Dir returns the output directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Record persists a failed solve and returns the file written. Value and
// policy details are taken from err when it is an *equilibrium.Failure
// of kind value_error.
func (r *Recorder) Record(i int, s game.GameState, m mat.Matrix, err error) (string, error) {
	f := &Failure{
		RunID: r.runID,
		Index: i,
		State: s,
		Game:  rowsOf(m),
		Error: equilibrium.KindSolve,
	}
	var sf *equilibrium.Failure
	if errors.As(err, &sf) {
		f.Error = sf.Kind
		if sf.Kind == equilibrium.KindInvalidResult {
			v := Float(sf.Value)
			f.V = &v
			f.P = make([]Float, len(sf.Policy))
			for j, p := range sf.Policy {
				f.P[j] = Float(p)
			}
		}
	}

	path := filepath.Join(r.dir, fmt.Sprintf("fail_%d.json", i))
	werr := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	})
	if werr != nil {
		return "", fmt.Errorf("record failure %d: %w", i, werr)
	}
	return path, nil
}

// LoadFailure reads a payload written by Recorder.Record.
func LoadFailure(path string) (*Failure, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Failure
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode failure %s: %w", path, err)
	}
	return &f, nil
}

func rowsOf(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
