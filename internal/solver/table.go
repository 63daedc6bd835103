package solver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/lox/bodegabrawl/internal/fileutil"
	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
)

const tableFileVersion = 1

// Table is the solved policy and value for every indexed state, addressed
// by index.Indexer.IndexOf.
type Table struct {
	Version     int                        `json:"version"`
	GeneratedAt time.Time                  `json:"generated_at"`
	RunID       string                     `json:"run_id"`
	Rules       game.Rules                 `json:"rules"`
	Policy      [][game.NumActions]float32 `json:"policy"`
	Value       []float64                  `json:"value"`
}

// Len returns the number of states in the table.
func (t *Table) Len() int {
	return len(t.Value)
}

// PolicyAt returns the nine-slot policy stored for index i.
func (t *Table) PolicyAt(i int) ([game.NumActions]float64, error) {
	var out [game.NumActions]float64
	if i < 0 || i >= len(t.Policy) {
		return out, fmt.Errorf("%w: %d not in [0, %d)", index.ErrOutOfRange, i, len(t.Policy))
	}
	for j, p := range t.Policy[i] {
		out[j] = float64(p)
	}
	return out, nil
}

// ValueAt returns the value stored for index i.
func (t *Table) ValueAt(i int) (float64, error) {
	if i < 0 || i >= len(t.Value) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", index.ErrOutOfRange, i, len(t.Value))
	}
	return t.Value[i], nil
}

// Check ensures the table was produced for ix's rules and covers its
// whole index space.
func (t *Table) Check(ix *index.Indexer) error {
	if t.Rules != ix.Rules() {
		return errors.New("table rules do not match indexer rules")
	}
	if len(t.Value) != ix.Total() || len(t.Policy) != ix.Total() {
		return fmt.Errorf("table holds %d values and %d policies, want %d", len(t.Value), len(t.Policy), ix.Total())
	}
	return nil
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Save writes the table as JSON, zstd-compressed when path ends in .zst.
func (t *Table) Save(path string) error {
	if t == nil {
		return errors.New("nil table")
	}
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return t.encode(w, compressed(path))
	})
}

func (t *Table) encode(w io.Writer, compress bool) error {
	if !compress {
		if err := t.writeJSON(w); err != nil {
			return fmt.Errorf("encode table: %w", err)
		}
		return nil
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := t.writeJSON(zw); err != nil {
		zw.Close()
		return fmt.Errorf("encode table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zstd writer: %w", err)
	}
	return nil
}

// tableHeader is every Table field except the per-state arrays.
type tableHeader struct {
	Version     int        `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	RunID       string     `json:"run_id"`
	Rules       game.Rules `json:"rules"`
}

// writeJSON streams the table one state at a time so a full-size table is
// never held in memory a second time as text.
func (t *Table) writeJSON(w io.Writer) error {
	header, err := json.Marshal(tableHeader{
		Version:     t.Version,
		GeneratedAt: t.GeneratedAt,
		RunID:       t.RunID,
		Rules:       t.Rules,
	})
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(w, 1<<16)
	bw.Write(header[:len(header)-1])
	bw.WriteString(`,"policy":[`)
	buf := make([]byte, 0, 256)
	for i, row := range t.Policy {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		for j, p := range row {
			if j > 0 {
				buf = append(buf, ',')
			}
			buf = strconv.AppendFloat(buf, float64(p), 'g', -1, 32)
		}
		buf = append(buf, ']')
		bw.Write(buf)
	}
	bw.WriteString(`],"value":[`)
	for i, v := range t.Value {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		bw.Write(buf)
	}
	bw.WriteString("]}\n")
	return bw.Flush()
}

// LoadTable reads a table written by Save.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	t, err := readJSON(bufio.NewReaderSize(r, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if t.Version != tableFileVersion {
		return nil, errors.New("unsupported table version")
	}
	if err := t.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("table rules invalid: %w", err)
	}
	if len(t.Policy) != len(t.Value) {
		return nil, fmt.Errorf("table holds %d policies but %d values", len(t.Policy), len(t.Value))
	}
	return t, nil
}

// readJSON walks the top-level object token by token and decodes the
// per-state arrays element by element. Unknown keys are skipped.
func readJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	t := &Table{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		switch key {
		case "version":
			err = dec.Decode(&t.Version)
		case "generated_at":
			err = dec.Decode(&t.GeneratedAt)
		case "run_id":
			err = dec.Decode(&t.RunID)
		case "rules":
			err = dec.Decode(&t.Rules)
		case "policy":
			err = decodeEach(dec, func() error {
				var row [game.NumActions]float32
				if err := dec.Decode(&row); err != nil {
					return err
				}
				t.Policy = append(t.Policy, row)
				return nil
			})
		case "value":
			err = decodeEach(dec, func() error {
				var v float64
				if err := dec.Decode(&v); err != nil {
					return err
				}
				t.Value = append(t.Value, v)
				return nil
			})
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeEach(dec *json.Decoder, element func() error) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for dec.More() {
		if err := element(); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
