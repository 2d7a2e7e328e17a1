// Package predicate evaluates free-form row predicates against a table using
// an embedded AWK interpreter. Each scalar column is bound to an AWK variable
// of the same name, so "ANTENNA1 == 0 && TIME > 4.5e9" selects rows the way
// an awk one-liner over a column dump would.
package predicate

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/pkg/errors"

	"mstransform/internal/table"
)

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	separator = strings.NewReplacer("\t", " ", "\n", " ")
)

// awk builtins and keywords a column must not shadow
var reserved = map[string]bool{
	"NR": true, "NF": true, "FNR": true, "FS": true, "OFS": true, "ORS": true,
	"RS": true, "RT": true, "FILENAME": true, "SUBSEP": true, "RSTART": true,
	"RLENGTH": true, "CONVFMT": true, "OFMT": true, "ENVIRON": true,
	"ARGC": true, "ARGV": true, "BEGIN": true, "END": true,
}

// Evaluator selects table rows with AWK expressions.
type Evaluator struct{}

// Evaluate returns the ascending indices of the rows of t for which expr
// is true.
func (Evaluator) Evaluate(expr string, t *table.Table) ([]int, error) {
	return Evaluate(expr, t)
}

// Bindable lists the columns of t that an expression can reference.
func Bindable(t *table.Table) []string {
	var names []string
	for _, c := range t.Columns() {
		if scalar(c) && identRe.MatchString(c.Name()) && !reserved[c.Name()] {
			names = append(names, c.Name())
		}
	}
	return names
}

func scalar(c table.Column) bool {
	switch c.Kind() {
	case table.Int32, table.Float64, table.String, table.Bool:
		return true
	}
	return false
}

// Program builds the AWK source that evaluates expr over rows holding the
// given columns, one tab-separated line per row.
func Program(expr string, columns []string) string {
	var sb strings.Builder
	sb.WriteString("BEGIN { FS = \"\\t\" }\n{ ")
	for i, name := range columns {
		fmt.Fprintf(&sb, "%s = $%d; ", name, i+1)
	}
	sb.WriteString("}\n(")
	sb.WriteString(expr)
	sb.WriteString(") { print NR - 1 }\n")
	return sb.String()
}

func Evaluate(expr string, t *table.Table) ([]int, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("empty predicate")
	}
	cols := Bindable(t)
	prog, err := parser.ParseProgram([]byte(Program(expr, cols)), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing predicate %q", expr)
	}

	input, err := dump(t, cols)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	config := &interp.Config{
		Stdin:        bytes.NewReader(input),
		Output:       &out,
		NoExec:       true,
		NoFileWrites: true,
		NoFileReads:  true,
	}
	if _, err := interp.ExecProgram(prog, config); err != nil {
		return nil, errors.Wrapf(err, "evaluating predicate %q", expr)
	}

	rows := []int{}
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		r, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "predicate %q: bad row index", expr)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// dump renders the bound columns of t as tab-separated lines.
func dump(t *table.Table, cols []string) ([]byte, error) {
	cells := make([]func(int) string, len(cols))
	for i, name := range cols {
		c, _ := t.Column(name)
		switch v := c.(type) {
		case *table.Vector[int32]:
			cells[i] = func(r int) string { return strconv.FormatInt(int64(v.Values[r]), 10) }
		case *table.Vector[float64]:
			cells[i] = func(r int) string { return strconv.FormatFloat(v.Values[r], 'g', -1, 64) }
		case *table.Vector[string]:
			cells[i] = func(r int) string { return separator.Replace(v.Values[r]) }
		case *table.Vector[bool]:
			cells[i] = func(r int) string {
				if v.Values[r] {
					return "1"
				}
				return "0"
			}
		default:
			return nil, fmt.Errorf("column %s: cannot bind %s", name, c.Kind())
		}
	}

	var buf bytes.Buffer
	for r := 0; r < t.NumRows(); r++ {
		for i, cell := range cells {
			if i > 0 {
				buf.WriteByte('\t')
			}
			buf.WriteString(cell(r))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
