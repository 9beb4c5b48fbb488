package script

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// pgbench constants: row counts per branch, shared by the initializer and
// the parameter generator so that generated ids always hit seeded rows.
const (
	TellersPerBranch  = 10
	AccountsPerBranch = 100000
)

// DefaultName identifies the built-in TPC-B style script in reports.
const DefaultName = "<default>"

// defaultScript is the classic pgbench TPC-B transaction. {{prefix}} is
// substituted with the configured table prefix at load time.
const defaultScript = `
UPDATE {{prefix}}_accounts SET abalance = abalance + :delta WHERE aid = :aid;
SELECT abalance FROM {{prefix}}_accounts WHERE aid = :aid;
UPDATE {{prefix}}_tellers SET tbalance = tbalance + :delta WHERE tid = :tid;
UPDATE {{prefix}}_branches SET bbalance = bbalance + :delta WHERE bid = :bid;
INSERT INTO {{prefix}}_history (tid, bid, aid, delta, mtime) VALUES (:tid, :bid, :aid, :delta, CURRENT_TIMESTAMP);
`

// Params holds the random values substituted into one transaction.
type Params struct {
	Bid       int
	Tid       int
	Aid       int
	Delta     int
	Iteration int
}

var placeholderPattern = regexp.MustCompile(`:(bid|tid|aid|delta|iteration)\b`)

// Script is one weighted workload transaction template, already split into
// individual statements for execution inside a single database transaction.
type Script struct {
	Name   string
	Weight float64

	statements []string

	// Placeholder usage, detected at load time.
	UsesBid       bool
	UsesTid       bool
	UsesAid       bool
	UsesDelta     bool
	UsesIteration bool
}

// New parses a script body. The {{prefix}} token is replaced before the
// body is split on statement boundaries.
func New(name, body string, weight float64, prefix string) (*Script, error) {
	body = strings.ReplaceAll(body, "{{prefix}}", prefix)

	s := &Script{Name: name, Weight: weight}
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		switch m[1] {
		case "bid":
			s.UsesBid = true
		case "tid":
			s.UsesTid = true
		case "aid":
			s.UsesAid = true
		case "delta":
			s.UsesDelta = true
		case "iteration":
			s.UsesIteration = true
		}
	}

	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			s.statements = append(s.statements, stmt)
		}
	}
	if len(s.statements) == 0 {
		return nil, fmt.Errorf("script %s contains no statements", name)
	}
	return s, nil
}

// Load reads a script file from disk.
func Load(path string, weight float64, prefix string) (*Script, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return New(path, string(body), weight, prefix)
}

// Default returns the built-in TPC-B script.
func Default(prefix string) *Script {
	s, err := New(DefaultName, defaultScript, 1.0, prefix)
	if err != nil {
		// The built-in script is a constant; failing to parse it is a bug.
		panic(err)
	}
	return s
}

// Statements returns the statements with params interpolated, in execution
// order. Values are integers generated by the driver, so textual
// interpolation matches what pgbench itself does with :variables.
func (s *Script) Statements(p Params) []string {
	r := strings.NewReplacer(
		":bid", strconv.Itoa(p.Bid),
		":tid", strconv.Itoa(p.Tid),
		":aid", strconv.Itoa(p.Aid),
		":delta", strconv.Itoa(p.Delta),
		":iteration", strconv.Itoa(p.Iteration),
	)
	out := make([]string, len(s.statements))
	for i, stmt := range s.statements {
		out[i] = r.Replace(stmt)
	}
	return out
}

// StatementCount reports how many statements one transaction executes.
func (s *Script) StatementCount() int {
	return len(s.statements)
}
