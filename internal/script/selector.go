package script

import (
	"fmt"
	"math/rand"
)

// Selector picks a script per transaction, weighted by script weight, and
// generates the random parameters for it. Each job owns its own Selector so
// selection never contends across jobs.
type Selector struct {
	scripts []*Script
	total   float64
	scale   int
	rnd     *rand.Rand
}

// NewSelector builds a selector over the given scripts. seed makes a job's
// parameter stream independent from its siblings.
func NewSelector(scripts []*Script, scale int, seed int64) (*Selector, error) {
	if len(scripts) == 0 {
		return nil, fmt.Errorf("at least one script is required")
	}
	total := 0.0
	for _, s := range scripts {
		if s.Weight <= 0 {
			return nil, fmt.Errorf("script %s: weight must be positive", s.Name)
		}
		total += s.Weight
	}
	return &Selector{
		scripts: scripts,
		total:   total,
		scale:   scale,
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

// TotalWeight is the sum of all script weights.
func (s *Selector) TotalWeight() float64 {
	return s.total
}

// Pick returns the script for the next transaction.
func (s *Selector) Pick() *Script {
	if len(s.scripts) == 1 {
		return s.scripts[0]
	}
	target := s.rnd.Float64() * s.total
	acc := 0.0
	for _, sc := range s.scripts {
		acc += sc.Weight
		if target < acc {
			return sc
		}
	}
	return s.scripts[len(s.scripts)-1]
}

// GenParams produces random parameter values for one transaction. The id
// derivations mirror the pgbench layout: tellers and accounts are keyed off
// the branch they belong to.
func (s *Selector) GenParams(iteration int) Params {
	bid := 1 + s.rnd.Intn(s.scale)
	return Params{
		Bid:       bid,
		Tid:       (bid-1)*TellersPerBranch + 1 + s.rnd.Intn(TellersPerBranch),
		Aid:       (bid-1)*AccountsPerBranch + 1 + s.rnd.Intn(AccountsPerBranch),
		Delta:     1 + s.rnd.Intn(1000),
		Iteration: iteration,
	}
}
