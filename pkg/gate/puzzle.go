package gate

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// DefaultCeiling bounds puzzle results when no ceiling is configured
const DefaultCeiling = 50

// firstOperandMax keeps the first operand small so puzzles stay solvable
// half asleep
const firstOperandMax = 10

// Op is a puzzle operator
type Op int

const (
	Add Op = iota
	Sub
)

func (o Op) String() string {
	if o == Sub {
		return "-"
	}
	return "+"
}

// Puzzle is an arithmetic challenge with a non-negative answer
type Puzzle struct {
	A  int
	B  int
	Op Op
}

// NewPuzzle picks addition or subtraction with equal probability and
// operands whose result lies in [0, ceiling]. r may be nil.
func NewPuzzle(r *rand.Rand, ceiling int) Puzzle {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := r.IntN(min(firstOperandMax, ceiling) + 1)
	if r.IntN(2) == 0 {
		return Puzzle{A: a, B: r.IntN(ceiling - a + 1), Op: Add}
	}
	return Puzzle{A: a, B: r.IntN(a + 1), Op: Sub}
}

// Answer is the expected result
func (p Puzzle) Answer() int {
	if p.Op == Sub {
		return p.A - p.B
	}
	return p.A + p.B
}

// Question renders the puzzle as shown to the user
func (p Puzzle) Question() string {
	return fmt.Sprintf("%d %s %d = ?", p.A, p.Op, p.B)
}

// Accepts reports whether input, ignoring surrounding whitespace, is the
// answer
func (p Puzzle) Accepts(input string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	return err == nil && n == p.Answer()
}
