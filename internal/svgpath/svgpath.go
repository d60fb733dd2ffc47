// Package svgpath handles the reduced SVG path instruction alphabet used by
// scene paths: parsing and formatting the whitespace-delimited token form,
// resolving instructions to absolute segments, and estimating bounds.
package svgpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownOp = errors.New("unknown path opcode")
	ErrMissingOp = errors.New("path operand without opcode")
	ErrArity     = errors.New("wrong number of path operands")
)

// Op is a path opcode. Lowercase opcodes are relative to the current point.
type Op string

const (
	MoveTo       Op = "M"
	MoveToRel    Op = "m"
	LineTo       Op = "L"
	LineToRel    Op = "l"
	QuadTo       Op = "Q"
	QuadToRel    Op = "q"
	SmoothQuad   Op = "T"
	SmoothQuadR  Op = "t"
	CubicTo      Op = "C"
	CubicToRel   Op = "c"
	SmoothCubic  Op = "S"
	SmoothCubicR Op = "s"
)

var arity = map[Op]int{
	MoveTo: 2, MoveToRel: 2,
	LineTo: 2, LineToRel: 2,
	QuadTo: 4, QuadToRel: 4,
	SmoothQuad: 2, SmoothQuadR: 2,
	CubicTo: 6, CubicToRel: 6,
	SmoothCubic: 4, SmoothCubicR: 4,
}

// Valid reports whether op belongs to the alphabet.
func (op Op) Valid() bool {
	_, ok := arity[op]
	return ok
}

// Relative reports whether op is a lowercase, relative opcode.
func (op Op) Relative() bool {
	return op != "" && op[0] >= 'a' && op[0] <= 'z'
}

// Arity returns the number of operands op takes.
func (op Op) Arity() int {
	return arity[op]
}

// Instruction is one opcode with its numeric operands, as x/y pairs.
type Instruction struct {
	Op   Op
	Args []float64
}

// I builds an Instruction.
func I(op Op, args ...float64) Instruction {
	return Instruction{Op: op, Args: args}
}

// Validate checks the opcode and its operand count.
func (in Instruction) Validate() error {
	if !in.Op.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOp, in.Op)
	}
	if want := in.Op.Arity(); len(in.Args) != want {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArity, in.Op, want, len(in.Args))
	}
	return nil
}

// Clone returns a deep copy.
func (in Instruction) Clone() Instruction {
	return Instruction{Op: in.Op, Args: append([]float64(nil), in.Args...)}
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(string(in.Op))
	for _, a := range in.Args {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
	}
	return sb.String()
}

// Format flattens instructions into a single whitespace-joined token stream.
// Numbers use the shortest representation that parses back exactly.
func Format(ins []Instruction) string {
	parts := make([]string, len(ins))
	for i, in := range ins {
		parts[i] = in.String()
	}
	return strings.Join(parts, " ")
}

// Parse tokenizes a whitespace-delimited path string. Each non-numeric token
// starts a new instruction; numeric tokens are operands of the preceding one.
func Parse(s string) ([]Instruction, error) {
	var out []Instruction
	var cur *Instruction

	for _, tok := range strings.Fields(s) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			if cur == nil {
				return nil, fmt.Errorf("%w: %q", ErrMissingOp, tok)
			}
			cur.Args = append(cur.Args, v)
			continue
		}

		op := Op(tok)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOp, tok)
		}
		out = append(out, Instruction{Op: op})
		cur = &out[len(out)-1]
	}

	for i, in := range out {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return out, nil
}

// Clone deep-copies an instruction sequence.
func Clone(ins []Instruction) []Instruction {
	out := make([]Instruction, len(ins))
	for i, in := range ins {
		out[i] = in.Clone()
	}
	return out
}
