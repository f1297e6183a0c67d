package vm

import (
	"fmt"
)

// ----------------------------------------------------------------------------
// Disassembler

// Takes a 'vm.Program' and spits out its VM source text counterpart.
//
// This is the inverse of the Parser: it exists so the Driver can offer a round-trip
// diagnostic ('-print-ir' style) without requiring a second, independent reader of the
// original '.vm' files. The translation needs no additional state beyond the program
// itself — unlike the CodeWriter, scope qualification never crosses this boundary since
// the VM text format has no notion of a qualified/mangled label.
type Disassembler struct {
	program Program // The set of modules to convert back to VM source text
}

// Initializes and returns to the caller a brand new 'Disassembler' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewDisassembler(p Program) Disassembler {
	return Disassembler{program: p}
}

// Translates each operation in every module back to its VM source line.
//
// Each instruction will pass through the following step: evaluation, validation and then
// conversion to its string representation, keyed by the owning unit name so the caller
// can compare it against the original per-unit source.
func (d *Disassembler) Disassemble() (map[string][]string, error) {
	out := map[string][]string{}

	for unit, module := range d.program {
		for _, operation := range module {
			line, err := d.GenerateOperation(operation)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", unit, err)
			}
			out[unit] = append(out[unit], line)
		}
	}

	return out, nil
}

// GenerateOperation dispatches a single classified Operation to its matching Generate*
// method. Exposed separately from Disassemble so a caller (the Driver's per-command
// source echo) can re-derive one operation's VM text without disassembling a whole unit.
func (d *Disassembler) GenerateOperation(operation Operation) (string, error) {
	switch concrete := operation.(type) {
	case MemoryOp:
		return d.GenerateMemoryOp(concrete)
	case ArithmeticOp:
		return d.GenerateArithmeticOp(concrete)
	case LabelOp:
		return d.GenerateLabelOp(concrete)
	case GotoOp:
		return d.GenerateGotoOp(concrete)
	case FuncDecl:
		return d.GenerateFuncDecl(concrete)
	case ReturnOp:
		return d.GenerateReturnOp(concrete)
	case FuncCallOp:
		return d.GenerateFuncCallOp(concrete)
	default:
		return "", fmt.Errorf("unrecognized operation type %T", operation)
	}
}

// Specialized function to convert a 'MemoryOp' operation to the VM format.
func (d *Disassembler) GenerateMemoryOp(op MemoryOp) (string, error) {
	// Bound checking on segments that do have an upperbound to the allowed offsets
	if op.Segment == Pointer && op.Offset > 1 {
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
	}

	return fmt.Sprintf("%s %s %d", string(op.Operation), string(op.Segment), op.Offset), nil
}

// Specialized function to convert an 'ArithmeticOp' operation to the VM format.
func (d *Disassembler) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// Specialized function to convert a 'LabelOp' operation to the VM format.
func (d *Disassembler) GenerateLabelOp(op LabelOp) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty label declaration")
	}

	return fmt.Sprintf("label %s", op.Name), nil
}

// Specialized function to convert a 'GotoOp' operation to the VM format.
func (d *Disassembler) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", fmt.Errorf("unable to produce empty jump label")
	}

	return fmt.Sprintf("%s %s", string(op.Jump), op.Label), nil
}

// Specialized function to convert a 'FuncDecl' operation to the VM format.
func (d *Disassembler) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function declaration")
	}

	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

// Specialized function to convert a 'ReturnOp' operation to the VM format.
func (d *Disassembler) GenerateReturnOp(op ReturnOp) (string, error) {
	return "return", nil
}

// Specialized function to convert a 'FuncCallOp' operation to the VM format.
func (d *Disassembler) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function call")
	}

	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}
