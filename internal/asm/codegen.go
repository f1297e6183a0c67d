package asm

import (
	"errors"
	"fmt"
	"strconv"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a set of 'asm.Statement' and spits out their textual counterparts.
//
// The translation can be done without any additional data structure but the program.
type CodeGenerator struct {
	program []Statement // The set of statements to convert to Hack assembly text
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p []Statement) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translate each statement in the 'program' field to the Asm textual format.
//
// Each instruction will pass through the following step: evaluation, validation and
// then conversion to its textual representation (a string) so that it can be further
// elaborated by the caller (e.g. dumping to a file, runtime elaboration, ...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, statement := range cg.program {
		var generated string
		var err error

		switch tStatement := statement.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tStatement)
		case CInstruction:
			generated, err = cg.GenerateCInst(tStatement)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(tStatement)
		case Comment:
			generated, err = cg.GenerateComment(tStatement)
		default:
			err = fmt.Errorf("unrecognized statement type %T", statement)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// Specialized function to convert an A Instruction to the Asm format.
func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", errors.New("unable to produce empty A instruction")
	}
	// A raw address has only 15 bits available to index the Hack memory.
	if address, err := strconv.Atoi(stmt.Location); err == nil && (address < 0 || address >= 1<<15) {
		return "", fmt.Errorf("raw address '%s' out of range", stmt.Location)
	}

	return fmt.Sprintf("@%s", stmt.Location), nil
}

// Specialized function to convert a C Instruction to the Asm format.
func (cg *CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", errors.New("expected 'comp' directive in C Instruction")
	}

	if stmt.Dest != "" && stmt.Jump == "" {
		return fmt.Sprintf("%s=%s", stmt.Dest, stmt.Comp), nil
	}
	if stmt.Jump != "" && stmt.Dest == "" {
		return fmt.Sprintf("%s;%s", stmt.Comp, stmt.Jump), nil
	}

	return "", errors.New("expected either 'dest' or 'jump' directive in C Instruction")
}

// reservedSymbols are the Hack platform's predeclared A-instruction targets: the five VM
// pointer registers, the sixteen general-purpose registers, and the two memory-mapped I/O
// locations. A user-defined label can never shadow one of these.
var reservedSymbols = map[string]bool{
	"SP": true, "LCL": true, "ARG": true, "THIS": true, "THAT": true,
	"R0": true, "R1": true, "R2": true, "R3": true, "R4": true, "R5": true,
	"R6": true, "R7": true, "R8": true, "R9": true, "R10": true, "R11": true,
	"R12": true, "R13": true, "R14": true, "R15": true,
	"SCREEN": true, "KBD": true,
}

// Specialized function to convert a Label Declaration to the Asm format.
func (cg *CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if stmt.Name == "" {
		return "", errors.New("unable to produce empty label declaration")
	}
	if reservedSymbols[stmt.Name] {
		return "", fmt.Errorf("unable to override built-in label '%s'", stmt.Name)
	}

	return fmt.Sprintf("(%s)", stmt.Name), nil
}

// Specialized function to convert a Comment statement to the Asm format.
func (cg *CodeGenerator) GenerateComment(stmt Comment) (string, error) {
	return fmt.Sprintf("// %s", stmt.Text), nil
}
