package vm

import (
	"fmt"
	"strconv"

	"go.kestrel.dev/vmtranslator/internal/asm"
)

// ----------------------------------------------------------------------------
// Vm CodeWriter

// The CodeWriter is the core emission engine: it takes a 'vm.Operation' (already
// classified by the Parser) and produces its 'asm.Statement' sequence counterpart.
//
// It consumes the already-typed 'vm.Operation' values the Parser hands out, and carries
// state across the whole output: the current unit (for 'static' references), the current
// enclosing function (for label scoping), and two monotone counters (comparison labels,
// call return sites) that must stay unique across every unit the Driver feeds it.
type CodeWriter struct {
	unit        string // current_unit_name: qualifies 'static' segment references
	function    string // enclosing function name: qualifies Label/Goto/IfGoto targets
	boolCounter uint32 // bumped once per comparison, names BOOL<n>/ENDBOOL<n>
	callCounter uint32 // bumped once per 'call', names <f>RET<n>
}

// NewCodeWriter returns a CodeWriter with both counters at their documented zero value.
func NewCodeWriter() *CodeWriter {
	return &CodeWriter{}
}

// SetUnit is called exactly once per VM translation unit, before any of its commands are
// emitted. It resets the label-scoping fallback: until the unit's first 'function'
// command (if any), Label/Goto/IfGoto qualify against the unit name itself, matching how
// test programs like BasicLoop.vm use labels with no enclosing function declaration.
func (cw *CodeWriter) SetUnit(name string) {
	cw.unit = name
	cw.function = name
}

// scope returns the symbol prefix current Label/Goto/IfGoto targets are qualified with.
func (cw *CodeWriter) scope() string {
	return cw.function
}

// ----------------------------------------------------------------------------
// Bootstrap

// WriteBootstrap emits the fixed preamble: SP <- 256, then an unconditional 'call
// Sys.init 0'. Must run exactly once, before any unit's commands.
func (cw *CodeWriter) WriteBootstrap() []asm.Statement {
	program := []asm.Statement{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	return append(program, cw.WriteCall(FuncCallOp{Name: "Sys.init", NArgs: 0})...)
}

// ----------------------------------------------------------------------------
// Shared instruction fragments
//
// Named after the CodeWriter methods in the Python reference this is grounded on
// (tradutor8.py's pop_stack_to_D / push_D_to_stack / decrement_SP / increment_SP /
// set_A_to_stack) so the emission logic below reads the same way line for line.

func aInst(location string) asm.Statement { return asm.AInstruction{Location: location} }
func cInst(dest, comp, jump string) asm.Statement {
	return asm.CInstruction{Dest: dest, Comp: comp, Jump: jump}
}

// decrementSP: SP <- SP - 1
func decrementSP() []asm.Statement {
	return []asm.Statement{aInst("SP"), cInst("M", "M-1", "")}
}

// incrementSP: SP <- SP + 1
func incrementSP() []asm.Statement {
	return []asm.Statement{aInst("SP"), cInst("M", "M+1", "")}
}

// setAToStackTop: A <- SP (i.e. the address of the current top-of-stack slot)
func setAToStackTop() []asm.Statement {
	return []asm.Statement{aInst("SP"), cInst("A", "M", "")}
}

// popStackToD: decrement SP, then D <- *SP. Leaves A pointing at the popped slot.
func popStackToD() []asm.Statement {
	program := decrementSP()
	program = append(program, aInst("SP"), cInst("A", "M", ""), cInst("D", "M", ""))
	return program
}

// pushDToStack: *SP <- D, then increment SP.
func pushDToStack() []asm.Statement {
	program := setAToStackTop()
	program = append(program, cInst("M", "D", ""))
	return append(program, incrementSP()...)
}

// ----------------------------------------------------------------------------
// Arithmetic

// WriteArithmetic emits the instruction sequence for one of the nine arithmetic/logical/
// comparison operators. Binary operators pop the top into a scratch and rewrite the new
// top in place; unary operators rewrite the top in place directly; comparisons branch on
// the signed difference of the two top values. Overflow of that subtraction (when the two
// operands straddle the 16-bit signed range) is an accepted, unguarded limitation matched
// exactly from the reference implementation.
func (cw *CodeWriter) WriteArithmetic(op ArithmeticOp) ([]asm.Statement, error) {
	switch {
	case BinaryOps[op.Operation]:
		return cw.writeBinaryOp(op.Operation), nil
	case UnaryOps[op.Operation]:
		return cw.writeUnaryOp(op.Operation), nil
	case CompareOps[op.Operation]:
		return cw.writeCompareOp(op.Operation), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operator %q", op.Operation)
	}
}

var binaryComp = map[ArithOpType]string{Add: "M+D", Sub: "M-D", And: "M&D", Or: "M|D"}

func (cw *CodeWriter) writeBinaryOp(op ArithOpType) []asm.Statement {
	program := popStackToD() // D <- y (the operand pushed last)
	program = append(program, decrementSP()...)
	program = append(program, setAToStackTop()...) // A <- address of x (new top)
	program = append(program, cInst("M", binaryComp[op], ""))
	return append(program, incrementSP()...)
}

var unaryComp = map[ArithOpType]string{Neg: "-M", Not: "!M"}

func (cw *CodeWriter) writeUnaryOp(op ArithOpType) []asm.Statement {
	program := decrementSP()
	program = append(program, setAToStackTop()...)
	program = append(program, cInst("M", unaryComp[op], ""))
	return append(program, incrementSP()...)
}

var compareJump = map[ArithOpType]string{Eq: "JEQ", Gt: "JGT", Lt: "JLT"}

func (cw *CodeWriter) writeCompareOp(op ArithOpType) []asm.Statement {
	then := fmt.Sprintf("BOOL%d", cw.boolCounter)
	end := fmt.Sprintf("ENDBOOL%d", cw.boolCounter)
	cw.boolCounter++

	program := popStackToD() // D <- y
	program = append(program, decrementSP()...)
	program = append(program, setAToStackTop()...) // A <- address of x
	program = append(program, cInst("D", "M-D", ""))
	program = append(program, aInst(then), cInst("", "D", compareJump[op]))

	program = append(program, setAToStackTop()...)
	program = append(program, cInst("M", "0", ""))
	program = append(program, aInst(end), cInst("", "0", "JMP"))

	program = append(program, asm.LabelDecl{Name: then})
	program = append(program, setAToStackTop()...)
	program = append(program, cInst("M", "-1", ""))

	program = append(program, asm.LabelDecl{Name: end})
	return append(program, incrementSP()...)
}

// ----------------------------------------------------------------------------
// Push / Pop

// segmentBase maps local/argument/this/that to their RAM pointer symbol.
var segmentBase = map[SegmentType]string{
	Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
}

// resolveAddress leaves the effective address for 'segment[index]' in the A register (or,
// for 'constant', the literal value itself). Grounded on tradutor8.py's resolve_address.
func (cw *CodeWriter) resolveAddress(segment SegmentType, index uint16) ([]asm.Statement, error) {
	switch segment {
	case Constant:
		return []asm.Statement{aInst(strconv.Itoa(int(index)))}, nil

	case Static:
		return []asm.Statement{aInst(fmt.Sprintf("%s.%d", cw.unit, index))}, nil

	case Pointer:
		if index > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", index)
		}
		return []asm.Statement{aInst(fmt.Sprintf("R%d", 3+index))}, nil

	case Temp:
		if index > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", index)
		}
		return []asm.Statement{aInst(fmt.Sprintf("R%d", 5+index))}, nil

	case Local, Argument, This, That:
		return []asm.Statement{
			aInst(segmentBase[segment]),
			cInst("D", "M", ""),
			aInst(strconv.Itoa(int(index))),
			cInst("A", "D+A", ""),
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized segment %q", segment)
	}
}

// WritePush emits: resolve address, D <- value (literal for constant, memory otherwise),
// push D.
func (cw *CodeWriter) WritePush(op MemoryOp) ([]asm.Statement, error) {
	program, err := cw.resolveAddress(op.Segment, op.Offset)
	if err != nil {
		return nil, err
	}

	if op.Segment == Constant {
		program = append(program, cInst("D", "A", ""))
	} else {
		program = append(program, cInst("D", "M", ""))
	}
	return append(program, pushDToStack()...), nil
}

// WritePop emits: resolve address into R13 (to survive the pop's clobbering of A), pop
// top into D, store D at *R13. Popping to 'constant' is undefined per spec and rejected.
func (cw *CodeWriter) WritePop(op MemoryOp) ([]asm.Statement, error) {
	if op.Segment == Constant {
		return nil, fmt.Errorf("cannot pop to virtual segment 'constant'")
	}

	program, err := cw.resolveAddress(op.Segment, op.Offset)
	if err != nil {
		return nil, err
	}

	program = append(program, cInst("D", "A", ""), aInst("R13"), cInst("M", "D", ""))
	program = append(program, popStackToD()...)
	return append(program, aInst("R13"), cInst("A", "M", ""), cInst("M", "D", "")), nil
}

// WriteMemoryOp dispatches a MemoryOp to WritePush or WritePop.
func (cw *CodeWriter) WriteMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Push:
		return cw.WritePush(op)
	case Pop:
		return cw.WritePop(op)
	default:
		return nil, fmt.Errorf("unrecognized memory operation %q", op.Operation)
	}
}

// ----------------------------------------------------------------------------
// Labels, Goto, If-Goto

// WriteLabel emits the declaration '(<scope>$<label>)'.
func (cw *CodeWriter) WriteLabel(op LabelOp) []asm.Statement {
	return []asm.Statement{asm.LabelDecl{Name: fmt.Sprintf("%s$%s", cw.scope(), op.Name)}}
}

// WriteGoto emits an unconditional or conditional jump to '<scope>$<label>'. The VM's
// boolean 'true' is all-ones but any nonzero value takes the conditional branch (JNE),
// matching the VM's definition of falsy as exactly zero.
func (cw *CodeWriter) WriteGoto(op GotoOp) []asm.Statement {
	target := fmt.Sprintf("%s$%s", cw.scope(), op.Label)

	if op.Jump == Unconditional {
		return []asm.Statement{aInst(target), cInst("", "0", "JMP")}
	}

	program := popStackToD()
	return append(program, aInst(target), cInst("", "D", "JNE"))
}

// ----------------------------------------------------------------------------
// Function definition

// WriteFuncDecl emits the function's global label followed by NLocal zero-initialized
// local slots, and updates the enclosing-function scope used by subsequent labels.
// Precondition: the caller has already repositioned LCL to SP (see WriteCall).
func (cw *CodeWriter) WriteFuncDecl(op FuncDecl) []asm.Statement {
	cw.function = op.Name

	program := []asm.Statement{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		program = append(program, cInst("D", "0", ""))
		program = append(program, pushDToStack()...)
	}
	return program
}

// ----------------------------------------------------------------------------
// Call

// WriteCall emits the full call protocol: push a unique return-address label, push the
// caller's four frame pointers, reposition ARG/LCL, jump to the callee, declare the
// return-site label. Step order matters: ARG is computed from the post-push SP.
func (cw *CodeWriter) WriteCall(op FuncCallOp) []asm.Statement {
	ret := fmt.Sprintf("%sRET%d", op.Name, cw.callCounter)
	cw.callCounter++

	program := []asm.Statement{aInst(ret), cInst("D", "A", "")}
	program = append(program, pushDToStack()...)

	for _, base := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program, aInst(base), cInst("D", "M", ""))
		program = append(program, pushDToStack()...)
	}

	program = append(program, aInst("SP"), cInst("D", "M", ""))
	program = append(program, aInst("LCL"), cInst("M", "D", ""))

	program = append(program, aInst(strconv.Itoa(int(op.NArgs)+5)), cInst("D", "D-A", ""))
	program = append(program, aInst("ARG"), cInst("M", "D", ""))

	program = append(program, aInst(op.Name), cInst("", "0", "JMP"))
	program = append(program, asm.LabelDecl{Name: ret})
	return program
}

// ----------------------------------------------------------------------------
// Return

// WriteReturn emits the return protocol: anchor the caller's frame in R13, save the
// return address in R14 before it can be clobbered, place the return value at *ARG,
// reposition SP, restore THAT/THIS/ARG/LCL (in that order, closest to FRAME first),
// then jump through the saved return address.
func (cw *CodeWriter) WriteReturn(ReturnOp) []asm.Statement {
	const frame, retAddr = "R13", "R14"

	program := []asm.Statement{aInst("LCL"), cInst("D", "M", ""), aInst(frame), cInst("M", "D", "")}
	program = append(program,
		aInst(frame), cInst("D", "M", ""), aInst("5"), cInst("D", "D-A", ""),
		cInst("A", "D", ""), cInst("D", "M", ""), aInst(retAddr), cInst("M", "D", ""),
	)

	program = append(program, popStackToD()...)
	program = append(program, aInst("ARG"), cInst("A", "M", ""), cInst("M", "D", ""))

	program = append(program, aInst("ARG"), cInst("D", "M", ""), aInst("SP"), cInst("M", "D+1", ""))

	offset := 1
	for _, dest := range []string{"THAT", "THIS", "ARG", "LCL"} {
		program = append(program,
			aInst(frame), cInst("D", "M", ""), aInst(strconv.Itoa(offset)), cInst("D", "D-A", ""),
			cInst("A", "D", ""), cInst("D", "M", ""), aInst(dest), cInst("M", "D", ""),
		)
		offset++
	}

	return append(program, aInst(retAddr), cInst("A", "M", ""), cInst("", "0", "JMP"))
}

// ----------------------------------------------------------------------------
// Dispatch

// Write routes a single classified VM Operation to the matching emission method. This is
// the CodeWriter's single entry point, called once per command by the Driver.
func (cw *CodeWriter) Write(op Operation) ([]asm.Statement, error) {
	switch concrete := op.(type) {
	case MemoryOp:
		return cw.WriteMemoryOp(concrete)
	case ArithmeticOp:
		return cw.WriteArithmetic(concrete)
	case LabelOp:
		return cw.WriteLabel(concrete), nil
	case GotoOp:
		return cw.WriteGoto(concrete), nil
	case FuncDecl:
		return cw.WriteFuncDecl(concrete), nil
	case FuncCallOp:
		return cw.WriteCall(concrete), nil
	case ReturnOp:
		return cw.WriteReturn(concrete), nil
	default:
		return nil, fmt.Errorf("internal error: unhandled operation type %T", op)
	}
}
