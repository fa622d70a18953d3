package pcode

import (
	"fmt"
	"strings"
)

// OpCode identifies a micro-operation. Values follow the numbering used by
// the translation engine, so they can be passed through unchanged.
type OpCode uint8

const (
	Copy           OpCode = iota + 1 // Copy one operand to another
	Load                             // Load from a pointer into a specified address space
	Store                            // Store at a pointer into a specified address space
	Branch                           // Always branch
	CBranch                          // Conditional branch
	BranchInd                        // Indirect branch (jumptable)
	Call                             // Call to an absolute address
	CallInd                          // Call through an indirect address
	CallOther                        // User-defined operation
	Return                           // Return from subroutine
	IntEqual                         // Integer comparison, equality (==)
	IntNotEqual                      // Integer comparison, in-equality (!=)
	IntSLess                         // Integer comparison, signed less-than (<)
	IntSLessEqual                    // Integer comparison, signed less-than-or-equal (<=)
	IntLess                          // Integer comparison, unsigned less-than (<)
	IntLessEqual                     // Integer comparison, unsigned less-than-or-equal (<=)
	IntZExt                          // Zero extension
	IntSExt                          // Sign extension
	IntAdd                           // Addition, signed or unsigned (+)
	IntSub                           // Subtraction, signed or unsigned (-)
	IntCarry                         // Test for unsigned carry
	IntSCarry                        // Test for signed carry
	IntSBorrow                       // Test for signed borrow
	Int2Comp                         // Twos complement
	IntNegate                        // Logical/bitwise negation (~)
	IntXor                           // Logical/bitwise exclusive-or (^)
	IntAnd                           // Logical/bitwise and (&)
	IntOr                            // Logical/bitwise or (|)
	IntLeft                          // Left shift (<<)
	IntRight                         // Right shift, logical (>>)
	IntSRight                        // Right shift, arithmetic (>>)
	IntMult                          // Integer multiplication, signed and unsigned (*)
	IntDiv                           // Integer division, unsigned (/)
	IntSDiv                          // Integer division, signed (/)
	IntRem                           // Remainder/modulo, unsigned (%)
	IntSRem                          // Remainder/modulo, signed (%)
	BoolNegate                       // Boolean negate (!)
	BoolXor                          // Boolean exclusive-or (^^)
	BoolAnd                          // Boolean and (&&)
	BoolOr                           // Boolean or (||)
	FloatEqual                       // Floating-point comparison, equality (==)
	FloatNotEqual                    // Floating-point comparison, in-equality (!=)
	FloatLess                        // Floating-point comparison, less-than (<)
	FloatLessEqual                   // Floating-point comparison, less-than-or-equal (<=)
	_                                // Unused slot
	FloatNaN                         // Not-a-number test (NaN)
	FloatAdd                         // Floating-point addition (+)
	FloatDiv                         // Floating-point division (/)
	FloatMult                        // Floating-point multiplication (*)
	FloatSub                         // Floating-point subtraction (-)
	FloatNeg                         // Floating-point negation (-)
	FloatAbs                         // Floating-point absolute value (abs)
	FloatSqrt                        // Floating-point square root (sqrt)
	FloatInt2Float                   // Convert an integer to a floating-point
	FloatFloat2Float                 // Convert between different floating-point sizes
	FloatTrunc                       // Round towards zero
	FloatCeil                        // Round towards +infinity
	FloatFloor                       // Round towards -infinity
	FloatRound                       // Round towards nearest
	MultiEqual                       // Phi-node operator
	Indirect                         // Copy with an indirect effect
	Piece                            // Concatenate
	SubPiece                         // Truncate
	Cast                             // Cast from one data-type to another
	PtrAdd                           // Index into an array ([])
	PtrSub                           // Drill down to a sub-field (->)
	SegmentOp                        // Look-up a segmented address
	CPoolRef                         // Recover a value from the constant pool
	New                              // Allocate a new object (new)
	Insert                           // Insert a bit-range
	Extract                          // Extract a bit-range
	PopCount                         // Count the 1-bits
	LZCount                          // Count the leading 0-bits
)

var opNames = [...]string{
	"BLANK", "COPY", "LOAD", "STORE",
	"BRANCH", "CBRANCH", "BRANCHIND", "CALL",
	"CALLIND", "CALLOTHER", "RETURN", "INT_EQUAL",
	"INT_NOTEQUAL", "INT_SLESS", "INT_SLESSEQUAL", "INT_LESS",
	"INT_LESSEQUAL", "INT_ZEXT", "INT_SEXT", "INT_ADD",
	"INT_SUB", "INT_CARRY", "INT_SCARRY", "INT_SBORROW",
	"INT_2COMP", "INT_NEGATE", "INT_XOR", "INT_AND",
	"INT_OR", "INT_LEFT", "INT_RIGHT", "INT_SRIGHT",
	"INT_MULT", "INT_DIV", "INT_SDIV", "INT_REM",
	"INT_SREM", "BOOL_NEGATE", "BOOL_XOR", "BOOL_AND",
	"BOOL_OR", "FLOAT_EQUAL", "FLOAT_NOTEQUAL", "FLOAT_LESS",
	"FLOAT_LESSEQUAL", "UNUSED1", "FLOAT_NAN", "FLOAT_ADD",
	"FLOAT_DIV", "FLOAT_MULT", "FLOAT_SUB", "FLOAT_NEG",
	"FLOAT_ABS", "FLOAT_SQRT", "INT2FLOAT", "FLOAT2FLOAT",
	"TRUNC", "CEIL", "FLOOR", "ROUND",
	"MULTIEQUAL", "INDIRECT", "PIECE", "SUBPIECE",
	"CAST", "PTRADD", "PTRSUB", "SEGMENTOP",
	"CPOOLREF", "NEW", "INSERT", "EXTRACT",
	"POPCOUNT", "LZCOUNT",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && op != 0 {
		return opNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", int(op))
}

// Valid reports whether op is part of the engine's operation set.
func (op OpCode) Valid() bool {
	return op >= Copy && op <= LZCount && op != FloatLessEqual+1
}

// ParseOpCode looks an operation up by its name, case-insensitively.
func ParseOpCode(name string) (OpCode, bool) {
	for i, n := range opNames {
		if i == 0 || i == int(FloatLessEqual+1) {
			continue
		}
		if strings.EqualFold(n, name) {
			return OpCode(i), true
		}
	}
	return 0, false
}

// IsBranch reports whether op transfers control.
func (op OpCode) IsBranch() bool {
	switch op {
	case Branch, CBranch, BranchInd, Call, CallInd, Return:
		return true
	}
	return false
}
