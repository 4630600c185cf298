package asm

import (
	"rvm/internal/lexicon"
	"rvm/internal/token"
)

// kind distinguishes what a Command carries: a data directive, a machine
// instruction, or nothing yet (still being grouped by the assembler).
type kind int

const (
	kindUnknown kind = iota
	kindDirective
	kindInstruction
)

// command groups the tokens that make up one source statement: an optional
// leading label, the directive or instruction that names it, and up to two
// operands. An absent operand is a nil *token.Token rather than a sentinel
// token kind.
type command struct {
	label    string
	hasLabel bool

	kind        kind
	directive   lexicon.Directive
	instruction lexicon.Instruction

	operand1 *token.Token
	operand2 *token.Token
}

// addOperand appends a token to the first empty operand slot.
func (c *command) addOperand(tok token.Token) {
	if c.operand1 == nil {
		c.operand1 = &tok
		return
	}
	c.operand2 = &tok
}

// complete reports whether every operand the command's kind requires has
// been filled — identical to the verifier's operand-count rules by
// construction, since both consult lexicon.OperandShape.
func (c *command) complete() bool {
	switch c.kind {
	case kindDirective:
		return c.operand1 != nil
	case kindInstruction:
		switch c.instruction.OperandShape() {
		case lexicon.ShapeNone:
			return true
		case lexicon.ShapeLabel, lexicon.ShapeRegister:
			return c.operand1 != nil
		default:
			return c.operand1 != nil && c.operand2 != nil
		}
	default:
		return false
	}
}

// width is the number of bytes this command occupies in the image: 12 for
// any instruction slot, the directive's own width for a data directive.
func (c *command) width() int {
	switch c.kind {
	case kindInstruction:
		return instructionSlotBytes
	case kindDirective:
		return c.directive.Width()
	default:
		return 0
	}
}

// instructionSlotBytes is the fixed width of one instruction slot: three
// little-endian signed 32-bit words (opcode, operand1, operand2).
const instructionSlotBytes = 12
