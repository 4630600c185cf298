// Package syntax walks a token stream once and reports the first operand-
// shape violation it finds, or success.
package syntax

import (
	"errors"
	"fmt"

	"rvm/internal/lexicon"
	"rvm/internal/token"
)

// ErrUnexpectedEOF is returned when the stream ends while an instruction or
// directive still expects an operand.
var ErrUnexpectedEOF = errors.New("Unexpected end of file")

func diagnostic(expected string, tok token.Token) error {
	return fmt.Errorf("Line %d: Expected %s but saw %q", tok.Line, expected, tok.String())
}

// Verify consumes tz once, top to bottom. It returns nil on a well-formed
// program, or a single diagnostic error naming the first violation.
func Verify(tz *token.Tokenizer) error {
	tok, ok := tz.Next()
	prevWasLabel := false
	for ok {
		switch tok.Kind {
		case token.KindLabel:
			if prevWasLabel {
				return diagnostic("a label, directive, or instruction", tok)
			}
			prevWasLabel = true
			tok, ok = tz.Next()
			continue

		case token.KindDirective:
			if err := verifyDirective(tz, tok); err != nil {
				return err
			}

		case token.KindInstruction:
			if err := verifyInstruction(tz, tok); err != nil {
				return err
			}

		default:
			return diagnostic("a label, directive, or instruction", tok)
		}

		prevWasLabel = false
		tok, ok = tz.Next()
	}
	return nil
}

func verifyDirective(tz *token.Tokenizer, dirTok token.Token) error {
	next, ok := tz.Next()
	if !ok {
		return ErrUnexpectedEOF
	}

	switch dirTok.Directive {
	case lexicon.Byte:
		if next.Kind != token.KindCharacter {
			return diagnostic("an ASCII character", next)
		}
	case lexicon.Word:
		if next.Kind != token.KindInteger {
			return diagnostic("an integer", next)
		}
	}
	return nil
}

func verifyInstruction(tz *token.Tokenizer, instrTok token.Token) error {
	shape := instrTok.Instruction.OperandShape()
	if shape == lexicon.ShapeNone {
		return nil
	}

	op1, ok := tz.Next()
	if !ok {
		return ErrUnexpectedEOF
	}

	switch shape {
	case lexicon.ShapeLabel:
		if op1.Kind != token.KindLabel {
			return diagnostic("a label", op1)
		}
		return nil

	case lexicon.ShapeRegister:
		if op1.Kind != token.KindRegister {
			return diagnostic("a register", op1)
		}
		return nil

	case lexicon.ShapeRegisterLabel:
		if op1.Kind != token.KindRegister {
			return diagnostic("a register", op1)
		}
		op2, ok := tz.Next()
		if !ok {
			return ErrUnexpectedEOF
		}
		if op2.Kind != token.KindLabel {
			return diagnostic("a label", op2)
		}
		return nil

	case lexicon.ShapeRegisterRegister:
		if op1.Kind != token.KindRegister {
			return diagnostic("a register", op1)
		}
		op2, ok := tz.Next()
		if !ok {
			return ErrUnexpectedEOF
		}
		if op2.Kind != token.KindRegister {
			return diagnostic("a register", op2)
		}
		return nil

	case lexicon.ShapeRegisterRegisterOrInteger:
		if op1.Kind != token.KindRegister {
			return diagnostic("a register", op1)
		}
		op2, ok := tz.Next()
		if !ok {
			return ErrUnexpectedEOF
		}
		if op2.Kind != token.KindRegister && op2.Kind != token.KindInteger {
			return diagnostic("a register or an integer", op2)
		}
		return nil
	}

	return nil
}
