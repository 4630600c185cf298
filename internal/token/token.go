// Package token turns source lines into a lazy stream of classified tokens.
package token

import (
	"fmt"

	"rvm/internal/lexicon"
)

// Kind identifies which field of a Token is meaningful.
type Kind int

const (
	KindCharacter Kind = iota
	KindInteger
	KindRegister
	KindLabel
	KindDirective
	KindInstruction
)

func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "a character"
	case KindInteger:
		return "an integer"
	case KindRegister:
		return "a register"
	case KindLabel:
		return "a label"
	case KindDirective:
		return "a directive"
	case KindInstruction:
		return "an instruction"
	default:
		return "an unknown token"
	}
}

// Token is one classified lexeme, annotated with the source line it came
// from. Only the field matching Kind is populated.
type Token struct {
	Kind Kind
	Line int

	Char        rune
	Int         int32
	Register    lexicon.Register
	Label       string
	Directive   lexicon.Directive
	Instruction lexicon.Instruction
}

// String renders a token the way diagnostics quote it: `Line 1: Expected
// a label but saw "5"` wants the "5", not "Integer(5)".
func (t Token) String() string {
	switch t.Kind {
	case KindCharacter:
		return fmt.Sprintf("'%c'", t.Char)
	case KindInteger:
		return fmt.Sprintf("%d", t.Int)
	case KindRegister:
		return t.Register.String()
	case KindLabel:
		return t.Label
	case KindDirective:
		return t.Directive.String()
	case KindInstruction:
		return t.Instruction.String()
	default:
		return "?"
	}
}
