// Package asm implements the two-pass assembler: grouping tokens into
// commands and assigning label addresses in pass one, then emitting the
// little-endian bytecode image in pass two.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"rvm/internal/lexicon"
	"rvm/internal/syntax"
	"rvm/internal/token"
)

// ErrUnknownLabel is wrapped with the offending identifier whenever an
// instruction operand names a label with no entry in the label table.
var ErrUnknownLabel = errors.New("unknown label")

// Image is the assembler's output: the flat byte sequence to load into VM
// memory, the byte offset of the first instruction slot, and the label
// table used to produce it (kept for diagnostics; the image itself is
// self-contained and needs no further label resolution to run).
type Image struct {
	Bytes        []byte
	StartAddress int
	Labels       map[string]int
}

// Assemble verifies and assembles the source file at path. The file is
// tokenized twice: once for the syntax verifier's single pass, and again
// for the assembler's own two passes, since a Tokenizer is not restartable.
func Assemble(path string) (*Image, error) {
	verifyTz, err := token.New(path)
	if err != nil {
		return nil, err
	}
	verifyErr := syntax.Verify(verifyTz)
	verifyTz.Close()
	if verifyErr != nil {
		return nil, verifyErr
	}

	passOneTz, err := token.New(path)
	if err != nil {
		return nil, err
	}
	defer passOneTz.Close()

	commands, labels := groupCommands(passOneTz)

	return encode(commands, labels)
}

// groupCommands is assembly pass one: it walks the token stream, groups
// tokens into commands, and assigns each label the byte offset it will
// have in the final image. Data directives advance the running offset by
// their own width; instructions always advance it by one 12-byte slot.
func groupCommands(tz *token.Tokenizer) ([]command, map[string]int) {
	var commands []command
	labels := make(map[string]int)
	offset := 0
	current := command{}

	flush := func() {
		if current.complete() {
			commands = append(commands, current)
			offset += current.width()
			current = command{}
		}
	}

	for {
		tok, ok := tz.Next()
		if !ok {
			break
		}
		flush()

		switch tok.Kind {
		case token.KindInstruction:
			current.kind = kindInstruction
			current.instruction = tok.Instruction
		case token.KindDirective:
			current.kind = kindDirective
			current.directive = tok.Directive
		case token.KindLabel:
			if current.kind == kindUnknown {
				labels[tok.Label] = offset
				current.label = tok.Label
				current.hasLabel = true
			} else {
				current.addOperand(tok)
			}
		default:
			current.addOperand(tok)
		}

		// Add is promoted to AddImmediate the moment its second operand
		// turns out to be an integer rather than a register.
		if current.kind == kindInstruction && current.instruction == lexicon.Add &&
			current.operand2 != nil && current.operand2.Kind == token.KindInteger {
			current.instruction = lexicon.AddImmediate
		}
	}
	flush()

	return commands, labels
}

// encode is assembly pass two: it walks the grouped commands in source
// order and emits their byte encoding, recording the offset of the first
// instruction command as the image's start address.
func encode(commands []command, labels map[string]int) (*Image, error) {
	var out []byte
	startAddress := -1

	for _, c := range commands {
		switch c.kind {
		case kindDirective:
			switch c.directive {
			case lexicon.Byte:
				out = append(out, byte(c.operand1.Char))
			case lexicon.Word:
				var buf [2]byte
				binary.LittleEndian.PutUint16(buf[:], uint16(c.operand1.Int))
				out = append(out, buf[:]...)
			}

		case kindInstruction:
			if startAddress < 0 {
				startAddress = len(out)
			}

			op1, err := encodeOperand(c.operand1, labels)
			if err != nil {
				return nil, err
			}
			op2, err := encodeOperand(c.operand2, labels)
			if err != nil {
				return nil, err
			}

			var buf [instructionSlotBytes]byte
			binary.LittleEndian.PutUint32(buf[0:4], uint32(c.instruction.Bytecode()))
			binary.LittleEndian.PutUint32(buf[4:8], uint32(op1))
			binary.LittleEndian.PutUint32(buf[8:12], uint32(op2))
			out = append(out, buf[:]...)
		}
	}

	if startAddress < 0 {
		startAddress = len(out)
	}

	return &Image{Bytes: out, StartAddress: startAddress, Labels: labels}, nil
}

// encodeOperand converts one operand token into its 32-bit encoded form.
// A nil operand (absent) encodes as 0.
func encodeOperand(tok *token.Token, labels map[string]int) (int32, error) {
	if tok == nil {
		return 0, nil
	}

	switch tok.Kind {
	case token.KindCharacter:
		return int32(byte(tok.Char)), nil
	case token.KindInteger:
		return tok.Int, nil
	case token.KindRegister:
		return tok.Register.Bytecode(), nil
	case token.KindLabel:
		addr, ok := labels[tok.Label]
		if !ok {
			return 0, fmt.Errorf("%w: %s (line %d)", ErrUnknownLabel, tok.Label, tok.Line)
		}
		return int32(addr), nil
	default:
		return 0, nil
	}
}
