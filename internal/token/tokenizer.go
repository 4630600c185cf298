package token

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rvm/internal/lexicon"
)

// Tokenizer is a restartable-by-construction, single-pass lazy stream over
// a source file. It is not itself restartable: a caller that needs to walk
// the file twice (the assembler re-reads after the verifier's single pass)
// constructs a second Tokenizer over the same path.
type Tokenizer struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
	pending []Token
}

// New opens path and prepares to tokenize it line by line.
func New(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Tokenizer{file: f, scanner: bufio.NewScanner(f)}, nil
}

// Close releases the underlying file handle.
func (t *Tokenizer) Close() error {
	return t.file.Close()
}

// Next returns the next token in the stream. The second return value is
// false once the stream is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	for len(t.pending) == 0 {
		if !t.scanner.Scan() {
			return Token{}, false
		}
		t.line++
		t.pending = tokenizeLine(t.scanner.Text(), t.line)
	}

	tok := t.pending[0]
	t.pending = t.pending[1:]
	return tok, true
}

func tokenizeLine(line string, lineNumber int) []Token {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	fields := strings.Fields(line)
	tokens := make([]Token, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, classify(field, lineNumber))
	}
	return tokens
}

// classify applies the decision list from the lexical model, in order:
// reserved words, then character literals, then integers, then labels.
func classify(field string, line int) Token {
	if d, ok := lexicon.DirectiveByMnemonic(field); ok {
		return Token{Kind: KindDirective, Line: line, Directive: d}
	}
	if i, ok := lexicon.InstructionByMnemonic(field); ok {
		return Token{Kind: KindInstruction, Line: line, Instruction: i}
	}
	if r, ok := lexicon.RegisterByMnemonic(field); ok {
		return Token{Kind: KindRegister, Line: line, Register: r}
	}

	if len(field) >= 3 && field[0] == '\'' && field[len(field)-1] == '\'' {
		runes := []rune(field)
		if len(runes) == 3 {
			return Token{Kind: KindCharacter, Line: line, Char: runes[1]}
		}
	}

	if n, err := strconv.ParseInt(field, 10, 32); err == nil {
		return Token{Kind: KindInteger, Line: line, Int: int32(n)}
	}

	// A label definition conventionally carries a trailing colon ("loop:");
	// a label reference to the same identifier never does ("loop"). Strip
	// it so both sites produce the same identifier and share one table
	// entry.
	if len(field) > 1 && field[len(field)-1] == ':' {
		field = field[:len(field)-1]
	}

	return Token{Kind: KindLabel, Line: line, Label: field}
}
