package syntax

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"rvm/internal/token"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func verifySource(t *testing.T, source string) error {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.rvm")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write temp source: %s", err)
	}
	tz, err := token.New(path)
	assert(t, err == nil, "unexpected error opening tokenizer: %s", err)
	defer tz.Close()
	return Verify(tz)
}

func TestVerifyAcceptsWellFormedProgram(t *testing.T) {
	err := verifySource(t, "loop: + reg_0 3\n>0 reg_0 loop\nOUT\nEND\n")
	assert(t, err == nil, "expected no error, got %s", err)
}

func TestVerifyRejectsIntegerOperandToJump(t *testing.T) {
	err := verifySource(t, "JMP 5\n")
	assert(t, err != nil, "expected an error")
	assert(t, err.Error() == `Line 1: Expected a label but saw "5"`, "got %q", err.Error())
}

func TestVerifyRejectsConsecutiveLabels(t *testing.T) {
	err := verifySource(t, "a: b: END\n")
	assert(t, err != nil, "expected an error")
}

func TestVerifyDetectsPrematureEOF(t *testing.T) {
	err := verifySource(t, "MOV reg_0\n")
	assert(t, err != nil, "expected an error")
	assert(t, err.Error() == "Unexpected end of file", "got %q", err.Error())
}

func TestVerifySucceedsAtEOFAfterNullaryInstruction(t *testing.T) {
	err := verifySource(t, "OUT")
	assert(t, err == nil, "expected no error, got %s", err)
}

func TestVerifyRejectsWrongDirectiveOperand(t *testing.T) {
	err := verifySource(t, ".byte 5\n")
	assert(t, err != nil, "expected an error")
	assert(t, err.Error() == `Line 1: Expected an ASCII character but saw "5"`, "got %q", err.Error())

	err = verifySource(t, ".word 'x'\n")
	assert(t, err != nil, "expected an error")
	assert(t, err.Error() == `Line 1: Expected an integer but saw "'x'"`, "got %q", err.Error())
}

func TestVerifyAcceptsAddWithImmediate(t *testing.T) {
	err := verifySource(t, "+ io 65\n")
	assert(t, err == nil, "expected no error, got %s", err)
}

func TestVerifyAcceptsAddWithRegister(t *testing.T) {
	err := verifySource(t, "+ reg_0 reg_1\n")
	assert(t, err == nil, "expected no error, got %s", err)
}

func TestVerifyRejectsUnknownLeadingToken(t *testing.T) {
	err := verifySource(t, "'x' END\n")
	assert(t, err != nil, "expected an error")
}
