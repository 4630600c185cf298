package asm

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"rvm/internal/lexicon"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func assembleSource(t *testing.T, source string) (*Image, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.rvm")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write temp source: %s", err)
	}
	return Assemble(path)
}

func decodeSlot(t *testing.T, image *Image, offset int) (int32, int32, int32) {
	t.Helper()
	assert(t, offset+12 <= len(image.Bytes), "slot at %d out of range (len %d)", offset, len(image.Bytes))
	op := int32(binary.LittleEndian.Uint32(image.Bytes[offset : offset+4]))
	a := int32(binary.LittleEndian.Uint32(image.Bytes[offset+4 : offset+8]))
	b := int32(binary.LittleEndian.Uint32(image.Bytes[offset+8 : offset+12]))
	return op, a, b
}

func TestAssembleRejectsMalformedSource(t *testing.T) {
	_, err := assembleSource(t, "JMP 5\n")
	assert(t, err != nil, "expected a syntax error, got nil")
}

func TestAssembleSingleNullaryInstruction(t *testing.T) {
	image, err := assembleSource(t, "END\n")
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, len(image.Bytes) == 12, "expected a single 12-byte slot, got %d", len(image.Bytes))
	assert(t, image.StartAddress == 0, "expected start address 0, got %d", image.StartAddress)

	op, a, b := decodeSlot(t, image, 0)
	assert(t, op == lexicon.End.Bytecode(), "expected END opcode, got %d", op)
	assert(t, a == 0 && b == 0, "expected zero operands for END")
}

func TestAssembleAddPromotesToImmediateWithInteger(t *testing.T) {
	image, err := assembleSource(t, "+ io 65\n")
	assert(t, err == nil, "unexpected error: %s", err)

	op, a, b := decodeSlot(t, image, 0)
	assert(t, op == lexicon.AddImmediate.Bytecode(), "expected AddImmediate opcode, got %d", op)
	assert(t, a == lexicon.IO.Bytecode(), "expected io register operand, got %d", a)
	assert(t, b == 65, "expected immediate 65, got %d", b)
}

func TestAssembleAddKeepsRegisterForm(t *testing.T) {
	image, err := assembleSource(t, "+ reg_0 reg_1\n")
	assert(t, err == nil, "unexpected error: %s", err)

	op, _, b := decodeSlot(t, image, 0)
	assert(t, op == lexicon.Add.Bytecode(), "expected Add opcode, got %d", op)
	assert(t, b == lexicon.Reg1.Bytecode(), "expected register operand, got %d", b)
}

func TestAssembleResolvesBackwardLabel(t *testing.T) {
	image, err := assembleSource(t, "loop: + reg_0 1\n>0 reg_0 loop\nEND\n")
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, len(image.Bytes) == 36, "expected three 12-byte slots, got %d", len(image.Bytes))

	loopAddr, ok := image.Labels["loop"]
	assert(t, ok, "expected a label entry for loop")
	assert(t, loopAddr == 0, "expected loop at offset 0, got %d", loopAddr)

	op, _, b := decodeSlot(t, image, 12)
	assert(t, op == lexicon.GreaterThanZeroJump.Bytecode(), "expected >0 opcode, got %d", op)
	assert(t, b == int32(loopAddr), "expected jump operand to resolve to loop's address, got %d", b)
}

func TestAssembleByteDirectivePrecedesStartAddress(t *testing.T) {
	image, err := assembleSource(t, "msg: .byte 'H'\n.byte 'i'\nEND\n")
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, len(image.Bytes) == 2+12, "expected 2 data bytes plus one slot, got %d", len(image.Bytes))
	assert(t, image.StartAddress == 2, "expected start address past the data bytes, got %d", image.StartAddress)
	assert(t, image.Bytes[0] == 'H' && image.Bytes[1] == 'i', "expected raw ASCII bytes, got %v", image.Bytes[:2])
}

func TestAssembleWordDirectiveIsTwoBytesLittleEndian(t *testing.T) {
	image, err := assembleSource(t, ".word 300\nEND\n")
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, image.Bytes[0] == 44 && image.Bytes[1] == 1, "expected little-endian 300, got %v", image.Bytes[:2])
}

func TestAssembleFailsOnUnknownLabel(t *testing.T) {
	_, err := assembleSource(t, "JMP nowhere\n")
	assert(t, err != nil, "expected an unknown label error")
}

func TestAssembleOutputIOConversationProgram(t *testing.T) {
	// Grounded in the read-a-character, echo-a-character worked scenario:
	// reads one ASCII character from stdin into io and writes it back out.
	image, err := assembleSource(t, "ASCI\nASCO\nEND\n")
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, len(image.Bytes) == 36, "expected three slots, got %d", len(image.Bytes))

	op0, _, _ := decodeSlot(t, image, 0)
	op1, _, _ := decodeSlot(t, image, 12)
	assert(t, op0 == lexicon.InputASCII.Bytecode(), "expected ASCI opcode, got %d", op0)
	assert(t, op1 == lexicon.OutputASCII.Bytecode(), "expected ASCO opcode, got %d", op1)
}
