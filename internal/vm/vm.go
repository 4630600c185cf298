// Package vm implements the bytecode interpreter: a fixed register file and
// flat memory buffer, fetching and dispatching one 12-byte instruction slot
// at a time until End halts it or a fault aborts it.
package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"rvm/internal/lexicon"
)

// DefaultMemoryBytes is the size of the flat memory buffer the bytecode
// image is loaded into when no WithMemoryBytes option overrides it.
const DefaultMemoryBytes = 10 * 1024 * 1024

// DefaultIOBufferSize is the buffered-I/O window size used for console
// input and output when no WithIOBufferSize option overrides it.
const DefaultIOBufferSize = 4096

// instructionSlotBytes mirrors the assembler's fixed instruction width: an
// opcode word plus two operand words, each a little-endian signed 32-bit int.
const instructionSlotBytes = 12

// State is one of the three phases of the run loop.
type State int

const (
	Fetching State = iota
	Executing
	Halted
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Executing:
		return "executing"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Sentinel runtime faults. All of them are fatal: they abort the run loop
// and propagate to the caller. An InputInteger parse failure is not one of
// them; it prints a diagnostic and the run continues.
var (
	ErrSegmentationFault  = errors.New("segmentation fault")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrUnknownInstruction = errors.New("instruction not recognized")
	ErrIllegalOperation   = errors.New("illegal operation")
)

// VM holds the register file and memory owned exclusively by one run.
type VM struct {
	registers [lexicon.NumRegisters]int32
	memory    []byte

	state State

	stdin  *bufio.Reader
	stdout *bufio.Writer
}

// buildConfig accumulates Option settings before the buffered readers and
// writers are constructed, so WithIOBufferSize can size them regardless of
// the order the caller supplies options in.
type buildConfig struct {
	memoryBytes int
	ioBufBytes  int
	stdin       io.Reader
	stdout      io.Writer
}

// Option configures a VM at construction time.
type Option func(*buildConfig)

// WithMemoryBytes overrides the size of the flat memory buffer.
func WithMemoryBytes(n int) Option {
	return func(c *buildConfig) {
		c.memoryBytes = n
	}
}

// WithIOBufferSize overrides the buffer size used for console input and
// output, in place of DefaultIOBufferSize.
func WithIOBufferSize(n int) Option {
	return func(c *buildConfig) {
		c.ioBufBytes = n
	}
}

// WithStdin overrides the reader InputInteger and InputASCII read lines from.
func WithStdin(r io.Reader) Option {
	return func(c *buildConfig) {
		c.stdin = r
	}
}

// WithStdout overrides the writer OutputInteger and OutputASCII write to.
func WithStdout(w io.Writer) Option {
	return func(c *buildConfig) {
		c.stdout = w
	}
}

// New constructs a VM, copies code into the start of memory, and sets PC to
// startAddress. Registers start zeroed; code must fit within the memory
// buffer (the default buffer is large enough for any image the assembler
// reasonably produces, but a custom WithMemoryBytes can undersize it).
func New(code []byte, startAddress int, opts ...Option) (*VM, error) {
	cfg := &buildConfig{
		memoryBytes: DefaultMemoryBytes,
		ioBufBytes:  DefaultIOBufferSize,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	vm := &VM{
		memory: make([]byte, cfg.memoryBytes),
		stdin:  bufio.NewReaderSize(cfg.stdin, cfg.ioBufBytes),
		stdout: bufio.NewWriterSize(cfg.stdout, cfg.ioBufBytes),
	}

	if len(code) > len(vm.memory) {
		return nil, fmt.Errorf("%w: image of %d bytes exceeds %d-byte memory", ErrSegmentationFault, len(code), len(vm.memory))
	}
	copy(vm.memory, code)
	vm.registers[lexicon.PC] = int32(startAddress)

	return vm, nil
}

// State reports the VM's current run-loop phase.
func (vm *VM) State() State {
	return vm.state
}

// Register reads a register's current value; intended for tests and
// diagnostics rather than the dispatch loop itself, which indexes the
// array directly.
func (vm *VM) Register(r lexicon.Register) int32 {
	return vm.registers[r]
}

func (vm *VM) flush() {
	vm.stdout.Flush()
}
