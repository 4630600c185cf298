package vm

import (
	"encoding/binary"
	"fmt"

	"rvm/internal/lexicon"
)

// Run drives the fetch-decode-dispatch loop until End halts it or a fault
// aborts it. Output written through WithStdout is flushed before returning,
// even on error, so a caller sees partial output from a faulted program.
func (vm *VM) Run() (err error) {
	defer vm.flush()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSegmentationFault, r)
		}
	}()

	for {
		vm.state = Fetching
		pc := vm.registers[lexicon.PC]
		opcode, a, b, err := vm.fetch(pc)
		if err != nil {
			return err
		}

		instr, ok := lexicon.InstructionFromBytecode(opcode)
		if !ok {
			return fmt.Errorf("%w: opcode %d at address %d", ErrUnknownInstruction, opcode, pc)
		}

		vm.state = Executing
		halt, err := vm.dispatch(instr, a, b)
		if err != nil {
			return fmt.Errorf("%s at address %d: %w", instr, pc, err)
		}
		if halt {
			vm.state = Halted
			return nil
		}

		vm.registers[lexicon.PC] += instructionSlotBytes
	}
}

// fetch reads the 12-byte instruction slot at addr as (opcode, operand1,
// operand2), all little-endian signed 32-bit words.
func (vm *VM) fetch(addr int32) (opcode, a, b int32, err error) {
	if addr < 0 || int(addr)+instructionSlotBytes > len(vm.memory) {
		return 0, 0, 0, fmt.Errorf("%w: fetch at address %d", ErrSegmentationFault, addr)
	}
	slot := vm.memory[addr : addr+instructionSlotBytes]
	opcode = int32(binary.LittleEndian.Uint32(slot[0:4]))
	a = int32(binary.LittleEndian.Uint32(slot[4:8]))
	b = int32(binary.LittleEndian.Uint32(slot[8:12]))
	return opcode, a, b, nil
}

func (vm *VM) readByte(addr int32) (byte, error) {
	if addr < 0 || int(addr) >= len(vm.memory) {
		return 0, fmt.Errorf("%w: read at address %d", ErrSegmentationFault, addr)
	}
	return vm.memory[addr], nil
}

func (vm *VM) writeByte(addr int32, v byte) error {
	if addr < 0 || int(addr) >= len(vm.memory) {
		return fmt.Errorf("%w: write at address %d", ErrSegmentationFault, addr)
	}
	vm.memory[addr] = v
	return nil
}

func (vm *VM) readWord(addr int32) (int32, error) {
	if addr < 0 || int(addr)+4 > len(vm.memory) {
		return 0, fmt.Errorf("%w: read at address %d", ErrSegmentationFault, addr)
	}
	return int32(binary.LittleEndian.Uint32(vm.memory[addr : addr+4])), nil
}

func (vm *VM) writeWord(addr int32, v int32) error {
	if addr < 0 || int(addr)+4 > len(vm.memory) {
		return fmt.Errorf("%w: write at address %d", ErrSegmentationFault, addr)
	}
	binary.LittleEndian.PutUint32(vm.memory[addr:addr+4], uint32(v))
	return nil
}

func (vm *VM) register(r int32) (lexicon.Register, error) {
	reg, ok := lexicon.RegisterFromBytecode(r)
	if !ok {
		return 0, fmt.Errorf("%w: register %d", ErrIllegalOperation, r)
	}
	return reg, nil
}

// dispatch executes one instruction. The bool result reports whether the
// run loop should halt (true only for End); the caller advances PC by one
// instruction slot whenever it returns false with no error.
func (vm *VM) dispatch(instr lexicon.Instruction, a, b int32) (bool, error) {
	switch instr {
	case lexicon.End:
		return true, nil

	case lexicon.OutputInteger:
		fmt.Fprintf(vm.stdout, "%d", vm.registers[lexicon.IO])
		return false, nil

	case lexicon.OutputASCII:
		vm.stdout.WriteByte(byte(vm.registers[lexicon.IO]))
		return false, nil

	case lexicon.InputInteger:
		return false, vm.execInputInteger()

	case lexicon.InputASCII:
		return false, vm.execInputASCII()

	case lexicon.ConvertASCIIToInteger:
		v := vm.registers[lexicon.IO] - '0'
		if v < 0 || v > 9 {
			v = -1
		}
		vm.registers[lexicon.IO] = v
		return false, nil

	case lexicon.ConvertIntegerToASCII:
		v := vm.registers[lexicon.IO] + '0'
		if v < '0' || v > '9' {
			v = '0'
		}
		vm.registers[lexicon.IO] = v
		return false, nil

	case lexicon.Jump:
		vm.registers[lexicon.PC] = a - instructionSlotBytes
		return false, nil

	case lexicon.JumpRelative:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		vm.registers[lexicon.PC] = vm.registers[reg] - instructionSlotBytes
		return false, nil

	case lexicon.NonZeroJump, lexicon.GreaterThanZeroJump, lexicon.LessThanZeroJump, lexicon.CompareZeroJump:
		return false, vm.execConditionalJump(instr, a, b)

	case lexicon.LoadAddress:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		vm.registers[reg] = b
		return false, nil

	case lexicon.LoadByte:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		v, err := vm.readByte(b)
		if err != nil {
			return false, err
		}
		vm.registers[reg] = int32(v)
		return false, nil

	case lexicon.LoadWord:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		v, err := vm.readWord(b)
		if err != nil {
			return false, err
		}
		vm.registers[reg] = v
		return false, nil

	case lexicon.StoreByte:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		return false, vm.writeByte(b, byte(vm.registers[reg]))

	case lexicon.StoreWord:
		reg, err := vm.register(a)
		if err != nil {
			return false, err
		}
		return false, vm.writeWord(b, vm.registers[reg])

	case lexicon.Move:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] = vm.registers[src]
		return false, nil

	case lexicon.Add:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] += vm.registers[src]
		return false, nil

	case lexicon.AddImmediate:
		dst, err := vm.register(a)
		if err != nil {
			return false, err
		}
		vm.registers[dst] += b
		return false, nil

	case lexicon.Subtract:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] -= vm.registers[src]
		return false, nil

	case lexicon.Multiply:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] *= vm.registers[src]
		return false, nil

	case lexicon.Divide:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		if vm.registers[src] == 0 {
			return false, ErrDivisionByZero
		}
		vm.registers[dst] /= vm.registers[src]
		return false, nil

	case lexicon.And:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] = boolToWord(vm.registers[dst] != 0 && vm.registers[src] != 0)
		return false, nil

	case lexicon.Or:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] = boolToWord(vm.registers[dst] != 0 || vm.registers[src] != 0)
		return false, nil

	case lexicon.Compare:
		dst, src, err := vm.registerPair(a, b)
		if err != nil {
			return false, err
		}
		vm.registers[dst] = sign(vm.registers[dst] - vm.registers[src])
		return false, nil

	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownInstruction, instr)
	}
}

func (vm *VM) execConditionalJump(instr lexicon.Instruction, a, b int32) error {
	reg, err := vm.register(a)
	if err != nil {
		return err
	}
	v := vm.registers[reg]

	var taken bool
	switch instr {
	case lexicon.NonZeroJump:
		taken = v != 0
	case lexicon.GreaterThanZeroJump:
		taken = v > 0
	case lexicon.LessThanZeroJump:
		taken = v < 0
	case lexicon.CompareZeroJump:
		taken = v == 0
	}
	if taken {
		vm.registers[lexicon.PC] = b - instructionSlotBytes
	}
	return nil
}

func (vm *VM) registerPair(a, b int32) (lexicon.Register, lexicon.Register, error) {
	dst, err := vm.register(a)
	if err != nil {
		return 0, 0, err
	}
	src, err := vm.register(b)
	if err != nil {
		return 0, 0, err
	}
	return dst, src, nil
}

func boolToWord(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func sign(n int32) int32 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
