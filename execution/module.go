// Package execution implements the Executor/Preprocessor contract the
// orchestrator drives three times per deploy. The WASM sandbox itself is
// out of scope for this engine; in its place this package provides a
// concrete metered interpreter for a small bytecode whose instructions
// carry their own arguments (there is no operand stack), so the orchestrator and its tests have something real to run
// end to end. Grounded on the Context/Handler dispatch shape of
// sysaction.Execute and the snapshot/gas-accounting shape of the
// Krypper-L1-Core Executor.
package execution

import (
	"encoding/binary"
	"fmt"

	"github.com/casperlabs/execution-engine/key"
)

// OpCode identifies an instruction in a Module's program.
type OpCode byte

const (
	// OpHalt terminates the program successfully.
	OpHalt OpCode = iota
	// OpWrite sets a key to a literal int32 value. Args: key bytes (65),
	// int32 value (4 bytes, big-endian).
	OpWrite
	// OpAddInt adds a signed delta to the value stored at a key. Args: key
	// bytes (65), int64 delta (8 bytes, big-endian).
	OpAddInt
	// OpTransfer moves amount motes from one purse balance key to another:
	// debits the first, credits the second. Args: from-key (65), to-key
	// (65), amount (8 bytes, big-endian uint64 motes).
	OpTransfer
	// OpTrap aborts the program with an execution error.
	OpTrap
	// OpTransferArg moves an amount supplied as the call's first runtime
	// argument (8 bytes, big-endian uint64 motes) from one purse balance
	// key to another. Args (baked into the module): from-key (65),
	// to-key (65). This is the instruction PoS's installed finalize_payment
	// entry point is built from: the purses are fixed at genesis, the
	// settled amount varies per deploy.
	OpTransferArg
)

// Instruction is one step of a Module's program.
type Instruction struct {
	Op   OpCode
	Args [][]byte
}

// Module is a preprocessed, ready-to-run program.
type Module struct {
	Instructions []Instruction
}

// Preprocessor decodes raw code bytes into a Module, rejecting malformed
// encodings (no gas check is made), and deserializes already-installed contract module bytes (no
// revalidation needed, matching the upstream split between preprocess and
// deserialize).
type Preprocessor interface {
	Preprocess(raw []byte) (*Module, error)
	Deserialize(raw []byte) (*Module, error)
}

// ScriptPreprocessor parses the tiny bytecode format Encode produces:
// uint32 instruction count, then for each instruction a opcode byte,
// uint32 arg count, and for each arg a uint32 length-prefixed blob.
type ScriptPreprocessor struct{}

func (ScriptPreprocessor) Preprocess(raw []byte) (*Module, error) {
	return decodeModule(raw)
}

func (ScriptPreprocessor) Deserialize(raw []byte) (*Module, error) {
	return decodeModule(raw)
}

// Encode serializes m back into the bytecode format Preprocess/Deserialize
// accept, used by genesis and tests to construct payment/session/PoS
// module bytes.
func Encode(m *Module) []byte {
	var out []byte
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(m.Instructions)))
	out = append(out, count[:]...)
	for _, ins := range m.Instructions {
		out = append(out, byte(ins.Op))
		var argc [4]byte
		binary.BigEndian.PutUint32(argc[:], uint32(len(ins.Args)))
		out = append(out, argc[:]...)
		for _, a := range ins.Args {
			var l [4]byte
			binary.BigEndian.PutUint32(l[:], uint32(len(a)))
			out = append(out, l[:]...)
			out = append(out, a...)
		}
	}
	return out
}

func decodeModule(raw []byte) (*Module, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("execution: malformed module, too short")
	}
	count := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	m := &Module{Instructions: make([]Instruction, 0, count)}
	for i := uint32(0); i < count; i++ {
		if len(raw) < 5 {
			return nil, fmt.Errorf("execution: truncated instruction header")
		}
		op := OpCode(raw[0])
		argc := binary.BigEndian.Uint32(raw[1:5])
		raw = raw[5:]
		args := make([][]byte, 0, argc)
		for j := uint32(0); j < argc; j++ {
			if len(raw) < 4 {
				return nil, fmt.Errorf("execution: truncated argument length")
			}
			l := binary.BigEndian.Uint32(raw[:4])
			raw = raw[4:]
			if uint32(len(raw)) < l {
				return nil, fmt.Errorf("execution: truncated argument")
			}
			args = append(args, raw[:l])
			raw = raw[l:]
		}
		m.Instructions = append(m.Instructions, Instruction{Op: op, Args: args})
	}
	return m, nil
}

// WriteInstr builds an OpWrite instruction setting k to an int32 literal.
func WriteInstr(k key.Key, n int32) Instruction {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], uint32(n))
	return Instruction{Op: OpWrite, Args: [][]byte{k.Bytes(), v[:]}}
}

// AddIntInstr builds an OpAddInt instruction adding delta to the value at k.
func AddIntInstr(k key.Key, delta int64) Instruction {
	var d [8]byte
	binary.BigEndian.PutUint64(d[:], uint64(delta))
	return Instruction{Op: OpAddInt, Args: [][]byte{k.Bytes(), d[:]}}
}

// TransferInstr builds an OpTransfer instruction moving amount motes from
// the balance at fromKey to the balance at toKey.
func TransferInstr(fromKey, toKey key.Key, amount uint64) Instruction {
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], amount)
	return Instruction{Op: OpTransfer, Args: [][]byte{fromKey.Bytes(), toKey.Bytes(), a[:]}}
}

// HaltInstr builds a terminal OpHalt instruction.
func HaltInstr() Instruction { return Instruction{Op: OpHalt} }

// TrapInstr builds an OpTrap instruction that aborts the program with msg.
func TrapInstr(msg string) Instruction { return Instruction{Op: OpTrap, Args: [][]byte{[]byte(msg)}} }

// TransferArgInstr builds an OpTransferArg instruction moving the amount
// supplied as the call's first runtime argument from fromKey to toKey.
func TransferArgInstr(fromKey, toKey key.Key) Instruction {
	return Instruction{Op: OpTransferArg, Args: [][]byte{fromKey.Bytes(), toKey.Bytes()}}
}

// MotesArg encodes amount as the runtime argument OpTransferArg reads.
func MotesArg(amount uint64) []byte {
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], amount)
	return a[:]
}
