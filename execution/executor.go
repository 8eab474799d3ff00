package execution

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

// InstructionGas is the flat cost charged per executed instruction by
// MeteredExecutor. A real WASM executor would price this per the upstream
// cost schedule (out of scope); a flat cost is enough to exercise the
// orchestrator's gas-limit plumbing deterministically.
const InstructionGas result.Gas = 1

// Executor runs a preprocessed Module against a shared TrackingCopy under a
// gas limit, the contract the orchestrator drives three times per deploy.
type Executor interface {
	// Exec runs module as the deploying account in phase, charging gas
	// against gasLimit.
	Exec(module *Module, args [][]byte, phase result.Phase, gasLimit result.Gas, tc *trackingcopy.TrackingCopy) result.ExecutionResult
	// ExecDirect runs module as the system account (e.g. PoS's
	// finalize_payment entry point), with an effectively unbounded gas
	// limit.
	ExecDirect(module *Module, args [][]byte, tc *trackingcopy.TrackingCopy) result.ExecutionResult
}

// MeteredExecutor is the concrete instruction-list interpreter standing in for
// the out-of-scope WASM sandbox.
type MeteredExecutor struct{}

// NewMeteredExecutor constructs a MeteredExecutor.
func NewMeteredExecutor() *MeteredExecutor { return &MeteredExecutor{} }

func (e *MeteredExecutor) Exec(module *Module, args [][]byte, phase result.Phase, gasLimit result.Gas, tc *trackingcopy.TrackingCopy) result.ExecutionResult {
	return e.run(module, args, phase, gasLimit, tc)
}

func (e *MeteredExecutor) ExecDirect(module *Module, args [][]byte, tc *trackingcopy.TrackingCopy) result.ExecutionResult {
	return e.run(module, args, result.PhaseFinalize, result.Gas(^uint64(0)), tc)
}

func (e *MeteredExecutor) run(module *Module, args [][]byte, phase result.Phase, gasLimit result.Gas, tc *trackingcopy.TrackingCopy) result.ExecutionResult {
	mark := tc.Mark()
	var cost result.Gas

	for _, ins := range module.Instructions {
		cost += InstructionGas
		if cost > gasLimit {
			return result.Failed(tc.EffectSince(mark), gasLimit, &result.ExecutionError{Phase: phase, Cause: &result.GasLimitError{}})
		}

		switch ins.Op {
		case OpHalt:
			return result.Success(tc.EffectSince(mark), cost)

		case OpWrite:
			if len(ins.Args) != 2 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpWrite wants 2 args, got %d", len(ins.Args)))
			}
			k, err := key.FromBytes(ins.Args[0])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			if len(ins.Args[1]) != 4 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpWrite value must be 4 bytes"))
			}
			n := int32(binary.BigEndian.Uint32(ins.Args[1]))
			tc.Write(k, value.Int32Value(n))

		case OpAddInt:
			if len(ins.Args) != 2 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpAddInt wants 2 args, got %d", len(ins.Args)))
			}
			k, err := key.FromBytes(ins.Args[0])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			if len(ins.Args[1]) != 8 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpAddInt delta must be 8 bytes"))
			}
			delta := int64(binary.BigEndian.Uint64(ins.Args[1]))
			if err := tc.Add(k, big.NewInt(delta)); err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}

		case OpTransfer:
			if len(ins.Args) != 3 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpTransfer wants 3 args, got %d", len(ins.Args)))
			}
			fromKey, err := key.FromBytes(ins.Args[0])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			toKey, err := key.FromBytes(ins.Args[1])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			if len(ins.Args[2]) != 8 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpTransfer amount must be 8 bytes"))
			}
			amount := int64(binary.BigEndian.Uint64(ins.Args[2]))
			if err := tc.Add(fromKey, big.NewInt(-amount)); err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			if err := tc.Add(toKey, big.NewInt(amount)); err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}

		case OpTransferArg:
			if len(ins.Args) != 2 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpTransferArg wants 2 baked args, got %d", len(ins.Args)))
			}
			if len(args) < 1 || len(args[0]) != 8 {
				return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: OpTransferArg requires an 8-byte runtime amount argument"))
			}
			fromKey, err := key.FromBytes(ins.Args[0])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			toKey, err := key.FromBytes(ins.Args[1])
			if err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			amount := int64(binary.BigEndian.Uint64(args[0]))
			if err := tc.Add(fromKey, big.NewInt(-amount)); err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}
			if err := tc.Add(toKey, big.NewInt(amount)); err != nil {
				return e.fail(tc, mark, cost, phase, err)
			}

		case OpTrap:
			msg := "trap"
			if len(ins.Args) == 1 {
				msg = string(ins.Args[0])
			}
			return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: trapped: %s", msg))

		default:
			return e.fail(tc, mark, cost, phase, fmt.Errorf("execution: unknown opcode %d", ins.Op))
		}
	}

	return result.Success(tc.EffectSince(mark), cost)
}

func (e *MeteredExecutor) fail(tc *trackingcopy.TrackingCopy, mark int, cost result.Gas, phase result.Phase, cause error) result.ExecutionResult {
	return result.Failed(tc.EffectSince(mark), cost, &result.ExecutionError{Phase: phase, Cause: cause})
}
