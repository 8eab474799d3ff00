package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

func newTestCopy(t *testing.T) *trackingcopy.TrackingCopy {
	store, err := globalstate.OpenMemLevelDBStore()
	require.NoError(t, err)
	gs, err := globalstate.NewGlobalState(store)
	require.NoError(t, err)
	reader, err := gs.Checkout(gs.EmptyRoot())
	require.NoError(t, err)
	return trackingcopy.New(reader)
}

func TestEncodeDecodeModuleRoundTrip(t *testing.T) {
	k := key.HashKey(key.Seed("k"))
	m := &Module{Instructions: []Instruction{WriteInstr(k, 7), HaltInstr()}}
	decoded, err := ScriptPreprocessor{}.Preprocess(Encode(m))
	require.NoError(t, err)
	assert.Len(t, decoded.Instructions, 2)
	assert.Equal(t, OpWrite, decoded.Instructions[0].Op)
	assert.Equal(t, OpHalt, decoded.Instructions[1].Op)
}

func TestExecWriteAndHalt(t *testing.T) {
	tc := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))
	m := &Module{Instructions: []Instruction{WriteInstr(k, 99), HaltInstr()}}

	res := NewMeteredExecutor().Exec(m, nil, result.PhaseSession, 10, tc)
	require.True(t, res.Ok())
	assert.Equal(t, result.Gas(2), res.Cost)

	v, err := tc.Read(k)
	require.NoError(t, err)
	n, _ := v.AsInt32()
	assert.Equal(t, int32(99), n)
}

func TestExecGasLimitExceeded(t *testing.T) {
	tc := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))
	m := &Module{Instructions: []Instruction{WriteInstr(k, 1), WriteInstr(k, 2), HaltInstr()}}

	res := NewMeteredExecutor().Exec(m, nil, result.PhaseSession, 1, tc)
	assert.False(t, res.Ok())
	var execErr *result.ExecutionError
	require.ErrorAs(t, res.Error, &execErr)
	var gasErr *result.GasLimitError
	assert.ErrorAs(t, execErr, &gasErr)
}

func TestExecTrap(t *testing.T) {
	tc := newTestCopy(t)
	m := &Module{Instructions: []Instruction{TrapInstr("boom")}}
	res := NewMeteredExecutor().Exec(m, nil, result.PhasePayment, 10, tc)
	assert.False(t, res.Ok())
}

func TestExecTransferArgUsesRuntimeAmount(t *testing.T) {
	tc := newTestCopy(t)
	from := key.HashKey(key.Seed("from"))
	to := key.HashKey(key.Seed("to"))
	tc.Write(from, value.U512Value(value.NewU512(100)))
	tc.Write(to, value.U512Value(value.NewU512(0)))

	m := &Module{Instructions: []Instruction{TransferArgInstr(from, to), HaltInstr()}}
	res := NewMeteredExecutor().ExecDirect(m, [][]byte{MotesArg(40)}, tc)
	require.True(t, res.Ok())

	fromVal, _ := tc.Read(from)
	toVal, _ := tc.Read(to)
	fromU, _ := fromVal.AsU512()
	toU, _ := toVal.AsU512()
	assert.Equal(t, value.NewU512(60), fromU)
	assert.Equal(t, value.NewU512(40), toU)
}
