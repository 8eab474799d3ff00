// Package value defines the Value sum type stored in global state
// (integers, byte strings, accounts, contracts and U512 amounts) and the
// Account/Contract/PurseID structures built on top of it.
package value

import "github.com/casperlabs/execution-engine/key"

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindInt32 Kind = iota
	KindBytes
	KindAccount
	KindContract
	KindU512
	KindNamedKeys
)

// Value is the sum type stored at a Key. Only one of the typed accessors
// matching Kind() is meaningful.
type Value struct {
	kind       Kind
	intVal     int32
	bytesVal   []byte
	accountVal *Account
	contractVal *Contract
	u512Val    U512
	namedKeys  map[string]key.Key
}

func (v Value) Kind() Kind { return v.kind }

// Int32Value wraps a plain integer, used by test fixtures and the session
// counter scenario in the spec's worked examples.
func Int32Value(n int32) Value { return Value{kind: KindInt32, intVal: n} }

func (v Value) AsInt32() (int32, bool) {
	if v.kind != KindInt32 {
		return 0, false
	}
	return v.intVal, true
}

// BytesValue wraps a byte string.
func BytesValue(b []byte) Value { return Value{kind: KindBytes, bytesVal: b} }

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytesVal, true
}

// AccountValue wraps an Account.
func AccountValue(a *Account) Value { return Value{kind: KindAccount, accountVal: a} }

func (v Value) AsAccount() (*Account, bool) {
	if v.kind != KindAccount {
		return nil, false
	}
	return v.accountVal, true
}

// ContractValue wraps a Contract.
func ContractValue(c *Contract) Value { return Value{kind: KindContract, contractVal: c} }

func (v Value) AsContract() (*Contract, bool) {
	if v.kind != KindContract {
		return nil, false
	}
	return v.contractVal, true
}

// U512Value wraps a U512 token amount.
func U512Value(u U512) Value { return Value{kind: KindU512, u512Val: u} }

func (v Value) AsU512() (U512, bool) {
	if v.kind != KindU512 {
		return U512{}, false
	}
	return v.u512Val, true
}

// NamedKeysValue wraps a named-keys map, the payload of an AddKeys transform.
func NamedKeysValue(m map[string]key.Key) Value { return Value{kind: KindNamedKeys, namedKeys: m} }

func (v Value) AsNamedKeys() (map[string]key.Key, bool) {
	if v.kind != KindNamedKeys {
		return nil, false
	}
	return v.namedKeys, true
}
