package value

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"

	"github.com/casperlabs/execution-engine/key"
)

// Bytes encodes v into a self-describing byte slice (a tag byte followed by
// a kind-specific payload), used by the global-state persistence layer to
// store snapshot entries. This is not the WASM-facing argument
// serialization (out of scope); it only needs to round-trip through this
// engine's own storage.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindInt32:
		b := make([]byte, 5)
		b[0] = byte(KindInt32)
		binary.BigEndian.PutUint32(b[1:], uint32(v.intVal))
		return b
	case KindBytes:
		b := make([]byte, 1+len(v.bytesVal))
		b[0] = byte(KindBytes)
		copy(b[1:], v.bytesVal)
		return b
	case KindU512:
		raw := v.u512Val.Big().Bytes()
		b := make([]byte, 1+2+len(raw))
		b[0] = byte(KindU512)
		binary.BigEndian.PutUint16(b[1:3], uint16(len(raw)))
		copy(b[3:], raw)
		return b
	case KindNamedKeys:
		return append([]byte{byte(KindNamedKeys)}, encodeNamedKeys(v.namedKeys)...)
	case KindAccount:
		return append([]byte{byte(KindAccount)}, encodeAccount(v.accountVal)...)
	case KindContract:
		return append([]byte{byte(KindContract)}, encodeContract(v.contractVal)...)
	default:
		return []byte{byte(v.kind)}
	}
}

// FromBytes decodes a byte slice produced by Bytes back into a Value.
func FromBytes(b []byte) (Value, error) {
	if len(b) == 0 {
		return Value{}, fmt.Errorf("value: empty encoding")
	}
	kind := Kind(b[0])
	payload := b[1:]
	switch kind {
	case KindInt32:
		if len(payload) != 4 {
			return Value{}, fmt.Errorf("value: malformed int32 encoding")
		}
		return Int32Value(int32(binary.BigEndian.Uint32(payload))), nil
	case KindBytes:
		out := make([]byte, len(payload))
		copy(out, payload)
		return BytesValue(out), nil
	case KindU512:
		if len(payload) < 2 {
			return Value{}, fmt.Errorf("value: malformed u512 encoding")
		}
		n := binary.BigEndian.Uint16(payload[:2])
		if len(payload) < 2+int(n) {
			return Value{}, fmt.Errorf("value: truncated u512 encoding")
		}
		return U512Value(U512FromBig(new(big.Int).SetBytes(payload[2 : 2+int(n)]))), nil
	case KindNamedKeys:
		m, err := decodeNamedKeys(payload)
		if err != nil {
			return Value{}, err
		}
		return NamedKeysValue(m), nil
	case KindAccount:
		a, err := decodeAccount(payload)
		if err != nil {
			return Value{}, err
		}
		return AccountValue(a), nil
	case KindContract:
		c, err := decodeContract(payload)
		if err != nil {
			return Value{}, err
		}
		return ContractValue(c), nil
	default:
		return Value{}, fmt.Errorf("value: unknown kind byte %d", b[0])
	}
}

func encodeNamedKeys(m map[string]key.Key) []byte {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	buf := make([]byte, 0, 4)
	var cnt [4]byte
	binary.BigEndian.PutUint32(cnt[:], uint32(len(names)))
	buf = append(buf, cnt[:]...)
	for _, n := range names {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(n)))
		buf = append(buf, l[:]...)
		buf = append(buf, n...)
		buf = append(buf, m[n].Bytes()...)
	}
	return buf
}

func decodeNamedKeys(b []byte) (map[string]key.Key, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("value: malformed named-keys encoding")
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	m := make(map[string]key.Key, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 4 {
			return nil, fmt.Errorf("value: truncated named-keys encoding")
		}
		l := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint32(len(b)) < l+65 {
			return nil, fmt.Errorf("value: truncated named-keys entry")
		}
		name := string(b[:l])
		b = b[l:]
		k, err := key.FromBytes(b[:65])
		if err != nil {
			return nil, err
		}
		b = b[65:]
		m[name] = k
	}
	return m, nil
}

func encodeAccount(a *Account) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, a.Addr.Bytes()...)
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], a.Nonce)
	buf = append(buf, nonce[:]...)
	buf = append(buf, a.MainPurse.Value().ID.Bytes()...)
	buf = append(buf, byte(a.MainPurse.Value().Rights))
	buf = append(buf, byte(a.ActionThresholds.Deployment))
	buf = append(buf, byte(a.ActionThresholds.KeyManagement))
	buf = append(buf, encodeNamedKeys(a.NamedKeys)...)
	var ac [4]byte
	binary.BigEndian.PutUint32(ac[:], uint32(len(a.AssociatedKeys)))
	buf = append(buf, ac[:]...)
	pubs := make([]key.PublicKey, 0, len(a.AssociatedKeys))
	for pk := range a.AssociatedKeys {
		pubs = append(pubs, pk)
	}
	sort.Slice(pubs, func(i, j int) bool { return pubs[i].Hex() < pubs[j].Hex() })
	for _, pk := range pubs {
		buf = append(buf, pk[:]...)
		buf = append(buf, byte(a.AssociatedKeys[pk]))
	}
	return buf
}

func decodeAccount(b []byte) (*Account, error) {
	if len(b) < 32+8+32+1+1+1 {
		return nil, fmt.Errorf("value: malformed account encoding")
	}
	addr := key.BytesToHash(b[:32])
	b = b[32:]
	nonce := binary.BigEndian.Uint64(b[:8])
	b = b[8:]
	purseID := key.BytesToHash(b[:32])
	b = b[32:]
	rights := key.AccessRights(b[0])
	b = b[1:]
	deployment := Weight(b[0])
	keyManagement := Weight(b[1])
	b = b[2:]
	namedKeys, err := decodeNamedKeys(b)
	if err != nil {
		return nil, err
	}
	// advance past the named-keys section we just decoded.
	nkLen := 4
	count := binary.BigEndian.Uint32(b[:4])
	_ = count
	for n := range namedKeys {
		nkLen += 4 + len(n) + 65
	}
	b = b[nkLen:]
	if len(b) < 4 {
		return nil, fmt.Errorf("value: truncated account encoding")
	}
	acCount := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	associated := make(map[key.PublicKey]Weight, acCount)
	for i := uint32(0); i < acCount; i++ {
		if len(b) < 32+1 {
			return nil, fmt.Errorf("value: truncated associated-keys entry")
		}
		var pk key.PublicKey
		copy(pk[:], b[:32])
		associated[pk] = Weight(b[32])
		b = b[33:]
	}
	return NewAccount(addr, nonce, namedKeys,
		NewPurseID(key.NewURef(purseID, rights)), associated,
		ActionThresholds{Deployment: deployment, KeyManagement: keyManagement}), nil
}

func encodeContract(c *Contract) []byte {
	buf := make([]byte, 0, len(c.ModuleBytes)+16)
	var mbl [4]byte
	binary.BigEndian.PutUint32(mbl[:], uint32(len(c.ModuleBytes)))
	buf = append(buf, mbl[:]...)
	buf = append(buf, c.ModuleBytes...)
	var pv [8]byte
	binary.BigEndian.PutUint64(pv[:], c.ProtocolVersion)
	buf = append(buf, pv[:]...)
	buf = append(buf, encodeNamedKeys(c.NamedKeys)...)
	return buf
}

func decodeContract(b []byte) (*Contract, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("value: malformed contract encoding")
	}
	mbl := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < mbl+8 {
		return nil, fmt.Errorf("value: truncated contract encoding")
	}
	moduleBytes := make([]byte, mbl)
	copy(moduleBytes, b[:mbl])
	b = b[mbl:]
	protocolVersion := binary.BigEndian.Uint64(b[:8])
	b = b[8:]
	namedKeys, err := decodeNamedKeys(b)
	if err != nil {
		return nil, err
	}
	return NewContract(moduleBytes, namedKeys, protocolVersion), nil
}
