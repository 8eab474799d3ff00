// Package trackingcopy implements the per-deploy transactional overlay
// described in the engine's component design: reads fall through to a
// historical state snapshot and are cached; writes/adds accumulate as an
// ordered transform log plus a per-key Op record, ready to be folded into
// a commit. Grounded on the slot-accessor style of kvstore.State
// (read-through cache, typed miss vs type-mismatch errors) and the method
// set of the upstream engine_state tracking copy (get_account,
// get_system_contract_info, get_purse_balance_key, get_purse_balance,
// handle_nonce, effect).
package trackingcopy

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/transform"
	"github.com/casperlabs/execution-engine/value"
)

// Sentinel errors distinct from a plain missing-key read: a key that
// exists but holds the wrong Value kind for the access being attempted.
var (
	ErrKeyNotFound  = errors.New("trackingcopy: key not found")
	ErrTypeMismatch = errors.New("trackingcopy: type mismatch")
	ErrPurseNotFound = errors.New("trackingcopy: purse not found")
)

// TrackingCopy is the single-owner, single-threaded overlay lent mutably to
// each of a deploy's three executor invocations in turn (§5: no cross-thread
// sharing of this handle).
type TrackingCopy struct {
	reader globalstate.StateReader
	cache  map[key.Key]value.Value
	ops    map[key.Key]transform.Op
	fns    []logEntry
}

// logEntry is one staged mutation, plus enough of the cache/ops state from
// immediately before the mutation to undo it: Rollback restores these
// rather than merely truncating the transform log, so a discarded phase
// cannot leave a stale value behind for a later phase to Read.
type logEntry struct {
	key key.Key
	t   transform.Transform

	prevCache value.Value
	hadCache  bool
	prevOp    transform.Op
	hadOp     bool
}

// New creates a TrackingCopy reading through to reader.
func New(reader globalstate.StateReader) *TrackingCopy {
	return &TrackingCopy{
		reader: reader,
		cache:  map[key.Key]value.Value{},
		ops:    map[key.Key]transform.Op{},
	}
}

func (tc *TrackingCopy) recordOp(k key.Key, op transform.Op) {
	nk := k.Normalize()
	if existing, ok := tc.ops[nk]; ok {
		tc.ops[nk] = existing.Join(op)
	} else {
		tc.ops[nk] = op
	}
}

// Read returns the value at k, populating the cache on miss. A key absent
// from both the cache and the underlying reader yields ErrKeyNotFound.
func (tc *TrackingCopy) Read(k key.Key) (value.Value, error) {
	nk := k.Normalize()
	if v, ok := tc.cache[nk]; ok {
		tc.recordOp(k, transform.OpRead)
		return v, nil
	}
	v, ok, err := tc.reader.Read(nk)
	if err != nil {
		return value.Value{}, fmt.Errorf("trackingcopy: %w", err)
	}
	if !ok {
		return value.Value{}, ErrKeyNotFound
	}
	tc.cache[nk] = v
	tc.recordOp(k, transform.OpRead)
	return v, nil
}

// Write unconditionally sets k to v, appending a Write transform to the log
// and updating the cache.
func (tc *TrackingCopy) Write(k key.Key, v value.Value) {
	nk := k.Normalize()
	prevCache, hadCache := tc.cache[nk]
	prevOp, hadOp := tc.ops[nk]
	tc.cache[nk] = v
	tc.recordOp(k, transform.OpWrite)
	tc.fns = append(tc.fns, logEntry{
		key: nk, t: transform.Write(v),
		prevCache: prevCache, hadCache: hadCache,
		prevOp: prevOp, hadOp: hadOp,
	})
}

// Add applies monoid-addition to the numeric value stored at k: the cached
// or underlying value must be a U512 or Int32, else ErrTypeMismatch. A key
// with no prior value is an error; genesis/session code must Write before
// it Adds.
func (tc *TrackingCopy) Add(k key.Key, delta *big.Int) error {
	current, err := tc.Read(k)
	if err != nil {
		return err
	}
	composed := transform.Compose(transform.Write(current), transform.AddInt(delta))
	newVal, ok := composed.AsWrite()
	if !ok {
		if failErr, isFail := composed.AsFailure(); isFail {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, failErr)
		}
		return ErrTypeMismatch
	}
	nk := k.Normalize()
	prevCache, hadCache := tc.cache[nk]
	prevOp, hadOp := tc.ops[nk]
	tc.cache[nk] = newVal
	tc.recordOp(k, transform.OpAdd)
	tc.fns = append(tc.fns, logEntry{
		key: nk, t: transform.AddInt(delta),
		prevCache: prevCache, hadCache: hadCache,
		prevOp: prevOp, hadOp: hadOp,
	})
	return nil
}

// AddKeys merges m into the named-keys map stored at k.
func (tc *TrackingCopy) AddKeys(k key.Key, m map[string]key.Key) error {
	current, err := tc.Read(k)
	if err != nil {
		return err
	}
	composed := transform.Compose(transform.Write(current), transform.AddKeys(m))
	newVal, ok := composed.AsWrite()
	if !ok {
		return ErrTypeMismatch
	}
	nk := k.Normalize()
	prevCache, hadCache := tc.cache[nk]
	prevOp, hadOp := tc.ops[nk]
	tc.cache[nk] = newVal
	tc.recordOp(k, transform.OpAdd)
	tc.fns = append(tc.fns, logEntry{
		key: nk, t: transform.AddKeys(m),
		prevCache: prevCache, hadCache: hadCache,
		prevOp: prevOp, hadOp: hadOp,
	})
	return nil
}

// GetAccount reads Key::Account(addr) and unwraps an Account, failing with
// ErrTypeMismatch if the stored value is some other Value kind.
func (tc *TrackingCopy) GetAccount(addr key.Hash) (*value.Account, error) {
	v, err := tc.Read(key.Account(addr))
	if err != nil {
		return nil, err
	}
	acc, ok := v.AsAccount()
	if !ok {
		return nil, ErrTypeMismatch
	}
	return acc, nil
}

// GetSystemContractInfo dereferences uref and returns the Contract stored
// there plus the normalized key it lives at.
func (tc *TrackingCopy) GetSystemContractInfo(uref key.URef) (*value.Contract, key.Key, error) {
	k := key.FromURef(uref)
	v, err := tc.Read(k)
	if err != nil {
		return nil, key.Key{}, err
	}
	c, ok := v.AsContract()
	if !ok {
		return nil, key.Key{}, ErrTypeMismatch
	}
	return c, k.Normalize(), nil
}

// mintSeed is a fixed local-key seed scoping the Mint's purse-balance
// mapping, one per engine (analogous to the Rust engine's per-Mint local
// namespace).
var mintSeed = key.BytesToHash([]byte("trackingcopy.mint.balance-map"))

// GetPurseBalanceKey resolves the balance key for purseUref via the Mint's
// local mapping Key::Local(mint_seed, purse_id): the purse URef's id is used
// as the suffix as-is, without being hashed again. mintURef is accepted for
// interface symmetry with the upstream contract even though this engine
// scopes the mapping under the single fixed mintSeed rather than per Mint URef.
func (tc *TrackingCopy) GetPurseBalanceKey(mintURef key.URef, purseUref key.URef) (key.Key, error) {
	_ = mintURef
	suffix := key.BytesToHash(purseUref.ID.Bytes())
	localKey := key.Local(mintSeed, suffix)
	v, err := tc.Read(localKey)
	if errors.Is(err, ErrKeyNotFound) {
		return key.Key{}, ErrPurseNotFound
	}
	if err != nil {
		return key.Key{}, err
	}
	bs, ok := v.AsBytes()
	if !ok || len(bs) != 1+key.HashLength*2 {
		return key.Key{}, ErrTypeMismatch
	}
	balanceKey, err := key.FromBytes(bs)
	if err != nil {
		return key.Key{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return balanceKey, nil
}

// BindPurseBalanceKey installs the local mapping purseUref -> balanceKey,
// the counterpart write GetPurseBalanceKey reads back. Used by the Mint
// when minting a new purse (at genesis).
func (tc *TrackingCopy) BindPurseBalanceKey(purseUref key.URef, balanceKey key.Key) {
	suffix := key.BytesToHash(purseUref.ID.Bytes())
	localKey := key.Local(mintSeed, suffix)
	tc.Write(localKey, value.BytesValue(balanceKey.Bytes()))
}

// GetPurseBalance reads the U512 stored at balanceKey.
func (tc *TrackingCopy) GetPurseBalance(balanceKey key.Key) (value.U512, error) {
	v, err := tc.Read(balanceKey)
	if err != nil {
		return value.U512{}, err
	}
	u, ok := v.AsU512()
	if !ok {
		return value.U512{}, ErrTypeMismatch
	}
	return u, nil
}

// HandleNonce enforces the strict +1 increment policy and, on success,
// writes the incremented account back into the overlay.
func (tc *TrackingCopy) HandleNonce(addr key.Hash, account *value.Account, nonce uint64) (*result.InvalidNonceError, error) {
	expected := account.Nonce + 1
	if nonce != expected {
		return &result.InvalidNonceError{Expected: expected, Found: nonce}, nil
	}
	updated := *account
	updated.Nonce = nonce
	tc.Write(key.Account(addr), value.AccountValue(&updated))
	*account = updated
	return nil, nil
}

// Mark returns a position in the transform log that EffectSince can later
// use to compute the delta recorded since this call. Executors use this to
// isolate a single phase's effects even though all three phases of a
// deploy share one TrackingCopy.
func (tc *TrackingCopy) Mark() int { return len(tc.fns) }

// EffectSince returns the composed transforms appended to the log since
// mark, with a derived Op per touched key (Write dominates Add).
func (tc *TrackingCopy) EffectSince(mark int) result.Effects {
	effects := result.NewEffects()
	for _, entry := range tc.fns[mark:] {
		if existing, ok := effects.Transforms[entry.key]; ok {
			effects.Transforms[entry.key] = transform.Compose(existing, entry.t)
		} else {
			effects.Transforms[entry.key] = entry.t
		}
	}
	for k, t := range effects.Transforms {
		if t.Kind() == transform.KindWrite {
			effects.Ops[k] = transform.OpWrite
		} else {
			effects.Ops[k] = transform.OpAdd
		}
	}
	return effects
}

// Rollback discards every log entry appended since mark, restoring the
// cache and op record to their pre-mark state for every key those entries
// mutated (in reverse order, so a key touched twice since mark unwinds
// correctly). Reads served from the cache during the rolled-back range are
// left untouched: they reflect real, unchanged prestate and must not be
// re-fetched. Used to discard a phase's staged transforms once its outcome
// is known (the forced-transfer policy and a failed session/finalize phase
// never commit their own writes).
func (tc *TrackingCopy) Rollback(mark int) {
	for i := len(tc.fns) - 1; i >= mark; i-- {
		e := tc.fns[i]
		if e.hadCache {
			tc.cache[e.key] = e.prevCache
		} else {
			delete(tc.cache, e.key)
		}
		if e.hadOp {
			tc.ops[e.key] = e.prevOp
		} else {
			delete(tc.ops, e.key)
		}
	}
	tc.fns = tc.fns[:mark]
}

// Effect returns the final Ops and composed Transforms accumulated by this
// overlay, folding the ordered log into a single map per key (later entries
// compose atop earlier ones, left to right).
func (tc *TrackingCopy) Effect() result.Effects {
	effects := result.NewEffects()
	for k, op := range tc.ops {
		effects.Ops[k] = op
	}
	for _, entry := range tc.fns {
		if existing, ok := effects.Transforms[entry.key]; ok {
			effects.Transforms[entry.key] = transform.Compose(existing, entry.t)
		} else {
			effects.Transforms[entry.key] = entry.t
		}
	}
	return effects
}
