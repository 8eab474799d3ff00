package globalstate

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"golang.org/x/crypto/blake2b"

	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/transform"
	"github.com/casperlabs/execution-engine/value"
)

// snapshotCacheSize bounds the number of decoded root snapshots kept warm
// in memory; checkout of a cold root falls through to LevelDBStore.
const snapshotCacheSize = 256

// LevelDBStore is the persisted leaf layer backing GlobalState, implemented
// over goleveldb, the pack's embeddable key/value engine.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (creating if absent) a goleveldb database on disk.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// OpenMemLevelDBStore opens an in-memory goleveldb database: used for
// genesis construction and tests where nothing needs to survive the
// process.
func OpenMemLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) get(k []byte) ([]byte, bool, error) {
	v, err := s.db.Get(k, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *LevelDBStore) put(k, v []byte) error { return s.db.Put(k, v, nil) }

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error { return s.db.Close() }

// snapshot is a fully-materialized root: the complete key/value table
// reachable at that root. GlobalState stores snapshots whole rather than as
// trie-diffed nodes, trading space for the simplicity appropriate to a
// reference engine (the production Merkle trie is the out-of-scope
// collaborator this satisfies the contract of).
type snapshot struct {
	entries map[key.Key]value.Value
}

func (s *snapshot) Read(k key.Key) (value.Value, bool, error) {
	v, ok := s.entries[k.Normalize()]
	return v, ok, nil
}

// GlobalState is the concrete History implementation: an in-memory,
// LRU-cached, LevelDB-persisted map from Blake2b root hash to snapshot.
type GlobalState struct {
	mu        sync.Mutex
	store     *LevelDBStore
	cache     *lru.Cache
	emptyRoot Hash
}

// NewGlobalState constructs a GlobalState over store, seeding the empty
// root (the root of a snapshot with no entries).
func NewGlobalState(store *LevelDBStore) (*GlobalState, error) {
	cache, err := lru.New(snapshotCacheSize)
	if err != nil {
		return nil, err
	}
	gs := &GlobalState{store: store, cache: cache}
	empty := &snapshot{entries: map[key.Key]value.Value{}}
	root, err := gs.persist(empty)
	if err != nil {
		return nil, err
	}
	gs.emptyRoot = root
	gs.cache.Add(root, empty)
	return gs, nil
}

// EmptyRoot returns the root hash of the snapshot with no entries.
func (gs *GlobalState) EmptyRoot() Hash { return gs.emptyRoot }

// Checkout returns a read-only view of the snapshot at root.
func (gs *GlobalState) Checkout(root Hash) (StateReader, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	snap, err := gs.load(root)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &RootNotFoundError{Root: root}
	}
	return snap, nil
}

// Commit applies effects atop root and returns the resulting new root hash.
func (gs *GlobalState) Commit(root Hash, effects Effects) (Hash, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	base, err := gs.load(root)
	if err != nil {
		return Hash{}, err
	}
	if base == nil {
		return Hash{}, &RootNotFoundError{Root: root}
	}
	next := &snapshot{entries: make(map[key.Key]value.Value, len(base.entries)+len(effects.Transforms))}
	for k, v := range base.entries {
		next.entries[k] = v
	}
	for k, t := range effects.Transforms {
		nk := k.Normalize()
		switch t.Kind() {
		case transform.KindWrite:
			v, _ := t.AsWrite()
			next.entries[nk] = v
		case transform.KindAddInt, transform.KindAddKeys:
			// A deploy that only ever Add-ed a key (the common case for
			// purse-balance debits/credits) stages a bare AddInt/AddKeys,
			// never a Write: resolve it here against the value already
			// committed at nk, the same Compose(Write(current), t) step
			// TrackingCopy.Add/AddKeys perform locally against the cache.
			current, ok := base.entries[nk]
			if !ok {
				return Hash{}, fmt.Errorf("globalstate: %v transform at %s has no prior committed value to resolve against", t, nk)
			}
			composed := transform.Compose(transform.Write(current), t)
			v, ok := composed.AsWrite()
			if !ok {
				if failErr, isFail := composed.AsFailure(); isFail {
					return Hash{}, fmt.Errorf("globalstate: resolving %v at %s: %w", t, nk, failErr)
				}
				return Hash{}, fmt.Errorf("globalstate: resolving %v at %s: incompatible types", t, nk)
			}
			next.entries[nk] = v
		case transform.KindFailure:
			return Hash{}, fmt.Errorf("globalstate: refusing to commit a failed transform at %s", nk)
		case transform.KindIdentity:
			// no-op
		default:
			return Hash{}, fmt.Errorf("globalstate: unknown transform kind %v at %s", t.Kind(), nk)
		}
	}
	newRoot, err := gs.persist(next)
	if err != nil {
		return Hash{}, err
	}
	gs.cache.Add(newRoot, next)
	return newRoot, nil
}

// load returns the snapshot at root, checking the LRU cache first and
// falling through to the LevelDB-backed store, or nil if root is unknown.
func (gs *GlobalState) load(root Hash) (*snapshot, error) {
	if cached, ok := gs.cache.Get(root); ok {
		return cached.(*snapshot), nil
	}
	raw, ok, err := gs.store.get(rootIndexKey(root))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	snap, err := decodeSnapshot(gs.store, raw)
	if err != nil {
		return nil, err
	}
	gs.cache.Add(root, snap)
	return snap, nil
}

// persist serializes snap, derives its Blake2b root hash, and writes the
// encoded snapshot into the backing store as a single row keyed by that root.
func (gs *GlobalState) persist(snap *snapshot) (Hash, error) {
	encoded := encodeSnapshot(snap)
	digest := blake2b.Sum256(encoded)
	root := key.BytesToHash(digest[:])
	if err := gs.store.put(rootIndexKey(root), encoded); err != nil {
		return Hash{}, err
	}
	return root, nil
}

func rootIndexKey(root Hash) []byte {
	return append([]byte("gstate.root."), root.Bytes()...)
}

// encodeSnapshot serializes every entry as (key-bytes-len, key-bytes,
// value-bytes-len, value-bytes), sorted by key bytes for determinism so
// that equal snapshots always hash to the same root (genesis determinism,
// §8).
// snapshotEntry is a (key-bytes, value-bytes) pair awaiting serialization.
type snapshotEntry struct {
	kb []byte
	vb []byte
}

func encodeSnapshot(snap *snapshot) []byte {
	entries := make([]snapshotEntry, 0, len(snap.entries))
	for k, v := range snap.entries {
		entries = append(entries, snapshotEntry{kb: k.Bytes(), vb: v.Bytes()})
	}
	sort.Slice(entries, func(i, j int) bool { return lessBytes(entries[i].kb, entries[j].kb) })

	var out []byte
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(entries)))
	out = append(out, countBuf[:]...)
	for _, e := range entries {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(e.kb)))
		out = append(out, l[:]...)
		out = append(out, e.kb...)
		binary.BigEndian.PutUint32(l[:], uint32(len(e.vb)))
		out = append(out, l[:]...)
		out = append(out, e.vb...)
	}
	return out
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func decodeSnapshot(store *LevelDBStore, raw []byte) (*snapshot, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("globalstate: malformed snapshot encoding")
	}
	count := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	entries := make(map[key.Key]value.Value, count)
	for i := uint32(0); i < count; i++ {
		if len(raw) < 4 {
			return nil, fmt.Errorf("globalstate: truncated snapshot")
		}
		kl := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint32(len(raw)) < kl {
			return nil, fmt.Errorf("globalstate: truncated snapshot key")
		}
		kb := raw[:kl]
		raw = raw[kl:]
		k, err := key.FromBytes(kb)
		if err != nil {
			return nil, err
		}
		if len(raw) < 4 {
			return nil, fmt.Errorf("globalstate: truncated snapshot")
		}
		vl := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint32(len(raw)) < vl {
			return nil, fmt.Errorf("globalstate: truncated snapshot value")
		}
		v, err := value.FromBytes(raw[:vl])
		if err != nil {
			return nil, err
		}
		raw = raw[vl:]
		entries[k] = v
	}
	_ = store
	return &snapshot{entries: entries}, nil
}
