package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/partstore/backend"
	"github.com/unkn0wn-root/partstore/codec"
	"github.com/unkn0wn-root/partstore/handle"
	"github.com/unkn0wn-root/partstore/internal/keyspace"
)

type token struct {
	Owner   string
	Balance int64
}

func newFactory(t *testing.T, dir string) *Factory[token] {
	t.Helper()
	sync := false // speed up tests; durability is Badger's problem here
	f, err := NewFactory[token](Config{Dir: dir, SyncWrites: &sync}, codec.Msgpack[token]{})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	t.Cleanup(func() { _ = f.Close(context.Background()) })
	return f
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	s, err := f.Open(ctx, "part-a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := []byte{1, 2, 3}
	in := token{Owner: "ada", Balance: 12}
	if err := s.SaveToken(ctx, key, handle.New(in)); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	out, err := s.GetToken(ctx, key)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDataRoundTripAndNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	s, err := f.Open(ctx, "part-a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := s.GetData(ctx, []byte("missing")); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("GetData on absent key: %v, want ErrNotFound", err)
	}

	key := []byte("blob")
	val := []byte{0, 1, 2, 0xff}
	if err := s.SaveData(ctx, key, val); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	got, err := s.GetData(ctx, key)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("GetData returned %v, want %v", got, val)
	}
}

func TestKindIsolation(t *testing.T) {
	// The same key as a token and as data addresses two independent values.
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	s, err := f.Open(ctx, "part-a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := []byte("shared")
	if err := s.SaveData(ctx, key, []byte("raw")); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	if err := s.SaveToken(ctx, key, handle.New(token{Owner: "t"})); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	got, err := s.GetData(ctx, key)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(got) != "raw" {
		t.Fatalf("token write clobbered data record: %q", got)
	}
	if _, err := s.GetToken(ctx, key); err != nil {
		t.Fatalf("GetToken: %v", err)
	}
}

func TestCorruptTokenBytes(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	st, err := f.Open(ctx, "part-a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := []byte("bad")
	// Plant bytes under the token slot that are not a valid encoding.
	impl := st.(*store[token])
	if err := impl.put(keyspace.Token(key), []byte{0xc1}); err != nil {
		t.Fatalf("plant corrupt bytes: %v", err)
	}

	if _, err := st.GetToken(ctx, key); !errors.Is(err, backend.ErrDecode) {
		t.Fatalf("GetToken on corrupt bytes: %v, want ErrDecode", err)
	}
}

func TestFactoryMemoizesPartition(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	a1, err := f.Open(ctx, "p")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	a2, err := f.Open(ctx, "p")
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("Open must reuse the store for an already-open partition")
	}
}

func TestPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	a, err := f.Open(ctx, "part-a")
	if err != nil {
		t.Fatalf("Open part-a: %v", err)
	}
	b, err := f.Open(ctx, "part-b")
	if err != nil {
		t.Fatalf("Open part-b: %v", err)
	}

	key := []byte{1, 2, 3}
	if err := a.SaveData(ctx, key, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	if _, err := b.GetData(ctx, key); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("partition B sees partition A's data: %v", err)
	}
}

func TestReopenDurability(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f1 := newFactory(t, dir)
	s1, err := f1.Open(ctx, "p")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.SaveData(ctx, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	if err := f1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2 := newFactory(t, dir)
	s2, err := f2.Open(ctx, "p")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.GetData(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("GetData after reopen: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("value lost across reopen: %q", got)
	}
}

func TestInvalidPartitionNames(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	for _, p := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := f.Open(ctx, p); err == nil {
			t.Fatalf("Open(%q) should fail", p)
		}
	}
}

func TestPoisonedHandleRejected(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, t.TempDir())

	s, err := f.Open(ctx, "p")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	h := handle.New(token{Owner: "x"})
	func() {
		defer func() { _ = recover() }()
		_ = h.Update(func(*token) { panic("writer crash") })
	}()

	if err := s.SaveToken(ctx, []byte("k"), h); !errors.Is(err, handle.ErrPoisoned) {
		t.Fatalf("SaveToken with poisoned handle: %v, want ErrPoisoned", err)
	}
	if _, err := s.GetToken(ctx, []byte("k")); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("poisoned save must not write: %v", err)
	}
}
