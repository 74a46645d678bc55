package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestPathExpressionExpand(t *testing.T) {
	p := NewPathExpression("/var/lib/pgbackrest")

	cases := map[string]string{
		"<repo>/archive/demo": "/var/lib/pgbackrest/archive/demo",
		"<repo>":              "/var/lib/pgbackrest",
		"backup/demo":         "/var/lib/pgbackrest/backup/demo",
		"/absolute/path":      "/absolute/path",
	}
	for in, want := range cases {
		if got := p.Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFeatureHas(t *testing.T) {
	f := FeaturePathSync | FeatureMove
	if !f.Has(FeaturePathSync) {
		t.Error("expected FeaturePathSync set")
	}
	if f.Has(FeatureHardLink) {
		t.Error("did not expect FeatureHardLink set")
	}
}

// memStore is a minimal in-memory Interface whose Move always reports
// sameFilesystem=false without error — the posix "cross-device, caller
// must copy" case — so MoveOrCopy's fallback path can be exercised
// without a real filesystem.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Info(_ context.Context, path string, _ Level) (Info, error) {
	b, ok := m.data[path]
	if !ok {
		return Info{}, ErrNotExist
	}
	return Info{Name: path, Exists: true, Size: int64(len(b))}, nil
}

func (m *memStore) List(context.Context, string, Level) ([]Info, error) { return nil, nil }

func (m *memStore) NewRead(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.data[path]
	if !ok {
		return nil, ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) NewWrite(_ context.Context, path string, _ WriteOptions) (io.WriteCloser, error) {
	return &memWriter{store: m, path: path}, nil
}

func (m *memStore) PathCreate(context.Context, string) error  { return nil }
func (m *memStore) PathRemove(context.Context, string, bool) error { return nil }
func (m *memStore) PathSync(context.Context, string) error    { return nil }

func (m *memStore) Move(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *memStore) Remove(_ context.Context, path string) error {
	delete(m.data, path)
	return nil
}

func (m *memStore) Features() Feature { return 0 }

type memWriter struct {
	store *memStore
	path  string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memWriter) Close() error {
	w.store.data[w.path] = w.buf.Bytes()
	return nil
}

func TestMoveOrCopyFallsBackWhenNotSameFilesystem(t *testing.T) {
	s := newMemStore()
	s.data["src"] = []byte("payload")
	ctx := context.Background()

	if err := MoveOrCopy(ctx, s, "src", "dst"); err != nil {
		t.Fatalf("MoveOrCopy: %v", err)
	}

	if _, ok := s.data["src"]; ok {
		t.Fatal("src should be removed after copy fallback")
	}
	if got := string(s.data["dst"]); got != "payload" {
		t.Fatalf("dst = %q, want %q", got, "payload")
	}
}
