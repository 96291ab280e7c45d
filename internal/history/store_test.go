package history

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/wuwenbin0122/anony/internal/db"
	"github.com/wuwenbin0122/anony/internal/models"
)

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Put(context.Context, string, []byte, time.Duration) error { return f.err }
func (f failingKV) Delete(context.Context, string) error { return f.err }
func (f failingKV) Close(context.Context) error { return nil }

func turns(n int) []models.Turn {
	out := make([]models.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		out = append(out, models.Turn{Role: role, Content: fmt.Sprintf("turn-%d", i)})
	}
	return out
}

func TestLoadUnknownSessionIsEmpty(t *testing.T) {
	store := NewStore(db.NewMemory(), 0, 0)

	got, err := store.Load(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(db.NewMemory(), 6, time.Hour)

	for _, n := range []int{1, 5, 6, 7, 11} {
		t.Run(fmt.Sprintf("%d turns", n), func(t *testing.T) {
			want := turns(n)
			if err := store.Save(ctx, "sid", want); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, err := store.Load(ctx, "sid")
			if err != nil {
				t.Fatalf("load: %v", err)
			}

			expected := want
			if len(expected) > 6 {
				expected = expected[len(expected)-6:]
			}
			if !reflect.DeepEqual(got, expected) {
				t.Fatalf("round trip mismatch:\nwant %#v\n got %#v", expected, got)
			}
		})
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemory()
	store := NewStore(kv, 6, time.Hour)

	for i := 0; i < 2; i++ {
		if err := store.Save(ctx, "sid", turns(3)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, _ := store.Load(ctx, "sid")
	if len(got) != 3 {
		t.Fatalf("expected 3 turns after repeated save, got %d", len(got))
	}
}

func TestLoadCorruptHistory(t *testing.T) {
	ctx := context.Background()

	cases := map[string]string{
		"not json":     "{oops",
		"wrong shape":  `{"role":"user"}`,
		"unknown role": `[{"role":"tool","content":"x"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			kv := db.NewMemory()
			if err := kv.Put(ctx, "sid", []byte(raw), time.Hour); err != nil {
				t.Fatalf("seed: %v", err)
			}

			_, err := NewStore(kv, 6, time.Hour).Load(ctx, "sid")
			if !errors.Is(err, ErrCorruptHistory) {
				t.Fatalf("expected ErrCorruptHistory, got %v", err)
			}
		})
	}
}

func TestLoadNullIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemory()
	_ = kv.Put(ctx, "sid", []byte("null"), time.Hour)

	got, err := NewStore(kv, 6, time.Hour).Load(ctx, "sid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %#v", got)
	}
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	store := NewStore(db.NewMemory(), 6, time.Hour)
	if err := store.Delete(context.Background(), "nobody"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	store := NewStore(failingKV{err: boom}, 6, time.Hour)

	if _, err := store.Load(ctx, "sid"); !errors.Is(err, boom) {
		t.Fatalf("expected load error to wrap cause, got %v", err)
	}
	if err := store.Save(ctx, "sid", turns(1)); !errors.Is(err, boom) {
		t.Fatalf("expected save error to wrap cause, got %v", err)
	}
	if err := store.Delete(ctx, "sid"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error to wrap cause, got %v", err)
	}
}
