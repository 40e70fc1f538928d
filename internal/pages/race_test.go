package pages

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/joestump/joe-pages/internal/store"
	"github.com/joestump/joe-pages/internal/testutil"
)

// barrierStore holds every SlugOwner caller until n callers have arrived, so
// concurrent upserts all pass the ownership pre-check before any writes.
type barrierStore struct {
	*store.PageStore
	wg sync.WaitGroup
}

func newBarrierStore(ps *store.PageStore, n int) *barrierStore {
	b := &barrierStore{PageStore: ps}
	b.wg.Add(n)
	return b
}

func (b *barrierStore) SlugOwner(ctx context.Context, s string) (*store.SlugOwner, error) {
	o, err := b.PageStore.SlugOwner(ctx, s)
	b.wg.Done()
	b.wg.Wait()
	return o, err
}

func seedOwners(t *testing.T, us *store.UserStore, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	for i := range ids {
		u, err := us.Create(context.Background(), "user", "user"+string(rune('a'+i))+"@example.com", "x")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		ids[i] = u.ID
	}
	return ids
}

func TestConcurrentUpsertsOneWinner(t *testing.T) {
	db := testutil.NewTestDB(t)
	owners := seedOwners(t, store.NewUserStore(db), 2)
	svc := NewService(newBarrierStore(store.NewPageStore(db), len(owners)), nil)

	var created, conflicts atomic.Int32
	var g errgroup.Group
	for _, owner := range owners {
		g.Go(func() error {
			_, ok, err := svc.Upsert(context.Background(), owner, Input{Slug: "maria"})
			switch {
			case err == nil && ok:
				created.Add(1)
				return nil
			case errors.Is(err, ErrSlugConflict):
				conflicts.Add(1)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if created.Load() != 1 || conflicts.Load() != 1 {
		t.Fatalf("created=%d conflicts=%d, want exactly one of each", created.Load(), conflicts.Load())
	}
}

func TestScenarioWithSQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	owners := seedOwners(t, store.NewUserStore(db), 2)
	a, b := owners[0], owners[1]
	svc := NewService(store.NewPageStore(db), nil)
	ctx := context.Background()

	page, created, err := svc.Upsert(ctx, a, Input{Slug: "ana-silva", Title: "Ana"})
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if page.ID == 0 || page.Slug != "ana-silva" {
		t.Fatalf("unexpected page %+v", page)
	}

	if v, _ := svc.Probe(ctx, "ana-silva", b, nil); v.Available {
		t.Error("ana-silva should be unavailable to another owner")
	}
	if v, _ := svc.Probe(ctx, "ana-silva", a, nil); !v.Available {
		t.Error("ana-silva should be available to its owner")
	}
	if _, _, err := svc.Upsert(ctx, b, Input{Slug: "ana-silva"}); !errors.Is(err, ErrSlugConflict) {
		t.Errorf("foreign upsert = %v, want ErrSlugConflict", err)
	}

	renamed, created, err := svc.Upsert(ctx, a, Input{ID: &page.ID, Slug: "ana"})
	if err != nil || created {
		t.Fatalf("rename: created=%v err=%v", created, err)
	}
	if renamed.ID != page.ID {
		t.Errorf("rename changed id: %d -> %d", page.ID, renamed.ID)
	}
	if v, _ := svc.Probe(ctx, "ana-silva", b, nil); !v.Available {
		t.Error("released slug should become available")
	}
}
