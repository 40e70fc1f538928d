package pages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joestump/joe-pages/internal/metrics"
	"github.com/joestump/joe-pages/internal/slug"
	"github.com/joestump/joe-pages/internal/store"
)

// fakeStore is an in-memory Store that counts every call.
type fakeStore struct {
	mu     sync.Mutex
	calls  int
	nextID int64
	pages  map[int64]*store.Page
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{pages: map[int64]*store.Page{}}
}

func (f *fakeStore) seed(ownerID int64, s string) *store.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &store.Page{ID: f.nextID, OwnerID: ownerID, Slug: s}
	f.pages[p.ID] = p
	return p
}

func (f *fakeStore) SlugOwner(_ context.Context, s string) (*store.SlugOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.pages {
		if p.Slug == s {
			return &store.SlugOwner{PageID: p.ID, OwnerID: p.OwnerID}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetOwned(_ context.Context, id, ownerID int64) (*store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.pages[id]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) taken(s string, except int64) bool {
	for _, p := range f.pages {
		if p.Slug == s && p.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeStore) Create(_ context.Context, ownerID int64, pf store.PageFields) (*store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.taken(pf.Slug, 0) {
		return nil, store.ErrSlugTaken
	}
	f.nextID++
	p := &store.Page{ID: f.nextID, OwnerID: ownerID, Slug: pf.Slug, Title: pf.Title, Description: pf.Description, SocialLink: pf.SocialLink}
	f.pages[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, id, ownerID int64, pf store.PageFields) (*store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.pages[id]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	if f.taken(pf.Slug, id) {
		return nil, store.ErrSlugTaken
	}
	p.Slug, p.Title, p.Description, p.SocialLink = pf.Slug, pf.Title, pf.Description, pf.SocialLink
	cp := *p
	return &cp, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func int64p(v int64) *int64 { return &v }

const (
	ownerA int64 = 1
	ownerB int64 = 2
)

func TestProbeRejectsWithoutStoreAccess(t *testing.T) {
	tests := []struct {
		raw  string
		want error
	}{
		{raw: "LOGIN", want: slug.ErrReserved},
		{raw: "api", want: slug.ErrReserved},
		{raw: "jo", want: slug.ErrLength},
		{raw: "!!!", want: slug.ErrEmpty},
		{raw: "", want: slug.ErrEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fs := newFakeStore()
			svc := NewService(fs, nil)

			v, err := svc.Probe(context.Background(), tt.raw, ownerA, nil)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if v.Available || v.Message != tt.want.Error() {
				t.Errorf("Probe(%q) = %+v, want unavailable %q", tt.raw, v, tt.want)
			}
			if n := fs.callCount(); n != 0 {
				t.Errorf("store accessed %d times", n)
			}
		})
	}
}

func TestProbeOwnership(t *testing.T) {
	fs := newFakeStore()
	page := fs.seed(ownerA, "ana")
	svc := NewService(fs, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		raw       string
		requester int64
		pageID    *int64
		available bool
	}{
		{name: "unused slug", raw: "maria", requester: ownerB, available: true},
		{name: "own slug", raw: "ana", requester: ownerA, available: true},
		{name: "own slug, different case", raw: "ANA", requester: ownerA, available: true},
		{name: "own slug with page id", raw: "ana", requester: ownerA, pageID: int64p(page.ID), available: true},
		{name: "other owner", raw: "ana", requester: ownerB, available: false},
		{name: "other owner with forged page id", raw: "ana", requester: ownerB, pageID: int64p(page.ID), available: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := svc.Probe(ctx, tt.raw, tt.requester, tt.pageID)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if v.Available != tt.available {
				t.Fatalf("Available = %v, want %v", v.Available, tt.available)
			}
			if !v.Available && v.Message != "address already in use." {
				t.Errorf("Message = %q", v.Message)
			}
			if v.Available && v.Message != "" {
				t.Errorf("available verdict carries message %q", v.Message)
			}
		})
	}
}

func TestProbeForgedPageIDIsCounted(t *testing.T) {
	fs := newFakeStore()
	page := fs.seed(ownerA, "ana")
	svc := NewService(fs, nil)

	before := promtest.ToFloat64(metrics.ProbesTotal.WithLabelValues("forged_page_id"))
	if _, err := svc.Probe(context.Background(), "ana", ownerB, int64p(page.ID)); err != nil {
		t.Fatal(err)
	}
	if got := promtest.ToFloat64(metrics.ProbesTotal.WithLabelValues("forged_page_id")) - before; got != 1 {
		t.Errorf("forged_page_id delta = %v, want 1", got)
	}
}

func TestProbeStoreFailure(t *testing.T) {
	fs := newFakeStore()
	fs.err = errors.New("disk on fire")
	svc := NewService(fs, nil)

	if _, err := svc.Probe(context.Background(), "maria", ownerA, nil); err == nil || errors.Is(err, ErrSlugConflict) {
		t.Fatalf("Probe error = %v, want internal error", err)
	}
}

func TestProbeRequiresRequester(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	if _, err := svc.Probe(context.Background(), "maria", 0, nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Probe error = %v, want ErrUnauthenticated", err)
	}
}

func TestUpsertCreate(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, nil)

	p, created, err := svc.Upsert(context.Background(), ownerA, Input{
		Slug:        "Ana Silva",
		Title:       " <i>Ana</i> ",
		Description: "Designer",
		SocialLink:  "@ana",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("created = false")
	}
	if p.ID == 0 || p.Slug != "ana-silva" || p.Title != "Ana" || p.SocialLink != "https://instagram.com/ana" {
		t.Errorf("unexpected page: %+v", p)
	}
}

func TestUpsertValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{name: "reserved", in: Input{Slug: "register"}, field: FieldSlug},
		{name: "empty", in: Input{Slug: "  "}, field: FieldSlug},
		{name: "short", in: Input{Slug: "ab"}, field: FieldSlug},
		{name: "long social link", in: Input{Slug: "maria", SocialLink: "https://x.example/" + strings.Repeat("a", 300)}, field: FieldSocialLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeStore()
			svc := NewService(fs, nil)
			_, _, err := svc.Upsert(context.Background(), ownerA, tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Upsert error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if fs.callCount() != 0 {
				t.Errorf("store accessed %d times", fs.callCount())
			}
		})
	}
}

func TestUpsertRequiresRequester(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	if _, _, err := svc.Upsert(context.Background(), 0, Input{Slug: "maria"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Upsert error = %v, want ErrUnauthenticated", err)
	}
}

func TestUpsertConflictAcrossOwners(t *testing.T) {
	fs := newFakeStore()
	fs.seed(ownerA, "ana")
	svc := NewService(fs, nil)

	if _, _, err := svc.Upsert(context.Background(), ownerB, Input{Slug: "ana"}); !errors.Is(err, ErrSlugConflict) {
		t.Fatalf("Upsert error = %v, want ErrSlugConflict", err)
	}
}

func TestUpsertUpdate(t *testing.T) {
	fs := newFakeStore()
	page := fs.seed(ownerA, "ana")
	svc := NewService(fs, nil)
	ctx := context.Background()

	p, created, err := svc.Upsert(ctx, ownerA, Input{ID: int64p(page.ID), Slug: "ana", Title: "same slug"})
	if err != nil {
		t.Fatalf("keep slug: %v", err)
	}
	if created || p.ID != page.ID || p.Title != "same slug" {
		t.Errorf("unexpected result created=%v page=%+v", created, p)
	}

	p, _, err = svc.Upsert(ctx, ownerA, Input{ID: int64p(page.ID), Slug: "ana-renamed"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if p.ID != page.ID || p.Slug != "ana-renamed" {
		t.Errorf("rename should mutate the same row: %+v", p)
	}
}

func TestUpsertForeignPageID(t *testing.T) {
	fs := newFakeStore()
	page := fs.seed(ownerA, "ana")
	svc := NewService(fs, nil)

	tests := []struct {
		name string
		id   int64
	}{
		{name: "other owner's page", id: page.ID},
		{name: "missing page", id: 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Upsert(context.Background(), ownerB, Input{ID: int64p(tt.id), Slug: "ana"})
			if !errors.Is(err, ErrPageNotFound) {
				t.Fatalf("Upsert error = %v, want ErrPageNotFound", err)
			}
		})
	}
}

func TestUpsertSameOwnerOtherPageConflicts(t *testing.T) {
	fs := newFakeStore()
	fs.seed(ownerA, "ana")
	second := fs.seed(ownerA, "ana-two")
	svc := NewService(fs, nil)

	// The pre-check passes for the owner's own slug; the write hits the index.
	_, _, err := svc.Upsert(context.Background(), ownerA, Input{ID: int64p(second.ID), Slug: "ana"})
	if !errors.Is(err, ErrSlugConflict) {
		t.Fatalf("Upsert error = %v, want ErrSlugConflict", err)
	}
}
