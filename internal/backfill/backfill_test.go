package backfill

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/artemshloyda/wallgen/internal/catalog"
	"github.com/artemshloyda/wallgen/internal/deriv"
)

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name string
		item catalog.Item
		want bool
	}{
		{
			name: "empty image list",
			item: catalog.Item{ItemID: "1"},
			want: true,
		},
		{
			name: "legacy small scheme",
			item: catalog.Item{ImageList: []catalog.ImageRef{{Type: "small", Link: "x"}}},
			want: true,
		},
		{
			name: "missing BL variant",
			item: catalog.Item{ImageList: []catalog.ImageRef{
				{Type: "LD"}, {Type: "SD"}, {Type: "HD"},
			}},
			want: true,
		},
		{
			name: "current scheme",
			item: catalog.Item{ImageList: []catalog.ImageRef{
				{Type: "LD"}, {Type: "SD"}, {Type: "HD"}, {Type: "BL"},
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsUpdate(&tt.item); got != tt.want {
				t.Errorf("NeedsUpdate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickSource(t *testing.T) {
	tests := []struct {
		name string
		item catalog.Item
		want string
	}{
		{
			name: "prefers HD",
			item: catalog.Item{
				Thumbnail: "thumb",
				ImageList: []catalog.ImageRef{
					{Type: "LD", Link: "ld"},
					{Type: "HD", Link: "hd"},
				},
			},
			want: "hd",
		},
		{
			name: "falls back to last variant",
			item: catalog.Item{
				Thumbnail: "thumb",
				ImageList: []catalog.ImageRef{
					{Type: "LD", Link: "ld"},
					{Type: "SD", Link: "sd"},
				},
			},
			want: "sd",
		},
		{
			name: "falls back to thumbnail",
			item: catalog.Item{Thumbnail: "thumb"},
			want: "thumb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickSource(&tt.item); got != tt.want {
				t.Errorf("pickSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeBackfillCatalog - тестовый клиент каталога.
type fakeBackfillCatalog struct {
	mu       sync.Mutex
	items    []catalog.Item
	patched  map[string][]catalog.ImageRef
	patchErr map[string]error
}

func (f *fakeBackfillCatalog) List(ctx context.Context) ([]catalog.Item, error) {
	return f.items, nil
}

func (f *fakeBackfillCatalog) PatchImageList(ctx context.Context, itemID string, refs []catalog.ImageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.patchErr[itemID]; err != nil {
		return err
	}
	if f.patched == nil {
		f.patched = map[string][]catalog.ImageRef{}
	}
	f.patched[itemID] = refs
	return nil
}

// fakeBackfillIngest возвращает путь к существующему временному файлу.
type fakeBackfillIngest struct {
	dir string
	n   int
	mu  sync.Mutex
}

func (f *fakeBackfillIngest) Ingest(ctx context.Context, remoteRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.n++
	path := fmt.Sprintf("%s/src-%d.jpg", f.dir, f.n)
	return path, os.WriteFile(path, []byte("jpg"), 0644)
}

// fakeBackfillDeriv возвращает полный набор вариантов.
type fakeBackfillDeriv struct{}

func (f *fakeBackfillDeriv) GenerateAll(ctx context.Context, path string) ([]deriv.Derivative, error) {
	return []deriv.Derivative{
		{Type: "LD", Resolution: "408x728", URL: "u1", Blob: "b1"},
		{Type: "SD", Resolution: "816x1456", URL: "u2", Blob: "b2"},
		{Type: "HD", Resolution: "1632x2912", URL: "u3", Blob: "b3"},
		{Type: "BL", Resolution: "408x728", URL: "u4", Blob: "b4"},
	}, nil
}

func TestRunner_Run(t *testing.T) {
	cat := &fakeBackfillCatalog{
		items: []catalog.Item{
			{ItemID: "stale", Thumbnail: "t", ImageList: []catalog.ImageRef{{Type: "small", Link: "s"}}},
			{ItemID: "fresh", ImageList: []catalog.ImageRef{
				{Type: "LD"}, {Type: "SD"}, {Type: "HD"}, {Type: "BL"},
			}},
		},
	}

	r := New(cat, &fakeBackfillIngest{dir: t.TempDir()}, &fakeBackfillDeriv{}, 2, 0, nil)

	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.Processed != 1 {
		t.Errorf("Processed = %d, want 1", stats.Processed)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}

	refs, ok := cat.patched["stale"]
	if !ok {
		t.Fatal("stale item should be patched")
	}
	if len(refs) != 4 {
		t.Errorf("len(refs) = %d, want 4", len(refs))
	}
	if _, ok := cat.patched["fresh"]; ok {
		t.Error("fresh item should not be patched")
	}
}

func TestRunner_StopsOnAPIFailure(t *testing.T) {
	cat := &fakeBackfillCatalog{
		items: []catalog.Item{
			{ItemID: "bad", Thumbnail: "t"},
		},
		patchErr: map[string]error{"bad": fmt.Errorf("status 500")},
	}

	r := New(cat, &fakeBackfillIngest{dir: t.TempDir()}, &fakeBackfillDeriv{}, 1, 0, nil)

	stats, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should surface the API failure")
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}
