package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/rnm-query/internal/testutil"
	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/client"
)

type fakeFetcher struct {
	totalPages int
	failPage   int
	delay      time.Duration

	mu       sync.Mutex
	calls    map[int]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeFetcher(totalPages int) *fakeFetcher {
	return &fakeFetcher{totalPages: totalPages, calls: make(map[int]int)}
}

func (f *fakeFetcher) FetchPageRaw(ctx context.Context, endpoint string, page int) ([]byte, int, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[page]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	if page == f.failPage {
		return nil, 0, errors.New("boom")
	}
	return []byte(fmt.Sprintf(`{"page":%d}`, page)), f.totalPages, nil
}

func TestFetchAllPages(t *testing.T) {
	tests := []struct {
		name       string
		totalPages int
	}{
		{"single page", 1},
		{"two pages", 2},
		{"many pages", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher(tt.totalPages)
			bf := NewBatchFetcher(f, Config{MaxConcurrency: 3})

			pages, err := bf.FetchAllPages(context.Background(), "/api/character")
			if err != nil {
				t.Fatalf("FetchAllPages() error = %v", err)
			}
			if len(pages) != tt.totalPages {
				t.Fatalf("got %d pages, want %d", len(pages), tt.totalPages)
			}

			for page := 1; page <= tt.totalPages; page++ {
				want := fmt.Sprintf(`{"page":%d}`, page)
				if string(pages[page]) != want {
					t.Errorf("page %d = %s, want %s", page, pages[page], want)
				}
				if f.calls[page] != 1 {
					t.Errorf("page %d fetched %d times, want 1", page, f.calls[page])
				}
			}
		})
	}
}

func TestFetchAllPages_Concurrency(t *testing.T) {
	f := newFakeFetcher(20)
	f.delay = 10 * time.Millisecond
	bf := NewBatchFetcher(f, Config{MaxConcurrency: 4})

	if _, err := bf.FetchAllPages(context.Background(), "/api/character"); err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}

	if got := f.maxSeen.Load(); got > 4 {
		t.Errorf("max in-flight = %d, want <= 4", got)
	}
}

func TestFetchAllPages_FirstPageError(t *testing.T) {
	f := newFakeFetcher(5)
	f.failPage = 1
	bf := NewBatchFetcher(f, DefaultConfig())

	pages, err := bf.FetchAllPages(context.Background(), "/api/character")
	if err == nil {
		t.Fatal("expected error")
	}
	if pages != nil {
		t.Errorf("expected nil pages, got %d", len(pages))
	}
}

func TestFetchAllPages_PartialResults(t *testing.T) {
	f := newFakeFetcher(10)
	f.failPage = 6
	bf := NewBatchFetcher(f, Config{MaxConcurrency: 1})

	pages, err := bf.FetchAllPages(context.Background(), "/api/character")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := pages[1]; !ok {
		t.Error("partial result should keep page 1")
	}
	if _, ok := pages[6]; ok {
		t.Error("failed page must not be in results")
	}
	if len(pages) >= 10 {
		t.Errorf("got %d pages, expected partial data", len(pages))
	}
}

func TestFetchAllPages_ContextCancelled(t *testing.T) {
	f := newFakeFetcher(50)
	f.delay = 50 * time.Millisecond
	bf := NewBatchFetcher(f, Config{MaxConcurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(80*time.Millisecond, cancel)

	pages, err := bf.FetchAllPages(ctx, "/api/character")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if len(pages) >= 50 {
		t.Errorf("got %d pages, expected partial data", len(pages))
	}
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(newFakeFetcher(1), Config{})

	if bf.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", bf.config.Timeout)
	}
}

func TestOrdered(t *testing.T) {
	pages := map[int][]byte{
		3:  []byte("c"),
		1:  []byte("a"),
		10: []byte("j"),
		2:  []byte("b"),
	}

	got := Ordered(pages)
	want := []string{"a", "b", "c", "j"}
	if len(got) != len(want) {
		t.Fatalf("got %d bodies, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("body %d = %s, want %s", i, got[i], want[i])
		}
	}

	if len(Ordered(nil)) != 0 {
		t.Error("Ordered(nil) should be empty")
	}
}

func TestFetchAllPages_CharacterAPI(t *testing.T) {
	api := testutil.NewMockAPI(45)
	defer api.Close()

	cfg := client.DefaultConfig("rnm-query-test/1.0")
	cfg.BaseURL = api.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	defer c.Close()

	pages, err := NewBatchFetcher(c, DefaultConfig()).FetchAllPages(context.Background(), client.CharacterEndpoint)
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	var ids []int
	for _, body := range Ordered(pages) {
		page, err := character.DecodePage(body)
		if err != nil {
			t.Fatalf("DecodePage() error = %v", err)
		}
		for _, c := range page.Results {
			ids = append(ids, c.ID)
		}
	}

	if len(ids) != 45 {
		t.Fatalf("got %d records, want 45", len(ids))
	}
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("record %d has id %d, want %d", i, id, i+1)
		}
	}
}
