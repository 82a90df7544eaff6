package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *IdempotencyStore {
	t.Helper()
	s, err := OpenIdempotencyStore(filepath.Join(t.TempDir(), "sales.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFirstSeen(t *testing.T) {
	s := newTestStore(t)

	first, err := s.FirstSeen("pay_123")
	if err != nil {
		t.Fatalf("FirstSeen failed: %v", err)
	}
	if !first {
		t.Error("first call should report true")
	}

	first, err = s.FirstSeen("pay_123")
	if err != nil {
		t.Fatalf("FirstSeen failed: %v", err)
	}
	if first {
		t.Error("repeat call should report false")
	}

	first, err = s.FirstSeen("pay_456")
	if err != nil {
		t.Fatalf("FirstSeen failed: %v", err)
	}
	if !first {
		t.Error("a different ref is independent")
	}
}

func TestFirstSeenConcurrent(t *testing.T) {
	s := newTestStore(t)

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.FirstSeen("pay_contended")
			if err != nil {
				t.Errorf("FirstSeen failed: %v", err)
				return
			}
			results <- first
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for first := range results {
		if first {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("exactly one caller should win, got %d", wins)
	}
}

func TestForgetReleasesRef(t *testing.T) {
	s := newTestStore(t)

	if first, _ := s.FirstSeen("pay_retry"); !first {
		t.Fatal("fresh ref should be new")
	}
	if err := s.Forget("pay_retry"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if first, _ := s.FirstSeen("pay_retry"); !first {
		t.Error("forgotten ref should be claimable again")
	}

	// Forgetting a ref that was never marked is a no-op.
	if err := s.Forget("pay_never"); err != nil {
		t.Fatalf("Forget on unknown ref failed: %v", err)
	}
}

func TestFirstSeenManyRefs(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 50; i++ {
		ref := fmt.Sprintf("pay_%d", i)
		if first, _ := s.FirstSeen(ref); !first {
			t.Errorf("ref %s should be new", ref)
		}
	}
	for i := 0; i < 50; i++ {
		ref := fmt.Sprintf("pay_%d", i)
		if first, _ := s.FirstSeen(ref); first {
			t.Errorf("ref %s should be recorded already", ref)
		}
	}
}
