package session

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/portal-gateway/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.Now
	return s, clock
}

func TestGetMissingReturnsNil(t *testing.T) {
	s, _ := newTestStore()
	sess, err := s.Get(context.Background(), "263771234567")
	if err != nil || sess != nil {
		t.Fatalf("Get = %+v, %v; want nil, nil", sess, err)
	}
}

func TestCreateOrResetOverwrites(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, err := s.CreateOrReset(ctx, "p1", "", domain.StateLogin); err != nil {
		t.Fatalf("CreateOrReset: %v", err)
	}
	if _, err := s.Mutate(ctx, "p1", func(in domain.Session) domain.Session {
		return in.SignIn("C21001234", "tok")
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	sess, err := s.CreateOrReset(ctx, "p1", "", domain.StateLogin)
	if err != nil {
		t.Fatalf("CreateOrReset: %v", err)
	}
	if sess.Auth.Authenticated || sess.Identity != domain.GuestIdentity || sess.State != domain.StateLogin {
		t.Fatalf("reset session = %+v", sess)
	}
}

func TestMutateBumpsLastActivity(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	created, _ := s.CreateOrReset(ctx, "p1", "", domain.StateLogin)
	clock.Advance(5 * time.Minute)

	got, err := s.Mutate(ctx, "p1", func(in domain.Session) domain.Session {
		return in.Enter(domain.StateMain)
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !got.LastActivity.After(created.LastActivity) {
		t.Fatalf("LastActivity not bumped: %v -> %v", created.LastActivity, got.LastActivity)
	}
	if got.State != domain.StateMain {
		t.Fatalf("State = %q", got.State)
	}
}

func TestMutateMissingIsNoop(t *testing.T) {
	s, _ := newTestStore()
	called := false
	got, err := s.Mutate(context.Background(), "nobody", func(in domain.Session) domain.Session {
		called = true
		return in
	})
	if err != nil || got != nil || called {
		t.Fatalf("Mutate on missing = %+v, %v, called=%v", got, err, called)
	}
	if n, _ := s.Count(context.Background()); n != 0 {
		t.Fatalf("Count = %d, want 0", n)
	}
}

func TestMutateNeverStoresEmptyState(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	_, _ = s.CreateOrReset(ctx, "p1", "", domain.StateLogin)

	got, _ := s.Mutate(ctx, "p1", func(in domain.Session) domain.Session {
		in.State = ""
		return in
	})
	if got.State == "" {
		t.Fatal("empty state stored")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	_, _ = s.CreateOrReset(ctx, "p1", "", domain.StateLogin)

	sess, _ := s.Get(ctx, "p1")
	sess.State = domain.StateFinances

	again, _ := s.Get(ctx, "p1")
	if again.State != domain.StateLogin {
		t.Fatalf("stored session changed through returned pointer: %q", again.State)
	}
}

func TestSweepExpired(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_, _ = s.CreateOrReset(ctx, "old", "", domain.StateLogin)
	clock.Advance(20 * time.Minute)
	_, _ = s.CreateOrReset(ctx, "fresh", "", domain.StateLogin)
	clock.Advance(15 * time.Minute)

	expired, err := s.SweepExpired(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expired = %v, want [old]", expired)
	}
	if sess, _ := s.Get(ctx, "fresh"); sess == nil {
		t.Fatal("fresh session swept")
	}

	again, _ := s.SweepExpired(ctx, 30*time.Minute)
	if len(again) != 0 {
		t.Fatalf("second sweep = %v", again)
	}
}

func TestConcurrentMutations(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	phones := []string{"a", "b", "c", "d"}
	for _, p := range phones {
		_, _ = s.CreateOrReset(ctx, p, "", domain.StateLogin)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, p := range phones {
			wg.Add(1)
			go func(phone string) {
				defer wg.Done()
				_, _ = s.Mutate(ctx, phone, func(in domain.Session) domain.Session {
					return in.Enter(domain.StateMain)
				})
				_, _ = s.Get(ctx, phone)
			}(p)
		}
	}
	wg.Wait()

	n, _ := s.Count(ctx)
	if n != len(phones) {
		t.Fatalf("Count = %d, want %d", n, len(phones))
	}
}

func TestSweepWorkerPurgesAndRunsHooks(t *testing.T) {
	s, clock := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = s.CreateOrReset(ctx, "p2", "", domain.StateLogin)
	_, _ = s.CreateOrReset(ctx, "p1", "", domain.StateLogin)
	clock.Advance(time.Hour)

	expiredCh := make(chan []string, 4)
	hookCh := make(chan struct{}, 4)
	StartSweepWorker(ctx, s, 10*time.Millisecond, 30*time.Minute,
		func(phones []string) { expiredCh <- phones },
		func(context.Context) { hookCh <- struct{}{} },
	)

	select {
	case phones := <-expiredCh:
		sort.Strings(phones)
		if len(phones) != 2 || phones[0] != "p1" || phones[1] != "p2" {
			t.Fatalf("expired = %v", phones)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep worker did not run")
	}

	select {
	case <-hookCh:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep hook did not run")
	}
}
