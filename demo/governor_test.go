package demo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fitlife/fitAuth/storage"
	"github.com/redis/go-redis/v9"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func fixedSession(id string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return id, nil }
}

func newGovernors(t *testing.T, store storage.Store, clk *clock) (a, b *Governor) {
	t.Helper()
	repo := NewStoreRepository(store)
	a = NewGovernor(Config{}, repo, fixedSession("tab-a"), clk.now, nil)
	b = NewGovernor(Config{}, repo, fixedSession("tab-b"), clk.now, nil)
	return a, b
}

func TestIsDemoEmail(t *testing.T) {
	g := NewGovernor(Config{}, NewStoreRepository(storage.NewMemory()), fixedSession("x"), nil, nil)
	if !g.IsDemoEmail("  DEMO@fitlife.com ") {
		t.Fatal("expected demo email match")
	}
	if g.IsDemoEmail("admin@fitlife.com") {
		t.Fatal("unexpected match")
	}
}

func TestSingleUseAcrossSessions(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	a, b := newGovernors(t, storage.NewMemory(), clk)

	d, err := a.CanUse(ctx)
	if err != nil {
		t.Fatalf("CanUse: %v", err)
	}
	if !d.Allowed || !d.IsFirstTime {
		t.Fatalf("first use should be allowed: %+v", d)
	}
	if err := a.RecordUsage(ctx); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	for i := 0; i < 5; i++ {
		clk.advance(time.Minute)
		d, err := b.CanUse(ctx)
		if err != nil {
			t.Fatalf("CanUse: %v", err)
		}
		if d.Allowed || d.Reason != ReasonInUseElsewhere {
			t.Fatalf("attempt %d: expected denial elsewhere, got %+v", i, d)
		}
		// A keeps using the slot in between.
		if err := a.RecordUsage(ctx); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}

	d, err = a.CanUse(ctx)
	if err != nil || !d.Allowed || d.IsFirstTime {
		t.Fatalf("holder should continue: %+v %v", d, err)
	}
}

func TestContinuationIsMonotonic(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	repo := NewStoreRepository(storage.NewMemory())
	g := NewGovernor(Config{}, repo, fixedSession("tab-a"), clk.now, nil)

	if err := g.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}

	prev := first.UsageCount
	for i := 0; i < 4; i++ {
		clk.advance(30 * time.Second)
		if err := g.RecordUsage(ctx); err != nil {
			t.Fatal(err)
		}
		rec, err := repo.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if rec.UsageCount <= prev {
			t.Fatalf("usage count not increasing: %d -> %d", prev, rec.UsageCount)
		}
		if !rec.FirstUsed.Equal(first.FirstUsed) {
			t.Fatalf("firstUsed reset: %v -> %v", first.FirstUsed, rec.FirstUsed)
		}
		if !rec.LastUsed.Equal(clk.now()) {
			t.Fatalf("lastUsed not updated: %v", rec.LastUsed)
		}
		prev = rec.UsageCount
	}
}

func TestExpirationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	repo := NewStoreRepository(storage.NewMemory())
	g := NewGovernor(Config{}, repo, fixedSession("tab-a"), clk.now, nil)

	if err := g.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	clk.advance(10*time.Minute + 5*time.Second)
	remaining, ok, err := g.TimeUntilExpiration(ctx)
	if err != nil || !ok || remaining != "19m 55s" {
		t.Fatalf("unexpected remaining: %q %v %v", remaining, ok, err)
	}

	clk.advance(25 * time.Minute)
	for i := 0; i < 3; i++ {
		if _, ok, err := g.TimeUntilExpiration(ctx); err != nil || ok {
			t.Fatalf("call %d: expected no remaining time, got ok=%v err=%v", i, ok, err)
		}
	}
	rec, err := repo.Load(ctx)
	if err != nil || !rec.IsExpired {
		t.Fatalf("record should be expired: %+v %v", rec, err)
	}

	d, err := g.CanUse(ctx)
	if err != nil || d.Allowed || d.Reason != ReasonExpired {
		t.Fatalf("expected expired denial: %+v %v", d, err)
	}

	for i := 0; i < 2; i++ {
		if err := g.Expire(ctx); err != nil {
			t.Fatalf("Expire #%d: %v", i, err)
		}
	}
	rec, err = repo.Load(ctx)
	if err != nil || !rec.IsExpired {
		t.Fatalf("record should stay expired: %+v %v", rec, err)
	}
}

func TestCanUseExpiresElapsedHolderRecord(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	g := NewGovernor(Config{}, NewStoreRepository(storage.NewMemory()), fixedSession("tab-a"), clk.now, nil)
	if err := g.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	clk.advance(31 * time.Minute)
	d, err := g.CanUse(ctx)
	if err != nil || d.Allowed || d.Reason != ReasonExpired {
		t.Fatalf("expected expired denial: %+v %v", d, err)
	}
}

func TestExpireWithoutRecordIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(storage.NewMemory())
	g := NewGovernor(Config{}, repo, fixedSession("tab-a"), nil, nil)
	if err := g.Expire(ctx); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected no record, got %v", err)
	}
}

func TestExpirationWarning(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	a, b := newGovernors(t, storage.NewMemory(), clk)

	if err := a.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	if warn, err := a.ShouldShowExpirationWarning(ctx); err != nil || warn {
		t.Fatalf("no warning expected yet: %v %v", warn, err)
	}
	if err := a.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	if warn, err := a.ShouldShowExpirationWarning(ctx); err != nil || !warn {
		t.Fatalf("warning expected after three uses: %v %v", warn, err)
	}
	if warn, err := b.ShouldShowExpirationWarning(ctx); err != nil || warn {
		t.Fatalf("non-holder must not be warned: %v %v", warn, err)
	}

	clk2 := &clock{t: clk.t}
	c := NewGovernor(Config{}, NewStoreRepository(storage.NewMemory()), fixedSession("tab-c"), clk2.now, nil)
	if err := c.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	clk2.advance(5*time.Minute + time.Second)
	if warn, err := c.ShouldShowExpirationWarning(ctx); err != nil || !warn {
		t.Fatalf("warning expected after five minutes: %v %v", warn, err)
	}
}

func TestMalformedRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	if err := store.Set(ctx, UsageKey, []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	g := NewGovernor(Config{}, NewStoreRepository(store), fixedSession("tab-a"), nil, nil)
	d, err := g.CanUse(ctx)
	if err != nil || !d.Allowed || !d.IsFirstTime {
		t.Fatalf("malformed record should read as absent: %+v %v", d, err)
	}
	if _, err := store.Get(ctx, UsageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("malformed record not deleted: %v", err)
	}
}

func TestResetAndStatusOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	a, b := newGovernors(t, storage.NewRedis(rdb, "", 0), clk)

	if err := a.RecordUsage(ctx); err != nil {
		t.Fatal(err)
	}
	st, err := a.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.HeldHere || st.Record == nil || st.Remaining != "30m 00s" {
		t.Fatalf("unexpected holder status: %+v", st)
	}
	st, err = b.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.HeldHere || st.Record == nil || st.HasRemaining {
		t.Fatalf("unexpected foreign status: %+v", st)
	}

	if err := a.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	d, err := b.CanUse(ctx)
	if err != nil || !d.Allowed || !d.IsFirstTime {
		t.Fatalf("reset should free the slot: %+v %v", d, err)
	}
}
