package localauth

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/storage"
	"github.com/redis/go-redis/v9"
)

func testHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func newTestTable(t *testing.T, store storage.Store) *Table {
	t.Helper()
	tbl, err := NewTable(store, testHasher(t), DefaultSeeds(), nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestSeededAccounts(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, storage.NewMemory())

	u, err := tbl.Authenticate(ctx, "Demo@FitLife.com", "demo123")
	if err != nil {
		t.Fatalf("demo login: %v", err)
	}
	if u.ID != "demo-user" || u.Role != account.RoleUser || u.Profile != account.DefaultProfile() {
		t.Fatalf("unexpected demo user: %+v", u)
	}

	admin, err := tbl.Authenticate(ctx, "admin@fitlife.com", "admin123")
	if err != nil || admin.Role != account.RoleAdmin {
		t.Fatalf("admin login: %+v %v", admin, err)
	}

	for _, pw := range []string{"demo1234", "", "DEMO123"} {
		if _, err := tbl.Authenticate(ctx, "demo@fitlife.com", pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("password %q: expected ErrInvalidCredentials, got %v", pw, err)
		}
	}
	if _, err := tbl.Authenticate(ctx, "nobody@fitlife.com", "demo123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterPersistsAcrossTables(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	store := storage.NewRedis(rdb, "", 0)
	tbl := newTestTable(t, store)

	u, err := tbl.Register(ctx, Registration{Email: " New@FitLife.com", Password: "secret1", Name: "New", Profile: account.Profile{Age: 31}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == "" || u.Email != "new@fitlife.com" || u.Profile.Age != 31 || u.Profile.Height != 170 {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := tbl.Register(ctx, Registration{Email: "new@fitlife.com", Password: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := tbl.Register(ctx, Registration{Email: "DEMO@fitlife.com", Password: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("seeded email should be a duplicate, got %v", err)
	}

	reopened := newTestTable(t, store)
	got, err := reopened.Authenticate(ctx, "new@fitlife.com", "secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("registered account not persisted: %+v %v", got, err)
	}

	got.Name = "Renamed"
	if err := reopened.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := newTestTable(t, store).Authenticate(ctx, "new@fitlife.com", "secret1")
	if err != nil || again.Name != "Renamed" {
		t.Fatalf("update not persisted: %+v %v", again, err)
	}

	if ok, err := reopened.Exists(ctx, "NEW@fitlife.com"); err != nil || !ok {
		t.Fatalf("Exists: %v %v", ok, err)
	}
}
