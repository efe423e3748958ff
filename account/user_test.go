package account

import (
	"reflect"
	"testing"
	"time"
)

func TestProfileWithDefaultsKeepsSetFields(t *testing.T) {
	p := Profile{Age: 40, Goal: "lose"}.WithDefaults()
	if p.Age != 40 || p.Goal != "lose" {
		t.Fatalf("set fields overwritten: %+v", p)
	}
	d := DefaultProfile()
	if p.Weight != d.Weight || p.Height != d.Height || p.ActivityLevel != d.ActivityLevel {
		t.Fatalf("unset fields not default-filled: %+v", p)
	}
}

func TestSameEmailIsCaseInsensitive(t *testing.T) {
	if !SameEmail(" Demo@FitLife.com", "demo@fitlife.com ") {
		t.Fatal("expected addresses to compare equal")
	}
	if SameEmail("a@fitlife.com", "b@fitlife.com") {
		t.Fatal("expected different addresses to differ")
	}
}

func TestProfilePatchApply(t *testing.T) {
	name := "Jane"
	weight := 61.5
	patch := ProfilePatch{Name: &name, Weight: &weight}

	if got := patch.ChangedKeys(); !reflect.DeepEqual(got, []string{"name", "weight"}) {
		t.Fatalf("unexpected changed keys: %v", got)
	}
	if patch.IsEmpty() {
		t.Fatal("patch should not be empty")
	}

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	u := User{ID: "u1", Name: "J", Profile: DefaultProfile(), CreatedAt: created, UpdatedAt: created}

	out := patch.Apply(u, now)
	if out.Name != "Jane" || out.Profile.Weight != 61.5 {
		t.Fatalf("patch not applied: %+v", out)
	}
	if out.Profile.Height != u.Profile.Height {
		t.Fatal("untouched field changed")
	}
	if !out.UpdatedAt.Equal(now) || !out.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", out.CreatedAt, out.UpdatedAt)
	}
	if u.Name != "J" {
		t.Fatal("Apply must not mutate its input")
	}

	if !(ProfilePatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}
