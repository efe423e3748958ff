// Package account defines the identity record shared by every fitAuth
// component and the profile patch applied by profile updates.
package account

import (
	"strings"
	"time"
)

// Role is the authorization class of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile holds the optional fitness scalars of a user.
type Profile struct {
	Age           int     `json:"age,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	Height        float64 `json:"height,omitempty"`
	ActivityLevel string  `json:"activityLevel,omitempty"`
	Goal          string  `json:"goal,omitempty"`
}

// DefaultProfile is the profile given to accounts that did not provide one.
func DefaultProfile() Profile {
	return Profile{
		Age:           25,
		Weight:        70,
		Height:        170,
		ActivityLevel: "moderate",
		Goal:          "maintain",
	}
}

// WithDefaults fills every unset field from DefaultProfile.
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if p.Age <= 0 {
		p.Age = d.Age
	}
	if p.Weight <= 0 {
		p.Weight = d.Weight
	}
	if p.Height <= 0 {
		p.Height = d.Height
	}
	if p.ActivityLevel == "" {
		p.ActivityLevel = d.ActivityLevel
	}
	if p.Goal == "" {
		p.Goal = d.Goal
	}
	return p
}

// User is an authenticated identity. It is owned by whichever store
// authenticated it: the remote service or the local credential table.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail returns the comparison form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail reports whether two addresses name the same account.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}

// ProfilePatch is a partial update. Nil fields are left untouched.
type ProfilePatch struct {
	Name          *string  `json:"name,omitempty"`
	Age           *int     `json:"age,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	ActivityLevel *string  `json:"activityLevel,omitempty"`
	Goal          *string  `json:"goal,omitempty"`
}

// ChangedKeys lists the JSON names of the fields set in p, in declaration order.
func (p ProfilePatch) ChangedKeys() []string {
	keys := make([]string, 0, 6)
	if p.Name != nil {
		keys = append(keys, "name")
	}
	if p.Age != nil {
		keys = append(keys, "age")
	}
	if p.Weight != nil {
		keys = append(keys, "weight")
	}
	if p.Height != nil {
		keys = append(keys, "height")
	}
	if p.ActivityLevel != nil {
		keys = append(keys, "activityLevel")
	}
	if p.Goal != nil {
		keys = append(keys, "goal")
	}
	return keys
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return len(p.ChangedKeys()) == 0
}

// Apply returns a copy of u with the patch merged in and UpdatedAt set to now.
func (p ProfilePatch) Apply(u User, now time.Time) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Profile.Age = *p.Age
	}
	if p.Weight != nil {
		u.Profile.Weight = *p.Weight
	}
	if p.Height != nil {
		u.Profile.Height = *p.Height
	}
	if p.ActivityLevel != nil {
		u.Profile.ActivityLevel = *p.ActivityLevel
	}
	if p.Goal != nil {
		u.Profile.Goal = *p.Goal
	}
	u.UpdatedAt = now
	return u
}
