package password

import (
	"fmt"
	"unicode"
)

// Policy is the registration password policy.
type Policy struct {
	MinLength     int  `mapstructure:"min_length"`
	RequireLetter bool `mapstructure:"require_letter"`
	RequireDigit  bool `mapstructure:"require_digit"`
}

// DefaultPolicy requires six characters and nothing else.
func DefaultPolicy() Policy {
	return Policy{MinLength: 6}
}

// Check returns a human-readable description of every rule pw fails, in a
// stable order. An empty result means pw is acceptable.
func (p Policy) Check(pw string) []string {
	var unmet []string
	if n := len([]rune(pw)); n < p.MinLength {
		unmet = append(unmet, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}

	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if p.RequireLetter && !letter {
		unmet = append(unmet, "must contain a letter")
	}
	if p.RequireDigit && !digit {
		unmet = append(unmet, "must contain a digit")
	}
	return unmet
}
