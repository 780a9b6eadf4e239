// Package cachekey implements the pure, side-effect-free key encoding rules
// from spec.md §4.A. Nothing in this package touches the network; it only
// builds and parses strings.
package cachekey

import "fmt"

// Tuple is the five-field identifier (dataSourceId, measure, practiceUid,
// providerUid, frequency) that addresses one grouped blob, per spec.md §3.
type Tuple struct {
	DataSourceID int64
	Measure      string
	PracticeUID  int64
	ProviderUID  *int64 // nil is legal; it renders as the literal "*".
	Frequency    string
}

// ProviderLiteral is the key-space rendering of a nil ProviderUID.
const ProviderLiteral = "*"

// ProviderToken renders T's provider as the literal key-space token.
func (t Tuple) ProviderToken() string {
	if t.ProviderUID == nil {
		return ProviderLiteral
	}
	return fmt.Sprintf("%d", *t.ProviderUID)
}

// Validate rejects tuples whose measure/frequency would corrupt the key
// grammar, per spec.md §4.A: "callers are responsible for not embedding ':'
// or braces; core validates and rejects if they appear."
func (t Tuple) Validate() error {
	if err := validateComponent("measure", t.Measure); err != nil {
		return err
	}
	if err := validateComponent("frequency", t.Frequency); err != nil {
		return err
	}
	return nil
}

func validateComponent(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidKeyComponent, field)
	}
	for _, r := range value {
		if r == ':' || r == '{' || r == '}' {
			return fmt.Errorf("%w: %s %q contains a reserved character", ErrInvalidKeyComponent, field, value)
		}
	}
	return nil
}
