package routing

import "fmt"

// Table holds routing policy text per audio hardware variant.
type Table map[int]string

// Resolve returns the parsed policy for variant. Missing variants fall back
// to variant 0, then to DefaultPolicy.
func (t Table) Resolve(variant int) (*Policy, error) {
	text, ok := t[variant]
	if !ok {
		text, ok = t[0]
	}
	if !ok || text == "" {
		text = DefaultPolicy
	}
	p, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("routing policy for hw variant %d: %w", variant, err)
	}
	return p, nil
}
