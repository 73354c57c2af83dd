// SPDX-License-Identifier: MIT
/*
Package routing maps logical audio usages onto the vehicle's physical
output streams.

A policy is written as a '#'-separated list of stream entries, each of
the form "physicalIndex:usage[,usage...]":

	0:call,media,unknown#1:nav_guidance,voice_command,alarm,notification,system,safety

Usages missing from the text fall back to the default stream, which is the
stream carrying "unknown" (or the lowest configured stream when nothing
carries it). Radio, when unmapped, shares the stream of "media".

A Policy is immutable once parsed and every lookup is an array index.
*/
package routing

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"caraudio/pkg/bitint"
)

var (
	// ErrMalformedPolicy is returned for syntactically invalid policy text.
	ErrMalformedPolicy = errors.New("malformed routing policy")
	// ErrUnknownUsage is returned for usage names or values that cannot be routed.
	ErrUnknownUsage = errors.New("unknown audio usage")
)

// DefaultPolicy is used when neither configuration nor the hardware
// variant table provide a policy.
const DefaultPolicy = "0:call,media,radio,unknown#1:nav_guidance,voice_command,alarm,notification,system,safety"

// Policy is a parsed routing policy.
type Policy struct {
	source        string
	streams       [][]Usage // physical stream -> sorted usages, nil for unconfigured indexes
	physical      [usageCount]int
	explicit      [usageCount]bool
	defaultStream int
}

// Parse builds a Policy from its text form.
func Parse(text string) (*Policy, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty policy", ErrMalformedPolicy)
	}

	p := &Policy{source: text, defaultStream: -1}
	lowest := -1

	for _, entry := range strings.Split(text, "#") {
		entry = strings.TrimSpace(entry)
		idxText, usagesText, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%w: entry %q has no ':'", ErrMalformedPolicy, entry)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxText))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid stream index %q", ErrMalformedPolicy, idxText)
		}
		if idx < 0 || idx > bitint.MaxIndex {
			return nil, fmt.Errorf("%w: stream index %d out of range [0, %d]", ErrMalformedPolicy, idx, bitint.MaxIndex)
		}
		for len(p.streams) <= idx {
			p.streams = append(p.streams, nil)
		}
		if p.streams[idx] != nil {
			return nil, fmt.Errorf("%w: stream %d configured twice", ErrMalformedPolicy, idx)
		}

		var usages []Usage
		for _, name := range strings.Split(usagesText, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("%w: empty usage name on stream %d", ErrMalformedPolicy, idx)
			}
			u, err := ParseUsage(name)
			if err != nil {
				return nil, err
			}
			if p.explicit[u] {
				return nil, fmt.Errorf("%w: usage %q mapped twice", ErrMalformedPolicy, name)
			}
			p.explicit[u] = true
			p.physical[u] = idx
			usages = append(usages, u)
			if u == UsageUnknown {
				p.defaultStream = idx
			}
		}
		slices.Sort(usages)
		p.streams[idx] = usages

		if lowest < 0 || idx < lowest {
			lowest = idx
		}
	}

	if p.defaultStream < 0 {
		p.defaultStream = lowest
	}

	// Music first: radio aliases whatever media ends up on.
	if !p.explicit[UsageMusic] {
		p.physical[UsageMusic] = p.defaultStream
	}
	for u := Usage(0); u < usageCount; u++ {
		if p.explicit[u] || u == UsageMusic {
			continue
		}
		if u == UsageRadio {
			p.physical[u] = p.physical[UsageMusic]
			continue
		}
		p.physical[u] = p.defaultStream
	}

	return p, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(text string) *Policy {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// PhysicalStream returns the physical stream index that usage plays on.
func (p *Policy) PhysicalStream(usage Usage) (int, error) {
	if !usage.Routable() {
		return 0, fmt.Errorf("%w: %v", ErrUnknownUsage, usage)
	}
	return p.physical[usage], nil
}

// StreamMask returns the single-bit mask of the physical stream for usage.
func (p *Policy) StreamMask(usage Usage) (uint32, error) {
	idx, err := p.PhysicalStream(usage)
	if err != nil {
		return 0, err
	}
	return bitint.Bit(idx), nil
}

// Usages returns the usages configured on a physical stream, sorted.
// Fallback usages are not included.
func (p *Policy) Usages(stream int) []Usage {
	if stream < 0 || stream >= len(p.streams) {
		return nil
	}
	return slices.Clone(p.streams[stream])
}

// StreamCount returns the number of physical stream slots (highest index + 1).
func (p *Policy) StreamCount() int {
	return len(p.streams)
}

// DefaultStream returns the stream used for unmapped usages.
func (p *Policy) DefaultStream() int {
	return p.defaultStream
}

// String returns the policy text the Policy was parsed from.
func (p *Policy) String() string {
	return p.source
}

// Dump writes a human readable form of both directions of the mapping.
func (p *Policy) Dump(w io.Writer) {
	fmt.Fprintf(w, "*AudioRoutingPolicy*\n")
	fmt.Fprintf(w, " source:%s streams:%d\n", p.source, p.StreamCount())
	fmt.Fprintf(w, " default stream:%d\n", p.defaultStream)
	for idx, usages := range p.streams {
		if usages == nil {
			continue
		}
		names := make([]string, len(usages))
		for i, u := range usages {
			names[i] = u.String()
		}
		fmt.Fprintf(w, " stream %d: %s\n", idx, strings.Join(names, ","))
	}
	for u := Usage(0); u < usageCount; u++ {
		marker := ""
		if !p.explicit[u] {
			marker = " (fallback)"
		}
		fmt.Fprintf(w, " %s -> %d%s\n", u, p.physical[u], marker)
	}
}
