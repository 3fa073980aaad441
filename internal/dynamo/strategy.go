package dynamo

import (
	"fmt"
	"strings"
)

// Strategy selects the force evaluation algorithm.
type Strategy int

const (
	// Direct sums every pair on the calling goroutine.
	Direct Strategy = iota
	// DirectParallel splits the direct sum across the worker pool.
	DirectParallel
	// BarnesHut approximates distant clusters through an octree.
	BarnesHut
)

// Strategies lists every variant in cycling order.
var Strategies = []Strategy{Direct, DirectParallel, BarnesHut}

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case DirectParallel:
		return "parallel"
	case BarnesHut:
		return "barneshut"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Next returns the strategy after s in Strategies, wrapping around.
func (s Strategy) Next() Strategy {
	for i, v := range Strategies {
		if v == s {
			return Strategies[(i+1)%len(Strategies)]
		}
	}
	return Direct
}

func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "direct", "cpu":
		return Direct, nil
	case "parallel", "direct-parallel", "pthreads":
		return DirectParallel, nil
	case "barneshut", "barnes-hut", "bh":
		return BarnesHut, nil
	}
	return Direct, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
