package executor

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names an execution strategy
type Kind string

const (
	KindSequential Kind = "sequential"
	KindPooled     Kind = "pooled"
)

// Config selects and sizes the execution strategy
type Config struct {
	Strategy    Kind
	WorkerCount int
}

type constructor func(cfg Config) (Strategy, error)

var registry = map[Kind]constructor{
	KindSequential: func(Config) (Strategy, error) {
		return NewSequential(), nil
	},
	KindPooled: func(cfg Config) (Strategy, error) {
		pool, err := NewPooled(cfg.WorkerCount)
		if err != nil {
			return nil, err
		}
		return pool, nil
	},
}

// Kinds returns every registered strategy kind in sorted order
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// ParseKind resolves a configured strategy name, ignoring case and
// surrounding whitespace
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := registry[kind]; !ok {
		return "", fmt.Errorf("%w %q, supported values are %v", ErrUnknownStrategy, raw, Kinds())
	}

	return kind, nil
}

// New builds the strategy named by cfg
func New(cfg Config) (Strategy, error) {
	build, ok := registry[cfg.Strategy]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported values are %v", ErrUnknownStrategy, cfg.Strategy, Kinds())
	}

	return build(cfg)
}
