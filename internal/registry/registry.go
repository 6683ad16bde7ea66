// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrNotMintable   = errors.New("token has no mint schedule")
)

// Token is the typed boundary record for a token family member.
type Token struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Address  string `yaml:"address" json:"address"`
	Decimals uint8  `yaml:"decimals" json:"decimals"`
	// Parent is the symbol of the token spent to mint this one; empty for roots.
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	// Schedule is nil for tokens that cannot be minted through the dashboard.
	Schedule *minting.Schedule `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

// Mintable reports whether the token carries a step schedule and a parent.
func (t Token) Mintable() bool {
	return t.Schedule != nil && t.Parent != ""
}

// MintSchedule returns the schedule labelled with the token symbol.
func (t Token) MintSchedule() (minting.Schedule, error) {
	if t.Schedule == nil {
		return minting.Schedule{}, fmt.Errorf("%s: %w", t.Symbol, ErrNotMintable)
	}
	return t.Schedule.WithLabel(t.Symbol), nil
}

// Registry is an immutable, explicitly passed set of tokens.
type Registry struct {
	tokens    []Token
	bySymbol  map[string]int
	byAddress map[string]int
}

type registryFile struct {
	Tokens []Token `yaml:"tokens"`
}

// New validates the token list and builds lookup indexes.
func New(tokens []Token) (*Registry, error) {
	r := &Registry{
		tokens:    make([]Token, 0, len(tokens)),
		bySymbol:  make(map[string]int, len(tokens)),
		byAddress: make(map[string]int, len(tokens)),
	}

	for i, t := range tokens {
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		t.Parent = strings.ToUpper(strings.TrimSpace(t.Parent))
		t.Address = strings.TrimSpace(t.Address)

		if t.Symbol == "" {
			return nil, fmt.Errorf("token #%d: missing symbol", i)
		}
		if _, dup := r.bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("token %s: duplicate symbol", t.Symbol)
		}
		if t.Decimals == 0 {
			t.Decimals = 18
		}
		if t.Schedule != nil {
			sched := *t.Schedule
			if sched.BaseCost == 0 {
				sched.BaseCost = minting.DefaultBaseCost
			}
			if !sched.Valid() {
				return nil, fmt.Errorf("token %s: invalid schedule %+v", t.Symbol, sched)
			}
			t.Schedule = &sched
		}

		r.bySymbol[t.Symbol] = len(r.tokens)
		if t.Address != "" {
			addr := strings.ToLower(t.Address)
			if _, dup := r.byAddress[addr]; dup {
				return nil, fmt.Errorf("token %s: duplicate address %s", t.Symbol, t.Address)
			}
			r.byAddress[addr] = len(r.tokens)
		}
		r.tokens = append(r.tokens, t)
	}

	for _, t := range r.tokens {
		if t.Parent == "" {
			continue
		}
		if _, ok := r.bySymbol[t.Parent]; !ok {
			return nil, fmt.Errorf("token %s: unknown parent %s", t.Symbol, t.Parent)
		}
		if t.Parent == t.Symbol {
			return nil, fmt.Errorf("token %s: token cannot be its own parent", t.Symbol)
		}
	}

	return r, nil
}

// Load reads a YAML token file. An empty path returns the built-in registry.
func Load(path string, logger *zap.Logger) (*Registry, error) {
	if path == "" {
		logger.Debug("No tokens file configured, using built-in registry")
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tokens YAML: %w", err)
	}
	if len(file.Tokens) == 0 {
		return nil, fmt.Errorf("no tokens found in %s", path)
	}

	r, err := New(file.Tokens)
	if err != nil {
		return nil, err
	}

	logger.Info("Token registry loaded",
		zap.String("path", path),
		zap.Int("count", len(r.tokens)))
	return r, nil
}

// All returns the tokens in declaration order.
func (r *Registry) All() []Token {
	out := make([]Token, len(r.tokens))
	copy(out, r.tokens)
	return out
}

// Mintable returns only tokens with a schedule and parent.
func (r *Registry) Mintable() []Token {
	var out []Token
	for _, t := range r.tokens {
		if t.Mintable() {
			out = append(out, t)
		}
	}
	return out
}

// BySymbol looks a token up case-insensitively.
func (r *Registry) BySymbol(symbol string) (Token, error) {
	i, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, fmt.Errorf("%q: %w", symbol, ErrTokenNotFound)
	}
	return r.tokens[i], nil
}

// ByAddress looks a token up by contract address, ignoring hex case.
func (r *Registry) ByAddress(address string) (Token, error) {
	i, ok := r.byAddress[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return Token{}, fmt.Errorf("%q: %w", address, ErrTokenNotFound)
	}
	return r.tokens[i], nil
}

// ParentOf returns the parent token of symbol.
func (r *Registry) ParentOf(symbol string) (Token, error) {
	t, err := r.BySymbol(symbol)
	if err != nil {
		return Token{}, err
	}
	if t.Parent == "" {
		return Token{}, fmt.Errorf("%s has no parent: %w", t.Symbol, ErrTokenNotFound)
	}
	return r.BySymbol(t.Parent)
}

// Children lists the tokens minted with the given parent symbol, sorted by symbol.
func (r *Registry) Children(parent string) []Token {
	parent = strings.ToUpper(strings.TrimSpace(parent))
	var out []Token
	for _, t := range r.tokens {
		if t.Parent == parent {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
