package seed

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// Fixture descreve usuários, pools e apostas para popular um ambiente local
type Fixture struct {
	Users []UserSeed `yaml:"users"`
	Pools []PoolSeed `yaml:"pools"`
}

type UserSeed struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Balance     int64  `yaml:"balance"`
}

type PoolSeed struct {
	Description string      `yaml:"description"`
	Line        string      `yaml:"line"`
	Stakes      []StakeSeed `yaml:"stakes"`
	Resolve     string      `yaml:"resolve"` // vazio deixa o pool aberto
}

type StakeSeed struct {
	User   string `yaml:"user"`
	Side   string `yaml:"side"`
	Amount int64  `yaml:"amount"`
}

// Load lê e valida o fixture YAML do disco
func Load(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodifica o YAML e confere lados, resultados e linhas
func Parse(b []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixture{}, fmt.Errorf("seed: parse: %w", err)
	}
	for i, p := range f.Pools {
		if _, err := decimal.NewFromString(p.Line); err != nil {
			return Fixture{}, fmt.Errorf("seed: pool %d (%q): bad line %q", i, p.Description, p.Line)
		}
		for _, s := range p.Stakes {
			if _, err := ledger.ParseSide(s.Side); err != nil {
				return Fixture{}, fmt.Errorf("seed: pool %q: %w", p.Description, err)
			}
		}
		if p.Resolve != "" {
			if _, err := ledger.ParseResult(p.Resolve); err != nil {
				return Fixture{}, fmt.Errorf("seed: pool %q: %w", p.Description, err)
			}
		}
	}
	return f, nil
}
