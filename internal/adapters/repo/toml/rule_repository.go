package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	RulesPathKey    = "rules.path"
	rulesConfigFile = "rules.toml"
)

// RuleRepository reads user-defined log rules. A missing file means no rules.
type RuleRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.RuleRepository = (*RuleRepository)(nil)

func NewRuleRepository(cfg *viper.Viper) (*RuleRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(RulesPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ConfigDir, rulesConfigFile)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &RuleRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *RuleRepository) List(ctx context.Context) ([]domain.RuleDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.RuleDefinition{}, nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode rules file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return nil, err
	}
	file.applyDefaults()

	rules := make([]domain.RuleDefinition, 0, len(file.Rules))
	for _, entry := range file.Rules {
		rules = append(rules, domain.RuleDefinition{
			Name:     entry.Name,
			Pattern:  entry.Pattern,
			Platform: domain.Platform(entry.Platform).Normalize(),
		})
	}

	return rules, nil
}
