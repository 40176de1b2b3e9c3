package toml

import "fmt"

const currentRulesSchemaVersion = 1

type rulesFileSchema struct {
	Version int          `toml:"version"`
	Rules   []ruleSchema `toml:"rules"`
}

func (s *rulesFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentRulesSchemaVersion
	}
}

func (s rulesFileSchema) validateVersion() error {
	if s.Version > currentRulesSchemaVersion {
		return fmt.Errorf("unsupported rules schema version %d (current %d)", s.Version, currentRulesSchemaVersion)
	}

	return nil
}

type ruleSchema struct {
	Name     string `toml:"name"`
	Pattern  string `toml:"pattern"`
	Platform string `toml:"platform,omitempty"`
}
