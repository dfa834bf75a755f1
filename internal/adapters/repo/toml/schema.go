package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int          `toml:"version"`
	Items   []itemSchema `toml:"items"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported items schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type itemSchema struct {
	OrderbookID string `toml:"orderbook_id"`
	ISIN        string `toml:"isin,omitempty"`
	Name        string `toml:"name,omitempty"`
	URL         string `toml:"url"`
}
