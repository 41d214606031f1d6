package config

import (
	"errors"
	"strings"
)

// Parse reads JSONC configuration content on top of base.
//
// Blank content yields base unchanged. Comments and trailing commas are
// accepted; unknown keys are rejected with a line/column position.
func Parse(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("config must be a JSONC object")
	}

	return parseJSONC(normalized, base)
}
