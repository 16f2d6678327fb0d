// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogOverrideFile is the YAML shape of a catalog override file. Overrides
// adjust tunable knobs (weight, success rate, delays, thresholds) on existing
// scenarios by id; they cannot add or remove scenarios.
type catalogOverrideFile struct {
	DatabaseErrors []scenarioOverride `yaml:"database_errors"`
	Timeouts       []scenarioOverride `yaml:"timeouts"`
	Cascades       []scenarioOverride `yaml:"cascades"`
	HTTPErrors     []scenarioOverride `yaml:"http_errors"`
}

// scenarioOverride tunes one scenario. Pointer fields distinguish "absent"
// from zero values.
type scenarioOverride struct {
	ID               string   `yaml:"id"`
	Weight           *float64 `yaml:"weight"`
	SuccessRate      *float64 `yaml:"success_rate"`
	BaseDelayMs      *int     `yaml:"base_delay_ms"`
	TimeoutMs        *int     `yaml:"timeout_ms"`
	BreakerThreshold *int     `yaml:"circuit_breaker_threshold"`
}

// LoadCatalogOverrides reads a YAML override file and applies it on top of
// the built-in catalogs.
//
// # Outputs
//
//   - *CatalogSet: built-ins with overrides applied
//   - error: unreadable file, malformed YAML, or an override naming an
//     unknown scenario id (all configuration defects)
func LoadCatalogOverrides(path string) (*CatalogSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: reading catalog overrides: %w", err)
	}

	var file catalogOverrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("engine: parsing catalog overrides: %w", err)
	}

	cats := DefaultCatalogs()
	for _, group := range []struct {
		cat       Category
		overrides []scenarioOverride
	}{
		{CategoryDatabaseError, file.DatabaseErrors},
		{CategoryTimeout, file.Timeouts},
		{CategoryCascade, file.Cascades},
		{CategoryHTTPError, file.HTTPErrors},
	} {
		for _, o := range group.overrides {
			if err := cats.applyOverride(group.cat, o); err != nil {
				return nil, err
			}
		}
	}
	return cats, nil
}

// applyOverride mutates one scenario in place. Only valid before the
// CatalogSet is handed to an Engine.
func (c *CatalogSet) applyOverride(cat Category, o scenarioOverride) error {
	scenarios, ok := c.byCategory[cat]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	for i := range scenarios {
		if scenarios[i].ID != o.ID {
			continue
		}
		if o.Weight != nil {
			scenarios[i].Weight = *o.Weight
		}
		if o.SuccessRate != nil {
			scenarios[i].SuccessRate = *o.SuccessRate
		}
		if o.BaseDelayMs != nil {
			scenarios[i].BaseDelayMs = *o.BaseDelayMs
		}
		if o.TimeoutMs != nil {
			scenarios[i].TimeoutMs = *o.TimeoutMs
		}
		if o.BreakerThreshold != nil {
			scenarios[i].BreakerThreshold = *o.BreakerThreshold
		}
		return nil
	}
	return fmt.Errorf("%w: %s/%s (in override file)", ErrUnknownScenario, cat, o.ID)
}
