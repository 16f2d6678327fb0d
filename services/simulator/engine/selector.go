// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// SelectScenario picks one scenario from a catalog by cumulative-weight
// sampling.
//
// # Description
//
// Draws r uniformly from [0, totalWeight) and walks the catalog accumulating
// weights, returning the first entry whose cumulative weight exceeds r. The
// same selector serves all four fault families; only the catalog differs.
//
// # Inputs
//
//   - catalog: non-empty, all weights > 0 (enforced by CatalogSet.Validate)
//   - random: uniform draw in [0, 1)
//
// # Outputs
//
//   - ScenarioDefinition: the selected entry
//   - error: ErrEmptyCatalog for an empty catalog
//
// # Limitations
//
//   - Floating-point drift can exhaust the walk without a match; the last
//     entry is returned in that case.
func SelectScenario(catalog []ScenarioDefinition, random float64) (ScenarioDefinition, error) {
	if len(catalog) == 0 {
		return ScenarioDefinition{}, ErrEmptyCatalog
	}

	var totalWeight float64
	for _, s := range catalog {
		totalWeight += s.Weight
	}

	r := random * totalWeight
	var cumulative float64
	for _, s := range catalog {
		cumulative += s.Weight
		if r < cumulative {
			return s, nil
		}
	}

	// Drift fallback.
	return catalog[len(catalog)-1], nil
}

// SelectScenario draws from the engine's random source and selects from the
// named family's catalog.
func (e *Engine) SelectScenario(cat Category) (ScenarioDefinition, error) {
	catalog, err := e.catalogs.Catalog(cat)
	if err != nil {
		return ScenarioDefinition{}, err
	}
	return SelectScenario(catalog, e.random())
}
