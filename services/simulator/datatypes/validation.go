// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// scenarioIDPattern accepts catalog-style identifiers: lowercase snake_case
// with optional hyphens ("connection_refused", "payment-service").
var scenarioIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// RegisterValidators installs the custom binding validators used by the
// simulator request types. Call once during router setup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("scenario_id", validScenarioID)
}

func validScenarioID(fl validator.FieldLevel) bool {
	return scenarioIDPattern.MatchString(fl.Field().String())
}
