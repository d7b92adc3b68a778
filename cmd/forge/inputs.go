// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SahinS14/CognitoForge/pkg/validation"
)

var inputValidator *validator.Validate

func init() {
	inputValidator = validator.New()
	inputValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("name"); name != "" {
			return name
		}
		return f.Name
	})
	if err := inputValidator.RegisterValidation("repoid", func(fl validator.FieldLevel) bool {
		return validation.IsIdentifier(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register repoid validation: %v", err))
	}
}

type repoInput struct {
	RepoID string `name:"repo-id" validate:"required,max=128,repoid"`
	RunID  string `name:"run" validate:"omitempty,max=256,repoid"`
}

type analyzeInput struct {
	RepoID  string `name:"repo-id" validate:"required,max=128,repoid"`
	RepoURL string `name:"repo-url" validate:"omitempty,url"`
}

// promptInput mirrors the backend's 1..10000 character limit on /api/gemini.
type promptInput struct {
	Prompt string `name:"prompt" validate:"required,max=10000"`
}

// validateInput checks v against its validate tags and turns violations
// into one readable error.
func validateInput(v any) error {
	err := inputValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "repoid":
		return fmt.Sprintf("%s %q may only contain letters, digits, hyphens and underscores", fe.Field(), fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", fe.Field(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
