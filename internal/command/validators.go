// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/output"
	"github.com/staranto/leobotgo/internal/subsystem"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func BackendValidator(value any) error {
	valid := []string{subsystem.BackendFile, subsystem.BackendS3}
	if !slices.Contains(valid, value.(string)) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}

// KindValidator accepts a store kind name, and "all" when allowAll is set.
func KindValidator(allowAll bool) FlagValidatorType {
	return func(value any) error {
		s := value.(string)
		if allowAll && s == "all" {
			return nil
		}
		_, err := backend.KindByName(s)
		return err
	}
}

func PositiveDurationValidator(value any) error {
	if value.(time.Duration) <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
