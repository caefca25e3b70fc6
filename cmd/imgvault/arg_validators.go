package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgvault/internal/models"
)

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.New(message)
		}
		return nil
	}
}

// requireImageIDs checks that at least one argument follows the first skip
// arguments and that each of them is an image id.
func requireImageIDs(skip int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) <= skip {
			return errors.New(message)
		}
		for _, raw := range args[skip:] {
			if !models.ValidImageID(normalizeImageArg(raw)) {
				return fmt.Errorf("invalid image id %q", raw)
			}
		}
		return nil
	}
}

// requireImageIDArg checks the argument at index, leaving arity to other
// validators.
func requireImageIDArg(index int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if index < len(args) && !models.ValidImageID(normalizeImageArg(args[index])) {
			return fmt.Errorf("invalid image id %q", args[index])
		}
		return nil
	}
}

func normalizeImageArg(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeImageArgs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		out = append(out, normalizeImageArg(id))
	}
	return out
}
