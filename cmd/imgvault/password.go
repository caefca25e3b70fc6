package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errPasswordInput = errors.New("password required: pass --password-stdin or run from a terminal")

// readPassword reads from stdin when fromStdin is set and prompts on the
// terminal otherwise.
func readPassword(fromStdin bool, prompt string) (string, error) {
	if fromStdin {
		return readPasswordFrom(os.Stdin)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errPasswordInput
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readPasswordFrom(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", errPasswordInput
	}
	return password, nil
}
