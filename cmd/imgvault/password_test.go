package main

import (
	"errors"
	"strings"
	"testing"
)

func TestReadPasswordFromTrimsNewline(t *testing.T) {
	got, err := readPasswordFrom(strings.NewReader("correct-horse\n"))
	if err != nil {
		t.Fatalf("read password: %v", err)
	}
	if got != "correct-horse" {
		t.Fatalf("unexpected password %q", got)
	}
}

func TestReadPasswordFromRejectsEmptyInput(t *testing.T) {
	_, err := readPasswordFrom(strings.NewReader("  \n"))
	if !errors.Is(err, errPasswordInput) {
		t.Fatalf("expected errPasswordInput, got %v", err)
	}
}
