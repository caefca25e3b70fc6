package main

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"imgvault/internal/config"
)

const defaultMaxCmdConstructorLines = 100

func TestLeafCommandSurface(t *testing.T) {
	root := newRootCmd(&config.Config{})

	got := leafCommandPaths(root)
	want := []string{
		"album add", "album clear", "album create", "album list", "album remove", "album rm", "album show",
		"caption",
		"config get", "config keys", "config set", "config show",
		"download", "import", "list", "login", "logout", "migrate", "reconcile", "rm", "show", "srv", "upload",
		"user add", "user delete", "user list",
	}
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Fatalf("leaf commands mismatch\ngot:  %v\nwant: %v", got, want)
	}
}

func TestEveryCommandHasShortHelp(t *testing.T) {
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		if strings.TrimSpace(cmd.Short) == "" {
			t.Fatalf("command %q has no short help", cmd.CommandPath())
		}
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}
	walk(newRootCmd(&config.Config{}))
}

func TestAlbumDeleteRequiresExplicitStorageChoice(t *testing.T) {
	cases := [][]string{
		{"album", "rm", "trip"},
		{"album", "clear", "trip"},
		{"album", "rm", "trip", "--from-storage", "--keep-images"},
	}
	for _, args := range cases {
		err := executeForTest(t, args...)
		if err == nil || !strings.Contains(err.Error(), "from-storage") {
			t.Fatalf("%v: expected storage flag error, got %v", args, err)
		}
	}
}

func TestJSONAndYAMLAreMutuallyExclusive(t *testing.T) {
	err := executeForTest(t, "list", "--json", "--yaml")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutually exclusive error, got %v", err)
	}
}

func TestCommandConstructorsStaySmall(t *testing.T) {
	maxLines := maxCmdConstructorLines()
	fset := token.NewFileSet()

	for _, path := range commandSourceFiles(t) {
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name == nil || fn.Body == nil || !isCommandConstructor(fn.Name.Name) {
				continue
			}
			length := fset.Position(fn.Body.Rbrace).Line - fset.Position(fn.Body.Lbrace).Line + 1
			if length > maxLines {
				t.Fatalf("constructor %s in %s is too large: %d lines (max %d)",
					fn.Name.Name, filepath.Base(path), length, maxLines)
			}
		}
	}
}

func executeForTest(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv(logLevelEnvKey, "")
	t.Setenv(logFormatEnvKey, "")

	root := newRootCmd(&config.Config{})
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func leafCommandPaths(root *cobra.Command) []string {
	var out []string
	var walk func(cmd *cobra.Command, prefix []string)
	walk = func(cmd *cobra.Command, prefix []string) {
		children := cmd.Commands()
		if len(children) == 0 {
			out = append(out, strings.Join(prefix, " "))
			return
		}
		for _, child := range children {
			walk(child, append(slices.Clone(prefix), child.Name()))
		}
	}
	walk(root, nil)
	return out
}

func commandSourceFiles(t *testing.T) []string {
	t.Helper()
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(self), "*.go"))
	if err != nil {
		t.Fatalf("glob command sources: %v", err)
	}
	files := make([]string, 0, len(matches))
	for _, path := range matches {
		if !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
	}
	return files
}

func isCommandConstructor(name string) bool {
	return strings.HasPrefix(name, "new") && strings.HasSuffix(name, "Cmd")
}

func maxCmdConstructorLines() int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv("IMGVAULT_MAX_CMD_CONSTRUCTOR_LINES")))
	if err != nil || parsed <= 0 {
		return defaultMaxCmdConstructorLines
	}
	return parsed
}
