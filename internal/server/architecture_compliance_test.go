package server

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// muxRoute is one mux.HandleFunc registration found in routes.go.
type muxRoute struct {
	method  string
	path    string
	handler string
	authed  bool
}

func (r muxRoute) String() string { return r.method + " " + r.path }

func TestMediaMutationsUseServiceBoundary(t *testing.T) {
	methods := serverMethods(t)

	checked := 0
	for _, route := range muxRoutes(t) {
		if route.method == "GET" || !isMediaPath(route.path) {
			continue
		}
		fn, ok := methods[route.handler]
		if !ok {
			t.Fatalf("%s: handler %s not found", route, route.handler)
		}
		used := fieldCalls(fn)
		if len(used["store"]) > 0 {
			t.Fatalf("%s: %s reaches into s.store (%s)", route, route.handler, strings.Join(used["store"], ", "))
		}
		if len(used["media"]) == 0 {
			t.Fatalf("%s: %s never calls s.media", route, route.handler)
		}
		checked++
	}
	if checked == 0 {
		t.Fatal("found no media mutation routes")
	}
}

func TestOwnerRoutesRequireAuth(t *testing.T) {
	public := map[string]bool{"/api/register": true, "/api/login": true}
	for _, route := range muxRoutes(t) {
		if strings.HasPrefix(route.path, "/api/") && !public[route.path] && !route.authed {
			t.Fatalf("%s is not wrapped in requireAuth", route)
		}
	}
}

func isMediaPath(path string) bool {
	return strings.HasPrefix(path, "/api/images") || strings.HasPrefix(path, "/api/albums")
}

func muxRoutes(t *testing.T) []muxRoute {
	t.Helper()

	file, err := parser.ParseFile(token.NewFileSet(), filepath.Join(packageDir(t), "routes.go"), nil, 0)
	if err != nil {
		t.Fatalf("parse routes.go: %v", err)
	}

	var routes []muxRoute
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || selectorName(call.Fun) != "HandleFunc" || len(call.Args) != 2 {
			return true
		}
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		pattern, err := strconv.Unquote(lit.Value)
		if err != nil {
			t.Fatalf("route pattern %s: %v", lit.Value, err)
		}
		method, path, ok := strings.Cut(pattern, " ")
		if !ok {
			return true
		}

		route := muxRoute{method: method, path: strings.TrimSpace(path)}
		target := call.Args[1]
		if wrap, ok := target.(*ast.CallExpr); ok && selectorName(wrap.Fun) == "requireAuth" && len(wrap.Args) == 1 {
			route.authed = true
			target = wrap.Args[0]
		}
		route.handler = selectorName(target)
		if route.handler == "" {
			t.Fatalf("%s: handler is not a method value", route)
		}
		routes = append(routes, route)
		return true
	})
	return routes
}

// serverMethods indexes the *Server methods declared in non-test handler files.
func serverMethods(t *testing.T) map[string]*ast.FuncDecl {
	t.Helper()

	entries, err := os.ReadDir(packageDir(t))
	if err != nil {
		t.Fatalf("read package dir: %v", err)
	}
	out := make(map[string]*ast.FuncDecl)
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "handlers") || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(packageDir(t), name), nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, decl := range file.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok && receiverType(fn) == "Server" {
				out[fn.Name.Name] = fn
			}
		}
	}
	if len(out) == 0 {
		t.Fatal("no handler methods found")
	}
	return out
}

// fieldCalls groups s.<field>.<method>(...) calls in fn by field name.
func fieldCalls(fn *ast.FuncDecl) map[string][]string {
	out := make(map[string][]string)
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		method, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		field, ok := method.X.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if recv, ok := field.X.(*ast.Ident); ok && recv.Name == "s" {
			out[field.Sel.Name] = append(out[field.Sel.Name], method.Sel.Name)
		}
		return true
	})
	return out
}

func selectorName(expr ast.Expr) string {
	if sel, ok := expr.(*ast.SelectorExpr); ok {
		return sel.Sel.Name
	}
	return ""
}

func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) != 1 {
		return ""
	}
	star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	if !ok {
		return ""
	}
	if ident, ok := star.X.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

func packageDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(file)
}
