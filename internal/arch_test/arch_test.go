// Package arch_test checks the package structure of parallax by reading its
// source: which packages may import which, where the worker interfaces live,
// and what state is allowed at package level.
package arch_test

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

const internalPrefix = "github.com/papapumpkin/parallax/internal/"

// internalDir returns the internal/ directory this file lives in.
func internalDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(filepath.Dir(file))
}

// packages lists the internal packages that have production code.
func packages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(internalDir(t))
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, ent := range entries {
		if !ent.IsDir() || ent.Name() == "arch_test" {
			continue
		}
		if len(parsePackage(t, ent.Name())) > 0 {
			out = append(out, ent.Name())
		}
	}
	return out
}

// parsePackage parses the non-test files of an internal package.
func parsePackage(t *testing.T, pkg string) []*ast.File {
	t.Helper()
	dir := filepath.Join(internalDir(t), pkg)
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	var files []*ast.File
	for _, p := range paths {
		if strings.HasSuffix(p, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, p, nil, parser.SkipObjectResolution)
		if err != nil {
			t.Fatalf("parse %s: %v", p, err)
		}
		files = append(files, f)
	}
	return files
}

// imports returns the distinct import paths of files.
func imports(files []*ast.File) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil || seen[path] {
				continue
			}
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}

// methodSets maps each receiver type in files to its method names.
func methodSets(files []*ast.File) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, f := range files {
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			recv := fn.Recv.List[0].Type
			if star, ok := recv.(*ast.StarExpr); ok {
				recv = star.X
			}
			id, ok := recv.(*ast.Ident)
			if !ok {
				continue
			}
			if out[id.Name] == nil {
				out[id.Name] = make(map[string]bool)
			}
			out[id.Name][fn.Name.Name] = true
		}
	}
	return out
}

// interfaces maps each interface type declared in files to its method names.
func interfaces(files []*ast.File) map[string][]string {
	out := make(map[string][]string)
	for _, f := range files {
		ast.Inspect(f, func(n ast.Node) bool {
			ts, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				return true
			}
			var methods []string
			for _, m := range it.Methods.List {
				for _, name := range m.Names {
					methods = append(methods, name.Name)
				}
			}
			out[ts.Name.Name] = methods
			return false
		})
	}
	return out
}
