package arch_test

import (
	"strings"
	"testing"
)

// layers orders the internal packages. A package imports only packages on
// strictly lower layers: leaf services, then the model, then the readers of
// game files, then the engine, then its presenters.
var layers = map[string]int{
	"config":    0,
	"ledger":    0,
	"surface":   0,
	"telemetry": 0,

	"model": 1,

	"cache":   2,
	"journal": 2,
	"status":  2,

	"engine": 3,

	"server": 4,
	"ui":     4,
}

// stdlibOnly are packages that hold pure domain logic and must not pull in
// third-party modules.
var stdlibOnly = []string{"model", "surface"}

func TestLayering(t *testing.T) {
	t.Parallel()

	for _, pkg := range packages(t) {
		layer, ok := layers[pkg]
		if !ok {
			t.Errorf("internal/%s has no layer", pkg)
			continue
		}
		for _, imp := range imports(parsePackage(t, pkg)) {
			dep, ok := strings.CutPrefix(imp, internalPrefix)
			if !ok {
				continue
			}
			if layers[dep] >= layer {
				t.Errorf("%s (layer %d) imports %s (layer %d)", pkg, layer, dep, layers[dep])
			}
		}
	}
}

func TestLayersNameRealPackages(t *testing.T) {
	t.Parallel()

	present := make(map[string]bool)
	for _, pkg := range packages(t) {
		present[pkg] = true
	}
	for pkg := range layers {
		if !present[pkg] {
			t.Errorf("layer map names %s, which has no production code", pkg)
		}
	}
}

func TestDomainCoreIsStdlibOnly(t *testing.T) {
	t.Parallel()

	for _, pkg := range stdlibOnly {
		for _, imp := range imports(parsePackage(t, pkg)) {
			if strings.HasPrefix(imp, internalPrefix) {
				continue
			}
			// Standard library paths have no dot in their first element.
			first, _, _ := strings.Cut(imp, "/")
			if strings.Contains(first, ".") {
				t.Errorf("%s imports third-party package %s", pkg, imp)
			}
		}
	}
}
