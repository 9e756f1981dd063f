package scribec

import (
	"testing"

	"golang.org/x/tools/txtar"
)

// TestOrchestratorCrossModuleImport exercises spec.md §4.8's module
// loading: main imports a library module via `@import`, and the
// library's top-level declarations end up spliced into the combined
// tree the Orchestrator returns.
func TestOrchestratorCrossModuleImport(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	cfg := NewConfig()
	// Cleanup's dead-function stripping is exercised on its own in
	// simplify_test.go; disable it here so this test can check the
	// import splice in isolation from whether helper() gets called.
	cfg.SetBool("pipeline.run_cleanup", false)

	loader := NewInMemorySourceLoader("/lib", nil)
	loader.Add("/main.sc", []byte(`
let ns = @import("./util.sc");
fn main() -> i64 {
	return 0;
}
`))
	loader.Add("/util.sc", []byte(`
fn helper() -> i64 {
	return 42;
}
`))

	orch := NewOrchestrator(ctx, cfg, loader)
	top, err := orch.Run("/main.sc")
	if err != nil {
		t.Fatalf("orchestrator run error: %v\n%s", err, diags.Render())
	}
	if diags.HasErrors() {
		t.Fatalf("orchestrator diagnostics:\n%s", diags.Render())
	}

	if len(orch.ModuleOrder()) != 2 {
		t.Fatalf("module order has %d entries, want 2 (main + util)", len(orch.ModuleOrder()))
	}
	if findFnDef(top, "helper") == nil {
		t.Fatal("util.sc's helper function was not spliced into the combined tree")
	}
}

// TestOrchestratorHandlesCyclicImport checks that two modules
// importing each other resolve cleanly rather than deadlocking on
// singleflight: the second module's back-reference sees the first
// module's id, already recorded before its own TypeAssign pass began
// (spec.md §4.8, §7).
func TestOrchestratorHandlesCyclicImport(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	cfg := NewConfig()

	loader := NewInMemorySourceLoader("/lib", nil)
	loader.Add("/a.sc", []byte(`let b = @import("./b.sc");`))
	loader.Add("/b.sc", []byte(`let a = @import("./a.sc");`))

	orch := NewOrchestrator(ctx, cfg, loader)
	_, err := orch.Run("/a.sc")
	if err != nil {
		t.Fatalf("orchestrator run error on cyclic import: %v\n%s", err, diags.Render())
	}
	if len(orch.ModuleOrder()) != 2 {
		t.Fatalf("module order has %d entries, want 2 (a + b)", len(orch.ModuleOrder()))
	}
}

// TestOrchestratorDedupesDiamondImport checks that two modules
// importing the same third module only load it once (spec.md §4.8's
// singleflight-backed dedup).
func TestOrchestratorDedupesDiamondImport(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	cfg := NewConfig()

	loader := NewInMemorySourceLoader("/lib", nil)
	loader.Add("/main.sc", []byte(`
let l = @import("./left.sc");
let r = @import("./right.sc");
fn main() -> i64 {
	return 0;
}
`))
	loader.Add("/left.sc", []byte(`let shared = @import("./shared.sc");`))
	loader.Add("/right.sc", []byte(`let shared = @import("./shared.sc");`))
	loader.Add("/shared.sc", []byte(`fn sharedFn() -> i64 { return 1; }`))

	orch := NewOrchestrator(ctx, cfg, loader)
	_, err := orch.Run("/main.sc")
	if err != nil {
		t.Fatalf("orchestrator run error: %v\n%s", err, diags.Render())
	}

	order := orch.ModuleOrder()
	seen := map[ModuleID]int{}
	for _, id := range order {
		seen[id]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("module %v loaded %d times, want at most once", id, n)
		}
	}
	if len(order) != 4 {
		t.Fatalf("module order has %d entries, want 4 (main, left, right, shared)", len(order))
	}
}

// TestOrchestratorTxtarFixture exercises an import in the style of
// spec.md §8 scenario 6 (a main module importing ./io.sc, whose
// println must be spliced into the combined tree) from a fixture
// encoded as a single txtar
// archive rather than one loader.Add call per file, per SPEC_FULL.md's
// DOMAIN STACK entry for golang.org/x/tools/txtar.
func TestOrchestratorTxtarFixture(t *testing.T) {
	archive := txtar.Parse([]byte(`
-- main.sc --
let io = @import("./io.sc");
fn main() -> i64 {
	return 0;
}
-- io.sc --
fn println() -> i64 {
	return 0;
}
`))

	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	cfg := NewConfig()
	cfg.SetBool("pipeline.run_cleanup", false)

	loader := NewInMemorySourceLoader("/lib", nil)
	for _, f := range archive.Files {
		loader.Add("/"+f.Name, f.Data)
	}

	orch := NewOrchestrator(ctx, cfg, loader)
	top, err := orch.Run("/main.sc")
	if err != nil {
		t.Fatalf("orchestrator run error: %v\n%s", err, diags.Render())
	}
	if diags.HasErrors() {
		t.Fatalf("orchestrator diagnostics:\n%s", diags.Render())
	}
	if findFnDef(top, "println") == nil {
		t.Fatal("io.sc's println was not spliced into the combined tree")
	}
}
