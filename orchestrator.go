package scribec

import (
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Orchestrator owns the module registry and drives the per-module and
// combined passes (spec.md §4.8, "RAIIParser" in the original source).
// Module loading is synchronous and single-threaded (spec.md §5), but
// loadGroup still dedupes the actual lex+parse+type-assign work behind
// a singleflight.Group keyed by resolved path, the same mechanism a
// concurrent frontend would need for a diamond import graph.
type Orchestrator struct {
	ctx    *Context
	cfg    *Config
	loader SourceLoader

	order    []ModuleID
	pathToID map[string]ModuleID
	modPath  map[ModuleID]string
	tops     map[ModuleID]*BlockStmt
	loading  map[string]bool

	loadGroup singleflight.Group
	mainID    ModuleID
}

// NewOrchestrator builds an Orchestrator bound to ctx's arenas, cfg's
// pipeline toggles, and loader's filesystem/environment capabilities
// (spec.md §1's injected SourceLoader/Env).
func NewOrchestrator(ctx *Context, cfg *Config, loader SourceLoader) *Orchestrator {
	return &Orchestrator{
		ctx: ctx, cfg: cfg, loader: loader,
		pathToID: map[string]ModuleID{},
		modPath:  map[ModuleID]string{},
		tops:     map[ModuleID]*BlockStmt{},
		loading:  map[string]bool{},
	}
}

// moduleTag derives the string tag a NamespaceVal carries for a
// module, used to remangle member lookups after `@import` (spec.md
// §4.5 "Member access", §9 "Namespace values as string tags").
func (o *Orchestrator) moduleTag(id ModuleID) string {
	return fmt.Sprintf("mod%d", id)
}

// importModule resolves importPath relative to fromModuleID's own
// path, loads (or reuses) the target module, and returns its id.
// Called synchronously from intrinsicImport mid-TypeAssign (spec.md
// §4.8 step 1-3).
func (o *Orchestrator) importModule(fromModuleID ModuleID, importPath string) (ModuleID, error) {
	parentPath := o.modPath[fromModuleID]
	resolved, err := o.loader.GetPath(importPath, parentPath)
	if err != nil {
		return 0, err
	}
	if id, ok := o.pathToID[resolved]; ok {
		return id, nil
	}
	if o.loading[resolved] {
		return 0, fmt.Errorf("cyclic import involving '%s'", resolved)
	}
	o.loading[resolved] = true
	defer delete(o.loading, resolved)

	v, err, _ := o.loadGroup.Do(resolved, func() (interface{}, error) {
		return o.loadModule(resolved)
	})
	if err != nil {
		return 0, err
	}
	return v.(ModuleID), nil
}

// loadModule reads, lexes, parses, and type-assigns the module at
// path, recording it in module order before TypeAssign runs so a
// cyclic `@import` discovered mid-pass resolves against a module id
// that already exists (spec.md §4.8 steps 3-5).
func (o *Orchestrator) loadModule(path string) (ModuleID, error) {
	content, err := o.loader.GetContent(path)
	if err != nil {
		return 0, err
	}
	modID := o.ctx.Mods.Intern(path, content)
	o.modPath[modID] = path
	o.pathToID[path] = modID

	lx := NewLexer(modID, content, o.ctx.Diags)
	toks := lx.Lex()
	p := NewParser(o.ctx, modID, toks)
	top, err := p.ParseModule()
	if err != nil {
		return 0, err
	}
	top.IsTop = true
	o.order = append(o.order, modID)
	o.tops[modID] = top

	ta := NewTypeAssign(o.ctx, modID, o)
	additional, err := ta.Run(top)
	if err != nil {
		return 0, err
	}
	top.Stmts = append(top.Stmts, additional...)
	return modID, nil
}

// Run loads entryPath as the main module, recursively loading every
// module it (transitively) imports, splices every imported module's
// top-level block into the main module's top in import order, then
// runs the combined Simplify/Cleanup passes (spec.md §4.8 step 6).
// An internal compiler error panicked from deep inside a pass is
// recovered here and surfaced as an ordinary error (spec.md §7).
func (o *Orchestrator) Run(entryPath string) (top *BlockStmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ice, ok := r.(*ICE); ok {
				err = ice
				return
			}
			panic(r)
		}
	}()

	mainID, loadErr := o.loadModule(entryPath)
	if loadErr != nil {
		return nil, loadErr
	}
	o.mainID = mainID
	mainTop := o.tops[mainID]

	for _, id := range o.order {
		if id == mainID {
			continue
		}
		imported := o.tops[id]
		mainTop.Stmts = append(mainTop.Stmts, imported.Stmts...)
	}

	NewSimplify(o.ctx).Run(mainTop)
	if o.cfg.GetBool("pipeline.run_cleanup") {
		NewCleanup(o.ctx).Run(mainTop)
	}
	return mainTop, nil
}

// MainModuleID returns the id Run assigned to the entry module.
func (o *Orchestrator) MainModuleID() ModuleID { return o.mainID }

// ModuleOrder returns every loaded module id in load order: the main
// module first, then each imported module in the order its `@import`
// was first reached (spec.md §5 "module order").
func (o *Orchestrator) ModuleOrder() []ModuleID {
	return append([]ModuleID{}, o.order...)
}
