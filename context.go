package scribec

// Context owns the three arenas a compile run allocates from:
// statements, types, and values (spec.md §3.6). There is no reference
// counting; arena lifetime is the whole compilation run, and cyclic
// type graphs are broken logically via Ptr.IsWeak rather than
// physically reclaimed.
type Context struct {
	stmtIDs idAllocator

	Types  *TypeSystem
	Values *ValueRegistry
	Mods   *ModuleLocRegistry
	Diags  *Diagnostics
}

// NewContext wires together a fresh set of arenas bound to the given
// module registry and diagnostics sink.
func NewContext(mods *ModuleLocRegistry, diags *Diagnostics) *Context {
	ctx := &Context{Mods: mods, Diags: diags}
	ctx.Types = newTypeSystem()
	ctx.Values = newValueRegistry()
	return ctx
}
