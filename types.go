package scribec

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// TypeKind discriminates the closed set of type variants (spec.md §3.4).
type TypeKind int

const (
	TyVoid TypeKind = iota
	TyAny
	TyInt
	TyFlt
	TyTypeTy
	TyPtr
	TyStruct
	TyFunc
	TyVariadic
)

// TypeInfo bits govern compatibility without affecting a type's
// canonical identity; they are stripped before hashing (spec.md §3.4).
type TypeInfo uint8

const (
	InfoRef TypeInfo = 1 << iota
	InfoStatic
	InfoConst
	InfoVolatile
	InfoComptime
	InfoVariadic
)

func (i TypeInfo) Has(bit TypeInfo) bool { return i&bit != 0 }

// TypeID is a canonical structural hash of a type, independent of the
// info bits. Two types with the same TypeID are the same type for
// every purpose except the loosened matching IsCompatible performs
// for template holes (see LooseID).
type TypeID [16]byte

func (id TypeID) String() string { return fmt.Sprintf("%x", id[:8]) }

// Type is the common interface every type variant satisfies, mirroring
// go/types' Type interface (Underlying/String) rather than forcing a
// single tagged struct — Ptr/Struct/Func recursion reads far more
// naturally through an interface.
type Type interface {
	Kind() TypeKind
	Info() TypeInfo
	SetInfo(TypeInfo)
	String() string
}

// TypeBase carries the info bits shared by every variant.
type TypeBase struct{ info TypeInfo }

func (b *TypeBase) Info() TypeInfo      { return b.info }
func (b *TypeBase) SetInfo(i TypeInfo)  { b.info = i }

type VoidType struct{ TypeBase }

func (t *VoidType) Kind() TypeKind { return TyVoid }
func (t *VoidType) String() string { return "void" }

type AnyType struct{ TypeBase }

func (t *AnyType) Kind() TypeKind { return TyAny }
func (t *AnyType) String() string { return "any" }

type IntType struct {
	TypeBase
	Bits   int
	Signed bool
}

func (t *IntType) Kind() TypeKind { return TyInt }
func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}

type FltType struct {
	TypeBase
	Bits int
}

func (t *FltType) Kind() TypeKind  { return TyFlt }
func (t *FltType) String() string  { return fmt.Sprintf("f%d", t.Bits) }

// templateSlot is the arena-owned cell a TypeTy hole fills during
// mergeTemplatesFrom and clears during unmergeTemplates (spec.md §9
// Design Notes: "an arena-owned slot id, not interior mutability on a
// shared type"). depth supports reentrant fills under recursive
// templating.
type templateSlot struct {
	id     int
	filled Type
	depth  int
}

// TypeTyType is the "type of type" metatype; when its slot is empty
// it is a template hole (spec.md §3.4).
type TypeTyType struct {
	TypeBase
	slot *templateSlot
}

func (t *TypeTyType) Kind() TypeKind { return TyTypeTy }
func (t *TypeTyType) String() string {
	if t.slot != nil && t.slot.filled != nil {
		return fmt.Sprintf("type(%s)", t.slot.filled.String())
	}
	return "type(?)"
}

// Contained returns the slot's filled type, or nil if the hole is
// still open.
func (t *TypeTyType) Contained() Type {
	if t.slot == nil {
		return nil
	}
	return t.slot.filled
}

type PtrType struct {
	TypeBase
	To     Type
	Count  int // pointer indirection count, e.g. 2 for **T
	IsWeak bool
}

func (t *PtrType) Kind() TypeKind { return TyPtr }
func (t *PtrType) String() string {
	return strings.Repeat("*", max1(t.Count)) + t.To.String()
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

type StructType struct {
	TypeBase
	Name          string
	FieldNames    []string
	FieldTypes    []Type
	TemplateNames []string
	Templates     []Type // TypeTyType holes, or filled concrete types once specialized
	IsExtern      bool
}

func (t *StructType) Kind() TypeKind { return TyStruct }
func (t *StructType) String() string {
	if len(t.TemplateNames) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Templates))
	for i, tp := range t.Templates {
		parts[i] = tp.String()
	}
	return fmt.Sprintf("%s<%s>", t.Name, strings.Join(parts, ", "))
}

// IntrinsicTag distinguishes when an intrinsic's handler runs.
type IntrinsicTag int

const (
	IntrinsicNone IntrinsicTag = iota
	IPARSE
	IVALUE
)

type FuncType struct {
	TypeBase
	ArgNames    []string
	ArgTypes    []Type
	Ret         Type
	ArgComptime []bool
	// ArgRef marks which parameters were declared with the Ref mask;
	// ValueAssign write-back copies the final parameter value back to
	// the caller's argument for these (spec.md §4.6).
	ArgRef []bool
	Intrinsic   *IntrinsicDef
	IntrinType  IntrinsicTag
	IsExtern    bool
	IsVariadic  bool

	// SpecID is assigned fresh on every template specialization
	// (spec.md §4.3 createCall, §9 Design Notes). TemplateID is the
	// structural id of the *unspecialized* template function type
	// and stays equal across all specializations of the same
	// template, used to dedupe in-flight instantiation work
	// (spec.md §4.5.1 step 1; this is the spec's "nonUniqId").
	SpecID     uint64
	TemplateID TypeID
}

func (t *FuncType) Kind() TypeKind { return TyFunc }
func (t *FuncType) String() string {
	parts := make([]string, len(t.ArgTypes))
	for i, at := range t.ArgTypes {
		parts[i] = at.String()
	}
	return fmt.Sprintf("fn(%s): %s", strings.Join(parts, ", "), t.Ret.String())
}

type VariadicType struct {
	TypeBase
	Args []Type
}

func (t *VariadicType) Kind() TypeKind { return TyVariadic }
func (t *VariadicType) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("variadic(%s)", strings.Join(parts, ", "))
}

// weakDepthLimit bounds recursion through a weak pointer edge;
// beyond it, operations treat the inner type as opaque (spec.md §3.4,
// §9).
const weakDepthLimit = 7

// TypeSystem is a hash-consing allocator producing canonical Types.
// It owns the process-wide (within one Context) contained-types slot
// map and template-in-progress guard described in spec.md §3.4/§5.
type TypeSystem struct {
	nextSlotID   int
	nextSpecID   uint64
	templatingOf map[TypeID]int // reentrancy depth per struct/func being templated
}

func newTypeSystem() *TypeSystem {
	return &TypeSystem{templatingOf: map[TypeID]int{}}
}

// NewTypeTyHole allocates a fresh, unfilled metatype slot.
func (ts *TypeSystem) NewTypeTyHole() *TypeTyType {
	ts.nextSlotID++
	return &TypeTyType{slot: &templateSlot{id: ts.nextSlotID}}
}

func (ts *TypeSystem) freshSpecID() uint64 {
	ts.nextSpecID++
	return ts.nextSpecID
}

// ---- identity ----

func writeByte(h *hashState, b byte)    { h.Write([]byte{b}) }
func writeBool(h *hashState, b bool) {
	if b {
		writeByte(h, 1)
	} else {
		writeByte(h, 0)
	}
}
func writeUint(h *hashState, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}
func writeStr(h *hashState, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

type hashState struct{ h interface{ Write([]byte) (int, error) } }

func (h *hashState) Write(b []byte) { h.h.Write(b) }

func newHashState() *hashState {
	hh, err := blake2b.New(16, nil)
	if err != nil {
		panic(err) // fixed-size digest, nil key: cannot fail
	}
	return &hashState{h: hh}
}

func (h *hashState) Sum() TypeID {
	var out TypeID
	sum := h.h.(interface{ Sum([]byte) []byte }).Sum(nil)
	copy(out[:], sum)
	return out
}

// ID returns t's canonical structural identity: base kind plus
// structural content, bounded through weak pointer edges at
// weakDepthLimit (spec.md §3.4).
func (ts *TypeSystem) ID(t Type) TypeID {
	h := newHashState()
	ts.hashType(h, t, 0, false)
	return h.Sum()
}

// LooseID is the spec's uniqId(): structural equality modulo
// unresolved metatype slots. An unfilled TypeTy hole hashes to a
// shared wildcard marker so two otherwise-identical shapes that only
// differ by "has this template slot been filled yet" compare equal
// here even though ID() would distinguish them.
func (ts *TypeSystem) LooseID(t Type) TypeID {
	h := newHashState()
	ts.hashType(h, t, 0, true)
	return h.Sum()
}

func (ts *TypeSystem) hashType(h *hashState, t Type, weakDepth int, loose bool) {
	if t == nil {
		writeByte(h, 0xFF)
		return
	}
	switch v := t.(type) {
	case *VoidType:
		writeByte(h, byte(TyVoid))
	case *AnyType:
		writeByte(h, byte(TyAny))
	case *IntType:
		writeByte(h, byte(TyInt))
		writeUint(h, uint64(v.Bits))
		writeBool(h, v.Signed)
	case *FltType:
		writeByte(h, byte(TyFlt))
		writeUint(h, uint64(v.Bits))
	case *TypeTyType:
		writeByte(h, byte(TyTypeTy))
		if v.Contained() != nil {
			ts.hashType(h, v.Contained(), weakDepth, loose)
		} else if loose {
			writeByte(h, 0xAA) // wildcard: any unfilled hole matches any other
		} else {
			writeUint(h, uint64(v.slot.id))
		}
	case *PtrType:
		writeByte(h, byte(TyPtr))
		writeUint(h, uint64(v.Count))
		writeBool(h, v.IsWeak)
		nextDepth := weakDepth
		if v.IsWeak {
			nextDepth++
		}
		if nextDepth >= weakDepthLimit {
			// Treat the inner type opaquely: identify it by kind and
			// (for structs) name only, without recursing further.
			ts.hashOpaque(h, v.To)
			return
		}
		ts.hashType(h, v.To, nextDepth, loose)
	case *StructType:
		writeByte(h, byte(TyStruct))
		writeStr(h, v.Name)
		writeUint(h, uint64(len(v.FieldTypes)))
		for i, ft := range v.FieldTypes {
			writeStr(h, v.FieldNames[i])
			ts.hashType(h, ft, weakDepth, loose)
		}
		for _, tp := range v.Templates {
			ts.hashType(h, tp, weakDepth, loose)
		}
	case *FuncType:
		writeByte(h, byte(TyFunc))
		writeUint(h, uint64(len(v.ArgTypes)))
		for _, at := range v.ArgTypes {
			ts.hashType(h, at, weakDepth, loose)
		}
		ts.hashType(h, v.Ret, weakDepth, loose)
		writeBool(h, v.IsVariadic)
		writeUint(h, v.SpecID)
	case *VariadicType:
		writeByte(h, byte(TyVariadic))
		writeUint(h, uint64(len(v.Args)))
		for _, a := range v.Args {
			ts.hashType(h, a, weakDepth, loose)
		}
	default:
		writeByte(h, 0xEE)
	}
}

func (ts *TypeSystem) hashOpaque(h *hashState, t Type) {
	if t == nil {
		writeByte(h, 0xFF)
		return
	}
	writeByte(h, byte(t.Kind()))
	if st, ok := t.(*StructType); ok {
		writeStr(h, st.Name)
	}
}

// IsTemplate reports whether any TypeTyType t reaches has an empty
// slot (spec.md §3.4).
func (ts *TypeSystem) IsTemplate(t Type) bool {
	found := false
	ts.walkHoles(t, 0, map[Type]bool{}, func(hole *TypeTyType) {
		if hole.Contained() == nil {
			found = true
		}
	})
	return found
}

func (ts *TypeSystem) walkHoles(t Type, weakDepth int, seen map[Type]bool, visit func(*TypeTyType)) {
	if t == nil || seen[t] {
		return
	}
	switch v := t.(type) {
	case *TypeTyType:
		visit(v)
		if v.Contained() != nil {
			ts.walkHoles(v.Contained(), weakDepth, seen, visit)
		}
	case *PtrType:
		nextDepth := weakDepth
		if v.IsWeak {
			nextDepth++
			seen[t] = true
		}
		if nextDepth >= weakDepthLimit {
			return
		}
		ts.walkHoles(v.To, nextDepth, seen, visit)
	case *StructType:
		seen[t] = true
		for _, ft := range v.FieldTypes {
			ts.walkHoles(ft, weakDepth, seen, visit)
		}
		for _, tp := range v.Templates {
			ts.walkHoles(tp, weakDepth, seen, visit)
		}
	case *FuncType:
		for _, at := range v.ArgTypes {
			ts.walkHoles(at, weakDepth, seen, visit)
		}
		ts.walkHoles(v.Ret, weakDepth, seen, visit)
	case *VariadicType:
		for _, a := range v.Args {
			ts.walkHoles(a, weakDepth, seen, visit)
		}
	}
}

// Clone performs a structural deep clone. When asIs is false, a fully
// satisfied TypeTy unwraps to its contained type rather than cloning
// the TypeTy wrapper itself (spec.md §4.3). Clones stop recursing once
// weakDepth reaches weakDepthLimit.
func (ts *TypeSystem) Clone(t Type, asIs bool, weakDepth int) Type {
	return ts.cloneRec(t, asIs, weakDepth, map[Type]Type{})
}

func (ts *TypeSystem) cloneRec(t Type, asIs bool, weakDepth int, seen map[Type]Type) Type {
	if t == nil {
		return nil
	}
	if c, ok := seen[t]; ok {
		return c
	}
	switch v := t.(type) {
	case *VoidType:
		return &VoidType{TypeBase: v.TypeBase}
	case *AnyType:
		return &AnyType{TypeBase: v.TypeBase}
	case *IntType:
		return &IntType{TypeBase: v.TypeBase, Bits: v.Bits, Signed: v.Signed}
	case *FltType:
		return &FltType{TypeBase: v.TypeBase, Bits: v.Bits}
	case *TypeTyType:
		if !asIs && v.Contained() != nil {
			return ts.cloneRec(v.Contained(), asIs, weakDepth, seen)
		}
		nt := &TypeTyType{TypeBase: v.TypeBase, slot: &templateSlot{id: v.slot.id}}
		seen[t] = nt
		if v.Contained() != nil {
			nt.slot.filled = ts.cloneRec(v.Contained(), asIs, weakDepth, seen)
		}
		return nt
	case *PtrType:
		nextDepth := weakDepth
		if v.IsWeak {
			nextDepth++
		}
		nt := &PtrType{TypeBase: v.TypeBase, Count: v.Count, IsWeak: v.IsWeak}
		seen[t] = nt
		if nextDepth >= weakDepthLimit {
			nt.To = v.To // opaque: keep original reference rather than recursing
			return nt
		}
		nt.To = ts.cloneRec(v.To, asIs, nextDepth, seen)
		return nt
	case *StructType:
		nt := &StructType{
			TypeBase: v.TypeBase, Name: v.Name, IsExtern: v.IsExtern,
			FieldNames: append([]string{}, v.FieldNames...),
			TemplateNames: append([]string{}, v.TemplateNames...),
		}
		seen[t] = nt
		for _, ft := range v.FieldTypes {
			nt.FieldTypes = append(nt.FieldTypes, ts.cloneRec(ft, asIs, weakDepth, seen))
		}
		for _, tp := range v.Templates {
			nt.Templates = append(nt.Templates, ts.cloneRec(tp, asIs, weakDepth, seen))
		}
		return nt
	case *FuncType:
		nt := &FuncType{
			TypeBase: v.TypeBase, ArgNames: append([]string{}, v.ArgNames...),
			ArgComptime: append([]bool{}, v.ArgComptime...),
			ArgRef: append([]bool{}, v.ArgRef...),
			Intrinsic: v.Intrinsic, IntrinType: v.IntrinType,
			IsExtern: v.IsExtern, IsVariadic: v.IsVariadic,
			SpecID: v.SpecID, TemplateID: v.TemplateID,
		}
		seen[t] = nt
		for _, at := range v.ArgTypes {
			nt.ArgTypes = append(nt.ArgTypes, ts.cloneRec(at, asIs, weakDepth, seen))
		}
		nt.Ret = ts.cloneRec(v.Ret, asIs, weakDepth, seen)
		return nt
	case *VariadicType:
		nt := &VariadicType{TypeBase: v.TypeBase}
		seen[t] = nt
		for _, a := range v.Args {
			nt.Args = append(nt.Args, ts.cloneRec(a, asIs, weakDepth, seen))
		}
		return nt
	default:
		return t
	}
}

// MergeTemplatesFrom fills empty TypeTy slots reachable from dst with
// the structurally corresponding type reachable from rhs. Reentrant
// via a per-struct/func depth counter so mutually-templated recursive
// calls terminate rather than looping forever (spec.md §4.3, §5).
func (ts *TypeSystem) MergeTemplatesFrom(dst, rhs Type) {
	key := ts.ID(dst)
	if ts.templatingOf[key] > 8 {
		return
	}
	ts.templatingOf[key]++
	defer func() { ts.templatingOf[key]-- }()
	ts.mergeRec(dst, rhs, 0)
}

func (ts *TypeSystem) mergeRec(dst, rhs Type, weakDepth int) {
	if dst == nil || rhs == nil {
		return
	}
	switch d := dst.(type) {
	case *TypeTyType:
		if d.Contained() == nil {
			d.slot.filled = rhs
			d.slot.depth++
			return
		}
		ts.mergeRec(d.Contained(), rhs, weakDepth)
	case *PtrType:
		if r, ok := rhs.(*PtrType); ok {
			nextDepth := weakDepth
			if d.IsWeak {
				nextDepth++
			}
			if nextDepth >= weakDepthLimit {
				return
			}
			ts.mergeRec(d.To, r.To, nextDepth)
		}
	case *StructType:
		if r, ok := rhs.(*StructType); ok {
			for i := range d.FieldTypes {
				if i < len(r.FieldTypes) {
					ts.mergeRec(d.FieldTypes[i], r.FieldTypes[i], weakDepth)
				}
			}
			for i := range d.Templates {
				if i < len(r.Templates) {
					ts.mergeRec(d.Templates[i], r.Templates[i], weakDepth)
				}
			}
		}
	case *FuncType:
		if r, ok := rhs.(*FuncType); ok {
			for i := range d.ArgTypes {
				if i < len(r.ArgTypes) {
					ts.mergeRec(d.ArgTypes[i], r.ArgTypes[i], weakDepth)
				}
			}
			ts.mergeRec(d.Ret, r.Ret, weakDepth)
		}
	}
}

// UnmergeTemplates clears every TypeTy slot reachable from t, reducing
// depth rather than force-clearing so a still-in-flight outer merge
// keeps its fill (spec.md §4.3, §5: "a pass that merges templates
// must pair it with unmerge on the same path").
func (ts *TypeSystem) UnmergeTemplates(t Type) {
	ts.walkHoles(t, 0, map[Type]bool{}, func(hole *TypeTyType) {
		if hole.slot.depth > 0 {
			hole.slot.depth--
			if hole.slot.depth == 0 {
				hole.slot.filled = nil
			}
		}
	})
}

// ApplyTemplates binds a struct's template parameters to actualTypes
// by name and returns a fully concrete (non-template), deep-cloned
// struct (spec.md §4.3).
func (ts *TypeSystem) ApplyTemplates(st *StructType, actualTypes []Type) (*StructType, error) {
	if len(actualTypes) != len(st.TemplateNames) {
		return nil, fmt.Errorf("struct %s expects %d template arguments, got %d", st.Name, len(st.TemplateNames), len(actualTypes))
	}
	clone := ts.Clone(st, true, 0).(*StructType)
	for i, tp := range clone.Templates {
		ts.MergeTemplatesFrom(tp, actualTypes[i])
	}
	resolved := ts.Clone(clone, false, 0).(*StructType)
	ts.UnmergeTemplates(clone)
	return resolved, nil
}

// CreateCall returns a specialized clone of fnTy where template slots
// are filled from argTypes, `any` parameters become the concrete
// argument type, and a trailing variadic parameter collapses the
// remaining arguments into a VariadicType. Returns nil, false if arity
// or per-argument compatibility fails (spec.md §4.3).
func (ts *TypeSystem) CreateCall(fnTy *FuncType, argTypes []Type) (*FuncType, bool) {
	minArgs := len(fnTy.ArgTypes)
	if fnTy.IsVariadic {
		minArgs--
	}
	if len(argTypes) < minArgs || (!fnTy.IsVariadic && len(argTypes) != len(fnTy.ArgTypes)) {
		return nil, false
	}

	templateID := ts.ID(fnTy)
	spec := ts.Clone(fnTy, true, 0).(*FuncType)
	spec.TemplateID = templateID
	spec.SpecID = ts.freshSpecID()

	fixedArgs := len(spec.ArgTypes)
	if spec.IsVariadic {
		fixedArgs--
	}

	for i := 0; i < fixedArgs && i < len(argTypes); i++ {
		pt := spec.ArgTypes[i]
		if _, isAny := pt.(*AnyType); isAny {
			spec.ArgTypes[i] = argTypes[i]
			continue
		}
		ts.MergeTemplatesFrom(pt, argTypes[i])
		if ok, _ := ts.IsCompatible(pt, argTypes[i]); !ok {
			ts.UnmergeTemplates(spec)
			return nil, false
		}
	}

	if spec.IsVariadic && len(argTypes) >= fixedArgs {
		rest := append([]Type{}, argTypes[fixedArgs:]...)
		spec.ArgTypes = append(spec.ArgTypes[:fixedArgs], &VariadicType{Args: rest})
	}

	resolved := ts.Clone(spec, false, 0).(*FuncType)
	resolved.TemplateID = templateID
	resolved.SpecID = spec.SpecID
	ts.UnmergeTemplates(spec)
	return resolved, true
}

// RequiresCast reports whether a and b are primitives differing in
// bits/signedness, or pointers differing in constness (spec.md §4.3).
func (ts *TypeSystem) RequiresCast(a, b Type) bool {
	switch av := a.(type) {
	case *IntType:
		if bv, ok := b.(*IntType); ok {
			return av.Bits != bv.Bits || av.Signed != bv.Signed
		}
	case *FltType:
		if bv, ok := b.(*FltType); ok {
			return av.Bits != bv.Bits
		}
	case *PtrType:
		if _, ok := b.(*PtrType); ok {
			return a.Info().Has(InfoConst) != b.Info().Has(InfoConst)
		}
	}
	return false
}

// IsCompatible implements spec.md §4.3's refined compatibility rule.
func (ts *TypeSystem) IsCompatible(lhs, rhs Type) (bool, string) {
	if _, ok := lhs.(*AnyType); ok {
		return true, ""
	}
	if _, ok := rhs.(*AnyType); ok {
		return true, ""
	}
	if rhs.Info().Has(InfoVariadic) && !lhs.Info().Has(InfoVariadic) {
		return false, "unexpected variadic argument"
	}
	if lhs.Info().Has(InfoConst) && !rhs.Info().Has(InfoConst) {
		// rhs is mutable, lhs wants const: fine, widening.
	} else if !lhs.Info().Has(InfoConst) && rhs.Info().Has(InfoConst) {
		if lhs.Kind() == TyPtr || lhs.Info().Has(InfoRef) {
			return false, "cannot implicitly drop constness"
		}
	}

	switch lv := lhs.(type) {
	case *TypeTyType:
		if lv.Contained() == nil {
			lv.slot.filled = rhs
			return true, ""
		}
	case *PtrType:
		rv, ok := rhs.(*PtrType)
		if !ok {
			if rhs.Kind() == TyInt || rhs.Kind() == TyFlt {
				return true, "" // pointer-to-primitive coercion handled by TypeAssign
			}
			return false, "expected pointer type"
		}
		if lv.IsWeak || rv.IsWeak {
			return ts.ID(lv.To) == ts.ID(rv.To), "weak pointer element mismatch"
		}
		if lv.Count != rv.Count {
			if rv.To.Kind() == TyInt || rv.To.Kind() == TyFlt {
				return true, ""
			}
			return false, "pointer indirection count mismatch"
		}
		return ts.LooseID(lv.To) == ts.LooseID(rv.To), "pointer element type mismatch"
	case *FuncType:
		rv, ok := rhs.(*FuncType)
		if !ok {
			return false, "expected function type"
		}
		return ts.LooseID(lv) == ts.LooseID(rv), "function signature mismatch"
	}

	if isPrimitiveNumeric(lhs) && isPrimitiveNumeric(rhs) {
		// Primitives differing in kind, width or signedness coerce
		// through a cast (see RequiresCast) instead of being rejected.
		return true, ""
	}
	return ts.LooseID(lhs) == ts.LooseID(rhs), fmt.Sprintf("incompatible types: %s vs %s", lhs.String(), rhs.String())
}

// ToDefaultValue produces a fresh default-shaped Value for t: zero int,
// zero float, an empty/defaulted struct, or an empty VecVal for any
// pointer, array pointers included: no element values are filled in
// (spec.md §4.3).
func (ts *TypeSystem) ToDefaultValue(vr *ValueRegistry, t Type, contains ContainsData, weakDepth int) (Value, error) {
	switch v := t.(type) {
	case *VoidType:
		return &VoidVal{}, nil
	case *IntType:
		return &IntVal{Val: 0, Contains_: contains}, nil
	case *FltType:
		return &FltVal{Val: 0, Contains_: contains}, nil
	case *PtrType:
		nextDepth := weakDepth
		if v.IsWeak {
			nextDepth++
		}
		if nextDepth >= weakDepthLimit {
			return &VecVal{Contains_: contains}, nil
		}
		if v.Count > 1 {
			elems := make([]Value, 0)
			return &VecVal{Items: elems, Contains_: contains}, nil
		}
		return &VecVal{Contains_: contains}, nil
	case *StructType:
		fields := map[string]Value{}
		for i, name := range v.FieldNames {
			fv, err := ts.ToDefaultValue(vr, v.FieldTypes[i], contains, weakDepth)
			if err != nil {
				return nil, err
			}
			fields[name] = fv
		}
		return &StructVal{Fields: fields, Contains_: contains}, nil
	case *FuncType:
		return &FuncVal{Ty: v, Contains_: contains}, nil
	case *TypeTyType:
		if v.Contained() != nil {
			return ts.ToDefaultValue(vr, v.Contained(), contains, weakDepth)
		}
		return nil, fmt.Errorf("cannot compute default value of an unresolved template slot")
	case *AnyType:
		return &VoidVal{}, nil
	default:
		return nil, fmt.Errorf("cannot compute default value for type %s", t.String())
	}
}

// Primitive constructors, used pervasively by the parser's type
// keywords and by the seeded primitive operator table (primitives.go).
func NewIntType(bits int, signed bool) *IntType { return &IntType{Bits: bits, Signed: signed} }
func NewFltType(bits int) *FltType               { return &FltType{Bits: bits} }
func NewVoidType() *VoidType                     { return &VoidType{} }
func NewAnyType() *AnyType                       { return &AnyType{} }
func NewPtrType(to Type, count int, weak bool) *PtrType {
	return &PtrType{To: to, Count: count, IsWeak: weak}
}
