package scribec

import (
	"fmt"
	"strings"
)

// ContainsData is the tri-state spec.md §3.5 attaches to every Value:
// False (no runtime value known), True (a value is present), Perma (a
// value is present and immutable/compile-time-literal). Clones demote
// Perma to True.
type ContainsData int

const (
	ContainsFalse ContainsData = iota
	ContainsTrue
	ContainsPerma
)

func (c ContainsData) demoted() ContainsData {
	if c == ContainsPerma {
		return ContainsTrue
	}
	return c
}

// ValueKind discriminates the closed set of value variants.
type ValueKind int

const (
	ValVoid ValueKind = iota
	ValInt
	ValFlt
	ValVec
	ValStruct
	ValFunc
	ValType
	ValNamespace
	ValRef
)

// Value is the common interface every runtime-representation variant
// satisfies (spec.md §3.5).
type Value interface {
	Kind() ValueKind
	String() string
	Contains() ContainsData
	Clone() Value
}

type VoidVal struct{}

func (v *VoidVal) Kind() ValueKind      { return ValVoid }
func (v *VoidVal) String() string       { return "void" }
func (v *VoidVal) Contains() ContainsData { return ContainsPerma }
func (v *VoidVal) Clone() Value         { return &VoidVal{} }

type IntVal struct {
	Val      int64
	Contains_ ContainsData
}

func (v *IntVal) Kind() ValueKind        { return ValInt }
func (v *IntVal) String() string         { return fmt.Sprintf("%d", v.Val) }
func (v *IntVal) Contains() ContainsData { return v.Contains_ }
func (v *IntVal) Clone() Value           { return &IntVal{Val: v.Val, Contains_: v.Contains_.demoted()} }

type FltVal struct {
	Val      float64
	Contains_ ContainsData
}

func (v *FltVal) Kind() ValueKind        { return ValFlt }
func (v *FltVal) String() string         { return fmt.Sprintf("%g", v.Val) }
func (v *FltVal) Contains() ContainsData { return v.Contains_ }
func (v *FltVal) Clone() Value           { return &FltVal{Val: v.Val, Contains_: v.Contains_.demoted()} }

// VecVal backs arrays, pointers, strings, and expanded variadic packs
// (spec.md §3.5).
type VecVal struct {
	Items     []Value
	Contains_ ContainsData
}

func (v *VecVal) Kind() ValueKind        { return ValVec }
func (v *VecVal) Contains() ContainsData { return v.Contains_ }
func (v *VecVal) String() string {
	parts := make([]string, len(v.Items))
	for i, it := range v.Items {
		parts[i] = it.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
func (v *VecVal) Clone() Value {
	items := make([]Value, len(v.Items))
	for i, it := range v.Items {
		items[i] = it.Clone()
	}
	return &VecVal{Items: items, Contains_: v.Contains_.demoted()}
}

// AsString reinterprets a VecVal of byte-sized IntVals as a Go string,
// the representation string literals use after ValueAssign.
func (v *VecVal) AsString() string {
	var sb strings.Builder
	for _, it := range v.Items {
		if iv, ok := it.(*IntVal); ok {
			sb.WriteByte(byte(iv.Val))
		}
	}
	return sb.String()
}

// NewStringVec builds the VecVal representation of a string literal.
func NewStringVec(s string, contains ContainsData) *VecVal {
	items := make([]Value, len(s))
	for i := 0; i < len(s); i++ {
		items[i] = &IntVal{Val: int64(s[i]), Contains_: contains}
	}
	return &VecVal{Items: items, Contains_: contains}
}

type StructVal struct {
	Fields    map[string]Value
	Order     []string
	Contains_ ContainsData
}

func (v *StructVal) Kind() ValueKind        { return ValStruct }
func (v *StructVal) Contains() ContainsData { return v.Contains_ }
func (v *StructVal) String() string {
	parts := make([]string, 0, len(v.Order))
	for _, name := range v.Order {
		parts = append(parts, fmt.Sprintf("%s: %s", name, v.Fields[name].String()))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
func (v *StructVal) Clone() Value {
	fields := make(map[string]Value, len(v.Fields))
	for k, fv := range v.Fields {
		fields[k] = fv.Clone()
	}
	return &StructVal{Fields: fields, Order: append([]string{}, v.Order...), Contains_: v.Contains_.demoted()}
}

type FuncVal struct {
	Ty        *FuncType
	Def       *FnDefStmt
	Contains_ ContainsData
}

func (v *FuncVal) Kind() ValueKind        { return ValFunc }
func (v *FuncVal) Contains() ContainsData { return v.Contains_ }
func (v *FuncVal) String() string         { return v.Ty.String() }
func (v *FuncVal) Clone() Value           { return &FuncVal{Ty: v.Ty, Def: v.Def, Contains_: v.Contains_.demoted()} }

type TypeVal struct {
	Ty        Type
	Contains_ ContainsData
}

func (v *TypeVal) Kind() ValueKind        { return ValType }
func (v *TypeVal) Contains() ContainsData { return v.Contains_ }
func (v *TypeVal) String() string         { return v.Ty.String() }
func (v *TypeVal) Clone() Value           { return &TypeVal{Ty: v.Ty, Contains_: v.Contains_.demoted()} }

// NamespaceVal represents an imported module as a plain string tag,
// not a scope object (spec.md §9: "Implementers should not model
// namespaces as scope objects"). Member lookup is string
// concatenation plus remangling (spec.md §4.5 "Member access").
type NamespaceVal struct {
	ModuleTag string
	ModuleID  ModuleID
	Contains_ ContainsData
}

func (v *NamespaceVal) Kind() ValueKind        { return ValNamespace }
func (v *NamespaceVal) Contains() ContainsData { return v.Contains_ }
func (v *NamespaceVal) String() string         { return fmt.Sprintf("namespace(%s)", v.ModuleTag) }
func (v *NamespaceVal) Clone() Value {
	return &NamespaceVal{ModuleTag: v.ModuleTag, ModuleID: v.ModuleID, Contains_: v.Contains_.demoted()}
}

// RefVal is how reference parameters are bound: ValueAssign writes
// through Pointee rather than rebinding a copy (spec.md §4.6).
type RefVal struct {
	Pointee   Value
	Contains_ ContainsData
}

func (v *RefVal) Kind() ValueKind        { return ValRef }
func (v *RefVal) Contains() ContainsData { return v.Contains_ }
func (v *RefVal) String() string         { return fmt.Sprintf("&%s", v.Pointee.String()) }
func (v *RefVal) Clone() Value           { return &RefVal{Pointee: v.Pointee, Contains_: v.Contains_.demoted()} }

// ValueRegistry interns runtime-representation values behind a
// process-wide handle; 0 is the reserved "no value" sentinel
// (spec.md §3.5).
type ValueRegistry struct {
	next  ValueID
	table map[ValueID]Value
}

func newValueRegistry() *ValueRegistry {
	return &ValueRegistry{table: map[ValueID]Value{}}
}

// Intern assigns v a fresh non-zero ValueID.
func (vr *ValueRegistry) Intern(v Value) ValueID {
	vr.next++
	vr.table[vr.next] = v
	return vr.next
}

// Get resolves id to its Value, or nil for the 0 sentinel / an
// unknown id.
func (vr *ValueRegistry) Get(id ValueID) Value {
	if id == 0 {
		return nil
	}
	return vr.table[id]
}

// Set overwrites the value stored at an already-interned id, used by
// ValueAssign's write-through-reference semantics.
func (vr *ValueRegistry) Set(id ValueID, v Value) {
	if id == 0 {
		return
	}
	vr.table[id] = v
}
