package scribec

import "fmt"

// Config is a flat, typed settings map threaded through the
// orchestrator and the CLI (spec.md §6's pass-through flags, §4.8's
// per-pass toggles). Modeled directly on the teacher's config.go
// (cfgVal/cfgValType, panic-on-type-mismatch accessors) rather than a
// generic map[string]any, since the teacher's callers lean on the
// panic to catch a typo'd setting path at the call site instead of a
// silent zero value.
type Config map[string]*cfgVal

// NewConfig creates a configuration primed with the defaults the
// orchestrator and CLI expect (SPEC_FULL.md's AMBIENT STACK
// "Configuration" section).
func NewConfig() *Config {
	m := make(Config)
	m.SetBool("pipeline.run_value_assign", true)
	m.SetBool("pipeline.run_cleanup", true)
	m.SetInt("diagnostics.max_errors", 64)
	m.SetInt("comptime.max_depth", 2048)
	m.SetString("cli.std", "")
	m.SetInt("cli.opt_level", 1)
	m.SetBool("cli.nofile", false)
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

// assignType is mostly for preventing programming errors, it
func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("Can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("Can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("Bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("Int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("String setting `%s` does not exist", path))
}
