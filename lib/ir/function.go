package ir

import (
	"fmt"
	"strings"
)

// Function covers both functions and procedures
type Function struct {
	Meta              `yaml:",inline"`
	Parameters        []*Parameter           `yaml:"parameters,omitempty"`
	Returns           string                 `yaml:"returns,omitempty"`
	Language          string                 `yaml:"language,omitempty"`
	TransformTypes    []string               `yaml:"transform_types,omitempty"`
	Window            bool                   `yaml:"window,omitempty"`
	Immutable         bool                   `yaml:"immutable,omitempty"`
	Stable            bool                   `yaml:"stable,omitempty"`
	Volatile          bool                   `yaml:"volatile,omitempty"`
	LeakProof         *bool                  `yaml:"leak_proof,omitempty"`
	CalledOnNullInput *bool                  `yaml:"called_on_null_input,omitempty"`
	Strict            bool                   `yaml:"strict,omitempty"`
	Security          string                 `yaml:"security,omitempty"`
	Parallel          string                 `yaml:"parallel,omitempty"`
	Cost              int                    `yaml:"cost,omitempty"`
	Rows              int                    `yaml:"rows,omitempty"`
	Support           string                 `yaml:"support,omitempty"`
	Configuration     map[string]interface{} `yaml:"configuration,omitempty"`
	Definition        string                 `yaml:"definition,omitempty"`
	ObjectFile        string                 `yaml:"object_file,omitempty"`
	LinkSymbol        string                 `yaml:"link_symbol,omitempty"`
}

type Parameter struct {
	Mode     string `yaml:"mode,omitempty"`
	Name     string `yaml:"name,omitempty"`
	DataType string `yaml:"data_type"`
	Default  string `yaml:"default,omitempty"`
}

// Signature is the name used to identify a function: its name followed
// by the types of its input arguments.
func (f *Function) Signature() string {
	if strings.Contains(f.Name, "(") {
		return f.Name
	}
	types := []string{}
	for _, p := range f.Parameters {
		switch strings.ToUpper(p.Mode) {
		case "", "IN", "INOUT", "VARIADIC":
			types = append(types, p.DataType)
		}
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(types, ", "))
}

// Arity counts the arguments in a signature such as "foo(int, text)"
func Arity(signature string) int {
	open := strings.Index(signature, "(")
	close := strings.LastIndex(signature, ")")
	if open < 0 || close <= open+1 {
		return 0
	}
	args := strings.TrimSpace(signature[open+1 : close])
	if args == "" {
		return 0
	}
	return strings.Count(args, ",") + 1
}

// BareName strips the argument list from a function signature
func BareName(signature string) string {
	if i := strings.Index(signature, "("); i >= 0 {
		return signature[:i]
	}
	return signature
}

type Aggregate struct {
	Meta              `yaml:",inline"`
	Arguments         []*Parameter `yaml:"arguments,omitempty"`
	SFunc             string       `yaml:"sfunc,omitempty"`
	StateDataType     string       `yaml:"state_data_type,omitempty"`
	StateDataSize     int          `yaml:"state_data_size,omitempty"`
	FFunc             string       `yaml:"ffunc,omitempty"`
	FinalFuncExtra    bool         `yaml:"finalfunc_extra,omitempty"`
	FinalFuncModify   string       `yaml:"finalfunc_modify,omitempty"`
	CombineFunc       string       `yaml:"combinefunc,omitempty"`
	SerialFunc        string       `yaml:"serialfunc,omitempty"`
	DeserialFunc      string       `yaml:"deserialfunc,omitempty"`
	InitialCondition  string       `yaml:"initial_condition,omitempty"`
	MSFunc            string       `yaml:"msfunc,omitempty"`
	MInvFunc          string       `yaml:"minvfunc,omitempty"`
	MStateDataType    string       `yaml:"mstate_data_type,omitempty"`
	MStateDataSize    int          `yaml:"mstate_data_size,omitempty"`
	MFFunc            string       `yaml:"mffunc,omitempty"`
	MFinalFuncExtra   bool         `yaml:"mfinalfunc_extra,omitempty"`
	MFinalFuncModify  string       `yaml:"mfinalfunc_modify,omitempty"`
	MInitialCondition string       `yaml:"minitial_condition,omitempty"`
	SortOperator      string       `yaml:"sort_operator,omitempty"`
	Parallel          string       `yaml:"parallel,omitempty"`
	Hypothetical      bool         `yaml:"hypothetical,omitempty"`
}

type Operator struct {
	Meta       `yaml:",inline"`
	Function   string `yaml:"function"`
	LeftArg    string `yaml:"left_arg,omitempty"`
	RightArg   string `yaml:"right_arg,omitempty"`
	Commutator string `yaml:"commutator,omitempty"`
	Negator    string `yaml:"negator,omitempty"`
	Restrict   string `yaml:"restrict,omitempty"`
	Join       string `yaml:"join,omitempty"`
	Hashes     bool   `yaml:"hashes,omitempty"`
	Merges     bool   `yaml:"merges,omitempty"`
}

type Cast struct {
	Meta       `yaml:",inline"`
	SourceType string `yaml:"source_type"`
	TargetType string `yaml:"target_type"`
	Function   string `yaml:"function,omitempty"`
	InOut      bool   `yaml:"inout,omitempty"`
	Assignment bool   `yaml:"assignment,omitempty"`
	Implicit   bool   `yaml:"implicit,omitempty"`
}
