package ir

type Schema struct {
	Meta          `yaml:",inline"`
	Authorization string `yaml:"authorization,omitempty"`
}

type Sequence struct {
	Meta        `yaml:",inline"`
	DataType    string `yaml:"data_type,omitempty"`
	IncrementBy *int64 `yaml:"increment_by,omitempty"`
	MinValue    *int64 `yaml:"min_value,omitempty"`
	MaxValue    *int64 `yaml:"max_value,omitempty"`
	StartWith   *int64 `yaml:"start_with,omitempty"`
	Cache       *int64 `yaml:"cache,omitempty"`
	Cycle       bool   `yaml:"cycle,omitempty"`
	OwnedBy     string `yaml:"owned_by,omitempty"`
}

// SequenceOwnedBy is the deferred OWNED BY for a sequence, emitted once
// the owning table exists
type SequenceOwnedBy struct {
	Meta    `yaml:",inline"`
	OwnedBy string
}

type View struct {
	Meta            `yaml:",inline"`
	Recursive       bool          `yaml:"recursive,omitempty"`
	Columns         []*ViewColumn `yaml:"columns,omitempty"`
	CheckOption     string        `yaml:"check_option,omitempty"`
	SecurityBarrier *bool         `yaml:"security_barrier,omitempty"`
	Query           string        `yaml:"query,omitempty"`
}

type ViewColumn struct {
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
}

type MaterializedView struct {
	Meta              `yaml:",inline"`
	Columns           []*ViewColumn     `yaml:"columns,omitempty"`
	TableAccessMethod string            `yaml:"table_access_method,omitempty"`
	StorageParameters map[string]string `yaml:"storage_parameters,omitempty"`
	Query             string            `yaml:"query,omitempty"`
}

type Domain struct {
	Meta             `yaml:",inline"`
	DataType         string              `yaml:"data_type"`
	Collation        string              `yaml:"collation,omitempty"`
	Default          interface{}         `yaml:"default,omitempty"`
	CheckConstraints []*DomainConstraint `yaml:"check_constraints,omitempty"`
}

type DomainConstraint struct {
	Name       string `yaml:"name,omitempty"`
	Nullable   *bool  `yaml:"nullable,omitempty"`
	Expression string `yaml:"expression,omitempty"`
}

// Type covers base, composite, enum and range types, discriminated by
// Type
type Type struct {
	Meta `yaml:",inline"`
	Type string `yaml:"type"`

	Input         string `yaml:"input,omitempty"`
	Output        string `yaml:"output,omitempty"`
	Receive       string `yaml:"receive,omitempty"`
	Send          string `yaml:"send,omitempty"`
	TypModIn      string `yaml:"typmod_in,omitempty"`
	TypModOut     string `yaml:"typmod_out,omitempty"`
	Analyze       string `yaml:"analyze,omitempty"`
	InternalLen   string `yaml:"internallength,omitempty"`
	PassedByValue bool   `yaml:"passed_by_value,omitempty"`
	Alignment     string `yaml:"alignment,omitempty"`
	Storage       string `yaml:"storage,omitempty"`
	LikeType      string `yaml:"like_type,omitempty"`
	Category      string `yaml:"category,omitempty"`
	Preferred     bool   `yaml:"preferred,omitempty"`
	Default       string `yaml:"default,omitempty"`
	Element       string `yaml:"element,omitempty"`
	Delimiter     string `yaml:"delimiter,omitempty"`
	Collatable    bool   `yaml:"collatable,omitempty"`

	Columns []*TypeColumn `yaml:"columns,omitempty"`

	Enum []string `yaml:"enum,omitempty"`

	Subtype        string `yaml:"subtype,omitempty"`
	SubtypeOpClass string `yaml:"subtype_opclass,omitempty"`
	Collation      string `yaml:"collation,omitempty"`
	Canonical      string `yaml:"canonical,omitempty"`
	SubtypeDiff    string `yaml:"subtype_diff,omitempty"`
}

const (
	TypeBase      = "base"
	TypeComposite = "composite"
	TypeEnum      = "enum"
	TypeRange     = "range"
)

type TypeColumn struct {
	Name      string `yaml:"name"`
	DataType  string `yaml:"data_type"`
	Collation string `yaml:"collation,omitempty"`
}

type Collation struct {
	Meta          `yaml:",inline"`
	CopyFrom      string `yaml:"copy_from,omitempty"`
	Locale        string `yaml:"locale,omitempty"`
	LCCollate     string `yaml:"lc_collate,omitempty"`
	LCCtype       string `yaml:"lc_ctype,omitempty"`
	Provider      string `yaml:"provider,omitempty"`
	Deterministic *bool  `yaml:"deterministic,omitempty"`
	Version       string `yaml:"version,omitempty"`
}

type Conversion struct {
	Meta         `yaml:",inline"`
	Default      bool   `yaml:"default,omitempty"`
	EncodingFrom string `yaml:"encoding_from"`
	EncodingTo   string `yaml:"encoding_to"`
	Function     string `yaml:"function"`
}

type EventTrigger struct {
	Meta     `yaml:",inline"`
	Event    string              `yaml:"event"`
	Filter   *EventTriggerFilter `yaml:"filter,omitempty"`
	Function string              `yaml:"function"`
}

type EventTriggerFilter struct {
	Tags []string `yaml:"tags"`
}

type ForeignDataWrapper struct {
	Meta      `yaml:",inline"`
	Handler   *string           `yaml:"handler,omitempty"`
	Validator *string           `yaml:"validator,omitempty"`
	Options   map[string]string `yaml:"options,omitempty"`
}

type Server struct {
	Meta               `yaml:",inline"`
	Type               string            `yaml:"type,omitempty"`
	Version            string            `yaml:"version,omitempty"`
	ForeignDataWrapper string            `yaml:"foreign_data_wrapper"`
	Options            map[string]string `yaml:"options,omitempty"`
}

// UserMapping files hold every server mapping for one user. The
// inventory splits them into one record per server.
type UserMapping struct {
	Meta    `yaml:",inline"`
	Servers []*UserMappingServer `yaml:"servers"`
}

type UserMappingServer struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options,omitempty"`
}

type Publication struct {
	Meta       `yaml:",inline"`
	AllTables  bool                   `yaml:"all_tables,omitempty"`
	Tables     []string               `yaml:"tables,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}

type Subscription struct {
	Meta         `yaml:",inline"`
	Connection   string                 `yaml:"connection"`
	Publications []string               `yaml:"publications"`
	Parameters   map[string]interface{} `yaml:"parameters,omitempty"`
}

type Tablespace struct {
	Meta     `yaml:",inline"`
	Location string                 `yaml:"location"`
	Options  map[string]interface{} `yaml:"options,omitempty"`
}

// TextSearch is the on-disk shape of a text_search file: every text
// search object in a schema
type TextSearch struct {
	Schema         string                     `yaml:"schema"`
	Configurations []*TextSearchConfiguration `yaml:"configurations,omitempty"`
	Dictionaries   []*TextSearchDictionary    `yaml:"dictionaries,omitempty"`
	Parsers        []*TextSearchParser        `yaml:"parsers,omitempty"`
	Templates      []*TextSearchTemplate      `yaml:"templates,omitempty"`
}

type TextSearchConfiguration struct {
	Meta   `yaml:",inline"`
	Parser string `yaml:"parser,omitempty"`
	Source string `yaml:"source,omitempty"`
}

type TextSearchDictionary struct {
	Meta     `yaml:",inline"`
	Template string            `yaml:"template"`
	Options  map[string]string `yaml:"options,omitempty"`
}

type TextSearchParser struct {
	Meta     `yaml:",inline"`
	Start    string `yaml:"start"`
	GetToken string `yaml:"gettoken"`
	End      string `yaml:"end"`
	LexTypes string `yaml:"lextypes"`
	Headline string `yaml:"headline,omitempty"`
}

type TextSearchTemplate struct {
	Meta   `yaml:",inline"`
	Init   string `yaml:"init,omitempty"`
	Lexize string `yaml:"lexize"`
}
