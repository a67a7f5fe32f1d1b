package ir

import (
	"strings"
)

// Kind is the category of a database object, spelled the way pg_dump
// spells it in archive entry descriptions.
type Kind string

const (
	KindACL                     Kind = "ACL"
	KindAggregate               Kind = "AGGREGATE"
	KindCast                    Kind = "CAST"
	KindCheckConstraint         Kind = "CHECK CONSTRAINT"
	KindCollation               Kind = "COLLATION"
	KindComment                 Kind = "COMMENT"
	KindConstraint              Kind = "CONSTRAINT"
	KindConversion              Kind = "CONVERSION"
	KindDatabase                Kind = "DATABASE"
	KindDefault                 Kind = "DEFAULT"
	KindDomain                  Kind = "DOMAIN"
	KindEventTrigger            Kind = "EVENT TRIGGER"
	KindExtension               Kind = "EXTENSION"
	KindFKConstraint            Kind = "FK CONSTRAINT"
	KindForeignDataWrapper      Kind = "FOREIGN DATA WRAPPER"
	KindFunction                Kind = "FUNCTION"
	KindGroup                   Kind = "GROUP"
	KindIndex                   Kind = "INDEX"
	KindMaterializedView        Kind = "MATERIALIZED VIEW"
	KindOperator                Kind = "OPERATOR"
	KindProcedure               Kind = "PROCEDURE"
	KindProceduralLanguage      Kind = "PROCEDURAL LANGUAGE"
	KindPublication             Kind = "PUBLICATION"
	KindRole                    Kind = "ROLE"
	KindRule                    Kind = "RULE"
	KindSchema                  Kind = "SCHEMA"
	KindSequence                Kind = "SEQUENCE"
	KindSequenceOwnedBy         Kind = "SEQUENCE OWNED BY"
	KindSequenceSet             Kind = "SEQUENCE SET"
	KindServer                  Kind = "SERVER"
	KindSubscription            Kind = "SUBSCRIPTION"
	KindTable                   Kind = "TABLE"
	KindTableData               Kind = "TABLE DATA"
	KindTablespace              Kind = "TABLESPACE"
	KindTextSearchConfiguration Kind = "TEXT SEARCH CONFIGURATION"
	KindTextSearchDictionary    Kind = "TEXT SEARCH DICTIONARY"
	KindTextSearchParser        Kind = "TEXT SEARCH PARSER"
	KindTextSearchTemplate      Kind = "TEXT SEARCH TEMPLATE"
	KindTrigger                 Kind = "TRIGGER"
	KindType                    Kind = "TYPE"
	KindUser                    Kind = "USER"
	KindUserMapping             Kind = "USER MAPPING"
	KindView                    Kind = "VIEW"
)

const (
	SchemaPublic = "public"

	// Roles that are never created, granted to, or depended on
	RolePublic    = "PUBLIC"
	RolePostgres  = "postgres"
	DefaultOwner  = RolePostgres
	DefaultEncode = "UTF8"
)

// Section mirrors pg_dump's three archive sections
type Section string

const (
	SectionNone     Section = "None"
	SectionPreData  Section = "Pre-Data"
	SectionData     Section = "Data"
	SectionPostData Section = "Post-Data"
)

var schemaless = map[Kind]bool{
	KindCast:               true,
	KindDatabase:           true,
	KindEventTrigger:       true,
	KindExtension:          true,
	KindForeignDataWrapper: true,
	KindGroup:              true,
	KindProceduralLanguage: true,
	KindPublication:        true,
	KindRole:               true,
	KindSchema:             true,
	KindServer:             true,
	KindSubscription:       true,
	KindTablespace:         true,
	KindUser:               true,
	KindUserMapping:        true,
}

// IsSchemaless reports whether objects of this kind live outside of any
// namespace. Those are catalogued under a sentinel schema equal to the
// kind name.
func (k Kind) IsSchemaless() bool {
	return schemaless[k]
}

// IsRole is true for the three spellings of a role
func (k Kind) IsRole() bool {
	return k == KindGroup || k == KindRole || k == KindUser
}

// IsTableChild is true for kinds that are rendered out of their parent
// table's attribute list.
func (k Kind) IsTableChild() bool {
	switch k {
	case KindIndex, KindTrigger, KindFKConstraint, KindRule:
		return true
	}
	return false
}

// DefaultSchema is the schema used when a reference to this kind does
// not name one
func (k Kind) DefaultSchema() string {
	if k.IsSchemaless() {
		return string(k)
	}
	return SchemaPublic
}

func (k Kind) Section() Section {
	switch k {
	case KindTableData, KindSequenceSet:
		return SectionData
	case KindIndex, KindTrigger, KindFKConstraint, KindConstraint,
		KindCheckConstraint, KindRule, KindEventTrigger, KindMaterializedView:
		return SectionPostData
	case KindACL, KindComment:
		return SectionNone
	}
	return SectionPreData
}

func (k Kind) Equals(other Kind) bool {
	return strings.EqualFold(string(k), string(other))
}

// Paths maps each kind that has its own project directory to that
// directory, relative to the project root.
var Paths = map[Kind]string{
	KindAggregate:               "aggregates",
	KindCast:                    "casts",
	KindCollation:               "collations",
	KindConversion:              "conversions",
	KindDomain:                  "domains",
	KindEventTrigger:            "event_triggers",
	KindForeignDataWrapper:      "foreign_data_wrappers",
	KindFunction:                "functions",
	KindGroup:                   "groups",
	KindMaterializedView:        "materialized_views",
	KindOperator:                "operators",
	KindProcedure:               "procedures",
	KindPublication:             "publications",
	KindRole:                    "roles",
	KindSchema:                  "schemata",
	KindSequence:                "sequences",
	KindServer:                  "servers",
	KindSubscription:            "subscriptions",
	KindTable:                   "tables",
	KindTablespace:              "tablespaces",
	KindTextSearchConfiguration: "text_search",
	KindTextSearchDictionary:    "text_search",
	KindType:                    "types",
	KindUser:                    "users",
	KindUserMapping:             "user_mappings",
	KindView:                    "views",
}

const DMLPath = "dml"

// ProjectKinds lists the kinds loaded from project directories, in load
// order. Text search objects all come out of text_search files and are
// loaded under the configuration kind.
var ProjectKinds = []Kind{
	KindSchema,
	KindForeignDataWrapper,
	KindServer,
	KindTablespace,
	KindType,
	KindDomain,
	KindCollation,
	KindConversion,
	KindFunction,
	KindProcedure,
	KindAggregate,
	KindOperator,
	KindCast,
	KindSequence,
	KindTable,
	KindView,
	KindMaterializedView,
	KindTextSearchConfiguration,
	KindEventTrigger,
	KindPublication,
	KindSubscription,
	KindUserMapping,
	KindGroup,
	KindRole,
	KindUser,
}

// GrantKeys maps the keys used in role grants/revocations to the kind
// the privilege applies to.
var GrantKeys = map[string]Kind{
	"columns":               KindTable,
	"constraints":           KindConstraint,
	"conversions":           KindConversion,
	"databases":             KindDatabase,
	"domains":               KindDomain,
	"extensions":            KindExtension,
	"foreign data wrappers": KindForeignDataWrapper,
	"foreign servers":       KindServer,
	"functions":             KindFunction,
	"groups":                KindGroup,
	"indexes":               KindIndex,
	"languages":             KindProceduralLanguage,
	"operators":             KindOperator,
	"procedures":            KindProcedure,
	"roles":                 KindRole,
	"sequences":             KindSequence,
	"schemata":              KindSchema,
	"tables":                KindTable,
	"tablespaces":           KindTablespace,
	"types":                 KindType,
	"views":                 KindView,
}
