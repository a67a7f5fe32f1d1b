package parse

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

type SequenceOptions struct {
	DataType    string
	IncrementBy *int64
	MinValue    *int64
	MaxValue    *int64
	StartWith   *int64
	Cache       *int64
	Cycle       bool
	OwnedBy     string
}

type CreateSequence struct {
	Relation Relation
	SequenceOptions
}

type AlterSequence struct {
	Relation Relation
	SequenceOptions
}

func createSequence(stmt *pg_query.CreateSeqStmt) (*CreateSequence, error) {
	rel, err := relation(stmt.Sequence)
	if err != nil {
		return nil, err
	}
	opts, err := sequenceOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	return &CreateSequence{Relation: rel, SequenceOptions: opts}, nil
}

func alterSequence(stmt *pg_query.AlterSeqStmt) (*AlterSequence, error) {
	rel, err := relation(stmt.Sequence)
	if err != nil {
		return nil, err
	}
	opts, err := sequenceOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	return &AlterSequence{Relation: rel, SequenceOptions: opts}, nil
}

func sequenceOptions(nodes []*pg_query.Node) (SequenceOptions, error) {
	opts := SequenceOptions{}
	for _, n := range nodes {
		def := n.GetDefElem()
		if def == nil {
			return opts, unsupported(n)
		}
		var err error
		switch def.Defname {
		case "as":
			tn := def.Arg.GetTypeName()
			if tn == nil {
				return opts, malformed("DefElem", "arg")
			}
			opts.DataType, err = TypeName(tn)
		case "increment":
			opts.IncrementBy, err = int64Option(def)
		case "minvalue":
			opts.MinValue, err = int64Option(def)
		case "maxvalue":
			opts.MaxValue, err = int64Option(def)
		case "start":
			opts.StartWith, err = int64Option(def)
		case "cache":
			opts.Cache, err = int64Option(def)
		case "cycle":
			opts.Cycle = def.Arg.GetBoolean().GetBoolval()
		case "owned_by":
			var names []string
			names, err = stringList(def.Arg.GetList().GetItems())
			opts.OwnedBy = strings.Join(names, ".")
		default:
			return opts, &UnsupportedNodeKindError{Kind: "DefElem " + def.Defname}
		}
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// int64Option reads a numeric option. NO MINVALUE and friends carry no
// argument and come back nil.
func int64Option(def *pg_query.DefElem) (*int64, error) {
	if def.Arg == nil {
		return nil, nil
	}
	text, err := Expression(def.Arg)
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "sequence option %s", def.Defname)
	}
	return &v, nil
}

// Sequence converts the statement to the project representation
func (self *CreateSequence) Sequence() *ir.Sequence {
	return &ir.Sequence{
		Meta:        ir.Meta{Name: self.Relation.Name, Schema: self.Relation.Schema},
		DataType:    self.DataType,
		IncrementBy: self.IncrementBy,
		MinValue:    self.MinValue,
		MaxValue:    self.MaxValue,
		StartWith:   self.StartWith,
		Cache:       self.Cache,
		Cycle:       self.Cycle,
		OwnedBy:     self.OwnedBy,
	}
}
