package pgsql8

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/output"
	"github.com/dbsteward/pglifecycle/lib/util"
)

// EntryWriter is the part of an archive the synthesizer writes to
type EntryWriter interface {
	AddEntry(opts archive.EntryOptions) (*archive.Entry, error)
}

// Rendered is the SQL for one record
type Rendered struct {
	Create   string
	Drop     string
	Comments []*sql.CommentOn
}

// Synthesizer renders inventory records to SQL and writes them as
// archive entries. The only state it carries between records is the id
// allocator used for side entries.
type Synthesizer struct {
	logger    *slog.Logger
	inv       *inventory.Inventory
	ids       *inventory.IDAllocator
	out       EntryWriter
	superuser string
	quoter    output.Quoter
}

func NewSynthesizer(logger *slog.Logger, inv *inventory.Inventory, out EntryWriter, superuser string) *Synthesizer {
	return &Synthesizer{
		logger:    logger,
		inv:       inv,
		ids:       inv.IDs(),
		out:       out,
		superuser: superuser,
		quoter:    &sql.Quoter{},
	}
}

// Render produces the create, drop and comment SQL for rec
func (self *Synthesizer) Render(rec *ir.ObjectRecord) (*Rendered, error) {
	r := &Rendered{}
	var err error
	if rec.RawSQL != "" {
		r.Create = terminate(rec.RawSQL)
	} else {
		r.Create, err = self.renderCreate(rec)
		if err != nil {
			return nil, err
		}
	}
	r.Drop, err = self.renderDrop(rec)
	if err != nil {
		return nil, err
	}
	r.Comments, err = self.renderComments(rec)
	if err != nil {
		return nil, err
	}
	if owner := self.renderOwner(rec); owner != "" {
		r.Create += owner
	}
	return r, nil
}

func (self *Synthesizer) renderCreate(rec *ir.ObjectRecord) (string, error) {
	switch rec.Kind {
	case ir.KindACL:
		return self.renderACL(rec)
	case ir.KindAggregate:
		return self.renderAggregate(rec)
	case ir.KindCast:
		return self.renderCast(rec)
	case ir.KindCollation:
		return self.renderCollation(rec)
	case ir.KindConversion:
		return self.renderConversion(rec)
	case ir.KindDomain:
		return self.renderDomain(rec)
	case ir.KindEventTrigger:
		return self.renderEventTrigger(rec)
	case ir.KindExtension:
		return self.renderExtension(rec)
	case ir.KindFKConstraint:
		return self.renderForeignKey(rec)
	case ir.KindForeignDataWrapper:
		return self.renderForeignDataWrapper(rec)
	case ir.KindFunction, ir.KindProcedure:
		return self.renderFunction(rec)
	case ir.KindGroup, ir.KindRole, ir.KindUser:
		return self.renderRole(rec)
	case ir.KindIndex:
		return self.renderIndex(rec)
	case ir.KindMaterializedView:
		return self.renderMaterializedView(rec)
	case ir.KindOperator:
		return self.renderOperator(rec)
	case ir.KindProceduralLanguage:
		return self.renderLanguage(rec)
	case ir.KindPublication:
		return self.renderPublication(rec)
	case ir.KindRule:
		return self.renderRule(rec)
	case ir.KindSchema:
		return self.renderSchema(rec)
	case ir.KindSequence:
		return self.renderSequence(rec)
	case ir.KindSequenceOwnedBy:
		return self.renderSequenceOwnedBy(rec)
	case ir.KindServer:
		return self.renderServer(rec)
	case ir.KindSubscription:
		return self.renderSubscription(rec)
	case ir.KindTable:
		return self.renderTable(rec)
	case ir.KindTablespace:
		return self.renderTablespace(rec)
	case ir.KindTextSearchConfiguration, ir.KindTextSearchDictionary,
		ir.KindTextSearchParser, ir.KindTextSearchTemplate:
		return self.renderTextSearch(rec)
	case ir.KindTrigger:
		return self.renderTrigger(rec)
	case ir.KindType:
		return self.renderType(rec)
	case ir.KindUserMapping:
		return self.renderUserMapping(rec)
	case ir.KindView:
		return self.renderView(rec)
	}
	return "", &UnsupportedKindError{Kind: rec.Kind}
}

// Emit renders rec and adds it to the archive, followed by a COMMENT
// entry for each comment. deps are the ids rec was sequenced after.
func (self *Synthesizer) Emit(rec *ir.ObjectRecord, deps []int) error {
	rendered, err := self.Render(rec)
	if err != nil {
		return err
	}
	schema := rec.Schema
	if rec.Kind.IsSchemaless() {
		schema = ""
	}
	_, err = self.out.AddEntry(archive.EntryOptions{
		ID:           rec.ID,
		Desc:         string(rec.Kind),
		Section:      string(rec.Kind.Section()),
		Namespace:    schema,
		Tag:          rec.Name,
		Owner:        self.entryOwner(rec),
		Tablespace:   rec.Tablespace,
		Defn:         rendered.Create,
		DropStmt:     rendered.Drop,
		Dependencies: deps,
	})
	if err != nil {
		return err
	}
	for _, comment := range rendered.Comments {
		_, err := self.out.AddEntry(archive.EntryOptions{
			ID:           self.ids.Next(),
			Desc:         string(ir.KindComment),
			Section:      string(ir.SectionNone),
			Namespace:    schema,
			Tag:          comment.Kind + " " + comment.Object,
			Owner:        self.entryOwner(rec),
			Defn:         comment.ToSql(self.quoter) + "\n",
			Dependencies: []int{rec.ID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (self *Synthesizer) entryOwner(rec *ir.ObjectRecord) string {
	if rec.Kind.IsRole() {
		return ""
	}
	return util.CoalesceStr(rec.Owner, self.superuser)
}

// tokens assembles a statement from its clauses, skipping empty ones
type tokens []string

func (t *tokens) add(parts ...string) {
	for _, p := range parts {
		if p != "" {
			*t = append(*t, p)
		}
	}
}

func (t *tokens) addIf(cond bool, parts ...string) {
	if cond {
		t.add(parts...)
	}
}

func (t tokens) statement() string {
	return strings.Join(t, " ") + ";\n"
}

func terminate(s string) string {
	s = strings.TrimRight(s, " \t\n")
	if !strings.HasSuffix(s, ";") {
		s += ";"
	}
	return s + "\n"
}

// name is the quoted, schema qualified name of rec
func (self *Synthesizer) name(rec *ir.ObjectRecord) string {
	if rec.Kind.IsSchemaless() {
		return sql.QuoteIdent(rec.Name)
	}
	return self.quoter.QualifyObject(rec.Schema, rec.Name)
}

func (self *Synthesizer) qualified(schema, name string) string {
	return self.quoter.QualifyObject(schema, name)
}

func parenList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sql.QuoteIdent(n)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// withOptions renders an unordered option map as WITH (k = v, ...),
// sorted by key
func withOptions[V any](opts map[string]V) string {
	if len(opts) == 0 {
		return ""
	}
	keys := sortedKeys(opts)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = %s", k, optionValue(opts[k]))
	}
	return "WITH (" + strings.Join(parts, ", ") + ")"
}

// fdwOptions renders OPTIONS (k 'v', ...) sorted by key
func fdwOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return ""
	}
	keys := sortedKeys(opts)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", k, sql.PostgresValue(opts[k]))
	}
	return "OPTIONS (" + strings.Join(parts, ", ") + ")"
}

// optionValue leaves storage parameter style values bare when they are
// plain words or numbers
func optionValue(v interface{}) string {
	if s, ok := v.(string); ok {
		if bareOption(s) {
			return s
		}
		return sql.PostgresValue(s)
	}
	return sql.PostgresValue(v)
}

func bareOption(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}

type attrsError struct {
	rec  *ir.ObjectRecord
	want string
}

func (e *attrsError) Error() string {
	return fmt.Sprintf("%s has no %s definition", e.rec.Triple(), e.want)
}

// UnsupportedKindError is returned for kinds the synthesizer has no rule for
type UnsupportedKindError struct {
	Kind ir.Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("no SQL rendering for %s", e.Kind)
}

// OrphanedChildError is returned when a table child can't be found in
// its parent's attribute list
type OrphanedChildError struct {
	Child  ir.Triple
	Parent ir.Triple
}

func (e *OrphanedChildError) Error() string {
	return fmt.Sprintf("%s not found in %s", e.Child, e.Parent)
}
