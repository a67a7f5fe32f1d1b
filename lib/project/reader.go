package project

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
	"github.com/dbsteward/pglifecycle/lib/validation"
)

// Reader loads a project tree into an inventory. Problems with individual
// files are collected so that one load reports all of them.
type Reader struct {
	logger    *slog.Logger
	root      string
	validator *validation.Validator
	inv       *inventory.Inventory
	errs      *multierror.Error
}

func NewReader(logger *slog.Logger, root string, inv *inventory.Inventory) *Reader {
	return &Reader{
		logger:    logger,
		root:      root,
		validator: validation.New(),
		inv:       inv,
	}
}

// Load reads the project at root into inv and returns the project
// settings. Every invalid or conflicting file is reported in the
// returned error.
func Load(logger *slog.Logger, root string, inv *inventory.Inventory) (*ir.Project, error) {
	return NewReader(logger, root, inv).Load()
}

func (self *Reader) Load() (*ir.Project, error) {
	if !util.IsDir(self.root) {
		return nil, errors.Errorf("project directory %s does not exist", self.root)
	}
	project, err := self.readProject()
	if err != nil {
		return nil, err
	}
	for _, kind := range ir.ProjectKinds {
		self.readKind(kind)
	}
	self.logger.Info("loaded project", "name", project.Name, "objects", self.inv.Len())
	return project, self.errs.ErrorOrNil()
}

func (self *Reader) fail(err error) {
	self.errs = multierror.Append(self.errs, err)
}

func (self *Reader) readProject() (*ir.Project, error) {
	path := filepath.Join(self.root, ProjectFile)
	node, err := readNode(path)
	if err != nil {
		return nil, err
	}
	if err := self.validate("PROJECT", ProjectFile, node); err != nil {
		return nil, err
	}
	project := &ir.Project{}
	if err := node.Decode(project); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", path)
	}
	if project.Encoding == "" {
		project.Encoding = ir.DefaultEncode
	}
	for _, ext := range project.Extensions {
		self.add(ir.ObjectRecord{
			Kind:         ir.KindExtension,
			Name:         ext.Name,
			Comment:      ext.Comment,
			Dependencies: ext.Dependencies,
			Attributes:   ext,
		})
	}
	for _, lang := range project.Languages {
		self.add(ir.ObjectRecord{
			Kind:         ir.KindProceduralLanguage,
			Name:         lang.Name,
			Owner:        lang.Owner,
			Comment:      lang.Comment,
			RawSQL:       lang.SQL,
			Dependencies: lang.Dependencies,
			Attributes:   lang,
		})
	}
	return project, nil
}

// docType is the schema a kind's files are validated against
func docType(kind ir.Kind) string {
	switch kind {
	case ir.KindGroup, ir.KindUser:
		return string(ir.KindRole)
	case ir.KindProcedure:
		return string(ir.KindFunction)
	case ir.KindTextSearchConfiguration:
		return "TEXT SEARCH"
	}
	return string(kind)
}

func (self *Reader) readKind(kind ir.Kind) {
	dir := filepath.Join(self.root, ir.Paths[kind])
	if !util.IsDir(dir) {
		self.logger.Debug("no project directory", "kind", kind, "path", dir)
		return
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		rel, err := filepath.Rel(self.root, path)
		if err != nil {
			return err
		}
		if err := self.readFile(kind, path, rel); err != nil {
			self.fail(err)
		}
		return nil
	})
	if err != nil {
		self.fail(errors.Wrapf(err, "could not read %s", dir))
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// dirSchema is the schema implied by where a file sits: the directory
// just below the kind directory, or for text search the file name.
func dirSchema(kind ir.Kind, rel string) string {
	if kind.IsSchemaless() {
		return ""
	}
	if kind == ir.KindTextSearchConfiguration {
		base := filepath.Base(rel)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}

func (self *Reader) readFile(kind ir.Kind, path, rel string) error {
	node, err := readNode(path)
	if err != nil {
		return err
	}
	if err := self.validate(docType(kind), rel, node); err != nil {
		return err
	}
	schema := dirSchema(kind, rel)
	switch kind {
	case ir.KindTextSearchConfiguration:
		return self.readTextSearch(rel, schema, node)
	case ir.KindUserMapping:
		return self.readUserMapping(rel, node)
	}

	attrs := newAttributes(kind)
	if err := node.Decode(attrs); err != nil {
		return errors.Wrapf(err, "could not decode %s", rel)
	}
	meta := attrs.GetMeta()
	if meta.Schema == "" {
		meta.Schema = schema
	}
	rec := record(kind, attrs)
	switch attrs := attrs.(type) {
	case *ir.Function:
		rec.Name = attrs.Signature()
	case *ir.Table:
		return self.addTable(rec, attrs)
	case *ir.Sequence:
		return self.addSequence(rec, attrs)
	}
	_, err = self.inv.Add(rec)
	return err
}

// record builds the envelope for a decoded file
func record(kind ir.Kind, attrs ir.Attributes) ir.ObjectRecord {
	meta := attrs.GetMeta()
	return ir.ObjectRecord{
		Kind:         kind,
		Schema:       meta.Schema,
		Name:         meta.Name,
		Owner:        meta.Owner,
		Tablespace:   meta.Tablespace,
		Comment:      meta.Comment,
		RawSQL:       meta.SQL,
		Dependencies: meta.Dependencies,
		Attributes:   attrs,
	}
}

func (self *Reader) add(rec ir.ObjectRecord) int {
	id, err := self.inv.Add(rec)
	if err != nil {
		self.fail(err)
	}
	return id
}

// addTable catalogs the table and then each index, trigger, foreign key
// and rule as its own record so they can be sequenced separately
func (self *Reader) addTable(rec ir.ObjectRecord, table *ir.Table) error {
	id, err := self.inv.Add(rec)
	if err != nil {
		return err
	}
	child := func(kind ir.Kind, name, comment string, deps []ir.Dependency) {
		self.add(ir.ObjectRecord{
			ParentID:     id,
			Kind:         kind,
			Schema:       rec.Schema,
			Name:         name,
			Owner:        rec.Owner,
			Comment:      comment,
			Dependencies: deps,
		})
	}
	for _, index := range table.Indexes {
		child(ir.KindIndex, index.Name, index.Comment, nil)
	}
	for _, trigger := range table.Triggers {
		child(ir.KindTrigger, ir.TableChildName(rec.Name, trigger.Name), trigger.Comment, self.triggerDependencies(rec.Schema, trigger))
	}
	for _, fk := range table.ForeignKeys {
		var deps []ir.Dependency
		if fk.SQL == "" {
			schema, name := fk.TargetTable(rec.Schema)
			if schema != rec.Schema || name != rec.Name {
				deps = append(deps, ir.Dependency{Kind: ir.KindTable, Name: schema + "." + name})
			}
		}
		child(ir.KindFKConstraint, ir.TableChildName(rec.Name, fk.Name), fk.Comment, deps)
	}
	for _, rule := range table.Rules {
		child(ir.KindRule, ir.TableChildName(rec.Name, rule.Name), rule.Comment, nil)
	}
	return nil
}

// triggerDependencies points a trigger at its function when the project
// defines it. Built in trigger functions are left alone.
func (self *Reader) triggerDependencies(schema string, trigger *ir.Trigger) []ir.Dependency {
	if trigger.Function == "" {
		return nil
	}
	fnSchema, fnName := util.SplitQualified(ir.BareName(trigger.Function), schema)
	signature := fnName + "()"
	if !self.inv.Has(ir.KindFunction, fnSchema, signature) {
		return nil
	}
	return []ir.Dependency{{Kind: ir.KindFunction, Name: fnSchema + "." + signature}}
}

// addSequence catalogs the sequence and, when it is owned by a column,
// the deferred OWNED BY that has to wait for the table
func (self *Reader) addSequence(rec ir.ObjectRecord, seq *ir.Sequence) error {
	if _, err := self.inv.Add(rec); err != nil {
		return err
	}
	if seq.OwnedBy == "" {
		return nil
	}
	parts := strings.Split(seq.OwnedBy, ".")
	if len(parts) < 2 {
		return errors.Errorf("sequence %s: owned_by %q must name a table column", rec.QualifiedName(), seq.OwnedBy)
	}
	table := strings.Join(parts[:len(parts)-1], ".")
	if len(parts) == 2 {
		table = rec.Schema + "." + table
	}
	_, err := self.inv.Add(ir.ObjectRecord{
		Kind:   ir.KindSequenceOwnedBy,
		Schema: rec.Schema,
		Name:   rec.Name,
		Owner:  rec.Owner,
		Dependencies: []ir.Dependency{
			{Kind: ir.KindTable, Name: table},
			{Kind: ir.KindSequence, Name: rec.QualifiedName()},
		},
		Attributes: &ir.SequenceOwnedBy{
			Meta:    ir.Meta{Name: rec.Name, Schema: rec.Schema},
			OwnedBy: seq.OwnedBy,
		},
	})
	return err
}

type tsObject struct {
	kind  ir.Kind
	attrs ir.Attributes
}

// readTextSearch splits a text search file into a record per object
func (self *Reader) readTextSearch(rel, schema string, node *yaml.Node) error {
	ts := &ir.TextSearch{}
	if err := node.Decode(ts); err != nil {
		return errors.Wrapf(err, "could not decode %s", rel)
	}
	schema = util.CoalesceStr(ts.Schema, schema)
	objects := []tsObject{}
	for _, c := range ts.Configurations {
		objects = append(objects, tsObject{ir.KindTextSearchConfiguration, c})
	}
	for _, d := range ts.Dictionaries {
		objects = append(objects, tsObject{ir.KindTextSearchDictionary, d})
	}
	for _, p := range ts.Parsers {
		objects = append(objects, tsObject{ir.KindTextSearchParser, p})
	}
	for _, t := range ts.Templates {
		objects = append(objects, tsObject{ir.KindTextSearchTemplate, t})
	}
	for _, obj := range objects {
		meta := obj.attrs.GetMeta()
		if meta.Schema == "" {
			meta.Schema = schema
		}
		self.add(record(obj.kind, obj.attrs))
	}
	return nil
}

// readUserMapping splits a user's mapping file into a record per server
func (self *Reader) readUserMapping(rel string, node *yaml.Node) error {
	um := &ir.UserMapping{}
	if err := node.Decode(um); err != nil {
		return errors.Wrapf(err, "could not decode %s", rel)
	}
	for _, server := range um.Servers {
		deps := append([]ir.Dependency{}, um.Dependencies...)
		deps = append(deps, ir.Dependency{Kind: ir.KindServer, Name: server.Name})
		self.add(ir.ObjectRecord{
			Kind:         ir.KindUserMapping,
			Name:         UserMappingName(um.Name, server.Name),
			Dependencies: deps,
			Attributes: &ir.UserMapping{
				Meta:    ir.Meta{Name: um.Name},
				Servers: []*ir.UserMappingServer{server},
			},
		})
	}
	return nil
}

// UserMappingName is the inventory name of one user's mapping to a server
func UserMappingName(user, server string) string {
	return user + " SERVER " + server
}

func (self *Reader) validate(docType, rel string, node *yaml.Node) error {
	var doc interface{}
	if err := node.Decode(&doc); err != nil {
		return errors.Wrapf(err, "could not decode %s", rel)
	}
	return self.validator.Validate(docType, rel, doc)
}

// readNode parses a single YAML document, skipping the header comment
func readNode(path string) (*yaml.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", path)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.Errorf("%s is empty", path)
	}
	return doc.Content[0], nil
}

// newAttributes returns the empty payload a kind's files decode into
func newAttributes(kind ir.Kind) ir.Attributes {
	switch kind {
	case ir.KindAggregate:
		return &ir.Aggregate{}
	case ir.KindCast:
		return &ir.Cast{}
	case ir.KindCollation:
		return &ir.Collation{}
	case ir.KindConversion:
		return &ir.Conversion{}
	case ir.KindDomain:
		return &ir.Domain{}
	case ir.KindEventTrigger:
		return &ir.EventTrigger{}
	case ir.KindForeignDataWrapper:
		return &ir.ForeignDataWrapper{}
	case ir.KindFunction, ir.KindProcedure:
		return &ir.Function{}
	case ir.KindGroup, ir.KindRole, ir.KindUser:
		return &ir.Role{}
	case ir.KindMaterializedView:
		return &ir.MaterializedView{}
	case ir.KindOperator:
		return &ir.Operator{}
	case ir.KindPublication:
		return &ir.Publication{}
	case ir.KindSchema:
		return &ir.Schema{}
	case ir.KindSequence:
		return &ir.Sequence{}
	case ir.KindServer:
		return &ir.Server{}
	case ir.KindSubscription:
		return &ir.Subscription{}
	case ir.KindTable:
		return &ir.Table{}
	case ir.KindTablespace:
		return &ir.Tablespace{}
	case ir.KindType:
		return &ir.Type{}
	case ir.KindView:
		return &ir.View{}
	}
	panic("no attributes for " + string(kind))
}
