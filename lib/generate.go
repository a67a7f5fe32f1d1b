package lib

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/config"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/live"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/parse"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/pgdump"
	"github.com/dbsteward/pglifecycle/lib/project"
	"github.com/dbsteward/pglifecycle/lib/util"
)

const defaultPort = 5432

const descSecurityLabel = "SECURITY LABEL"

var extensionSchema = regexp.MustCompile(`(?i)\bWITH SCHEMA\s+("[^"]+"|\S+?)\s*;`)

func (self *PGLifecycle) doGenerate(ctx context.Context, cmd *config.GenerateCmd) error {
	opts := &pgdump.Options{
		Host:             cmd.Host,
		Port:             cmd.Port,
		DBName:           cmd.DBName,
		Username:         cmd.Username,
		Role:             cmd.Role,
		NoOwner:          cmd.NoOwner,
		NoPrivileges:     cmd.NoPrivileges,
		NoSecurityLabels: cmd.NoSecurityLabels,
		NoTablespaces:    cmd.NoTablespaces,
		Password:         util.ValueOr(cmd.Password, ""),
	}
	if opts.Port == 0 {
		opts.Port = defaultPort
	}
	if cmd.Prompt {
		pass, err := util.PromptPassword("Password: ")
		if err != nil {
			return errors.Wrap(err, "could not read password")
		}
		opts.Password = pass
	}

	conf := self.config()
	conf.Force = cmd.Force
	conf.Gitkeep = cmd.Gitkeep
	conf.RemoveEmptyDirs = cmd.RemoveEmptyDirs
	conf.SaveRemaining = cmd.SaveRemaining
	conf.NoOwner = cmd.NoOwner
	conf.NoPrivileges = cmd.NoPrivileges
	conf.NoSecurityLabels = cmd.NoSecurityLabels
	conf.NoTablespaces = cmd.NoTablespaces
	if cmd.Ignore != "" {
		ignore, err := ReadIgnoreFile(cmd.Ignore)
		if err != nil {
			return &ExitError{Code: ExitInvalidAction, Err: err}
		}
		self.Notice("Ignoring %d files", len(ignore))
		conf.Ignore = ignore
	}

	tmp, err := os.MkdirTemp("", "pglifecycle-")
	if err != nil {
		return errors.Wrap(err, "could not create a temporary directory")
	}
	defer os.RemoveAll(tmp)

	dumpPath := cmd.DumpFile
	if cmd.Extract {
		if dumpPath == "" {
			dumpPath = filepath.Join(tmp, "schema.sql")
		}
		self.Notice("Dumping schema from postgresql://%s:%d/%s", opts.Host, opts.Port, opts.DBName)
		if err := pgdump.Dump(ctx, conf.Logger, opts, dumpPath); err != nil {
			return &ExitError{Code: ExitSubprocess, Err: err}
		}
	} else if dumpPath == "" {
		return &ExitError{Code: ExitMissingArgument, Err: errors.New("--dump-file is required unless --extract is set")}
	}

	self.Info("Loading dump from %s", dumpPath)
	a, err := archive.Load(dumpPath)
	if err != nil {
		return &ExitError{Code: ExitInvalidAction, Err: err}
	}
	if cmd.Extract && cmd.DBName != "" {
		a.DBName = cmd.DBName
	}

	gen := NewGenerator(conf, a, cmd.Destination)
	switch {
	case cmd.RolesFromCatalog:
		roles, err := catalogRoles(ctx, opts)
		if err != nil {
			return &ExitError{Code: ExitSubprocess, Err: err}
		}
		gen.AddCatalogRoles(roles)
	case cmd.ExtractRoles:
		rolesPath := util.CoalesceStr(cmd.RolesFile, filepath.Join(tmp, "roles.sql"))
		if err := pgdump.DumpRoles(ctx, conf.Logger, opts, rolesPath); err != nil {
			return &ExitError{Code: ExitSubprocess, Err: err}
		}
		if err := gen.ReadRoles(rolesPath); err != nil {
			return err
		}
	case cmd.RolesFile != "":
		if err := gen.ReadRoles(cmd.RolesFile); err != nil {
			return err
		}
	}

	self.Notice("Generating project in %s", cmd.Destination)
	return gen.Run()
}

func catalogRoles(ctx context.Context, opts *pgdump.Options) ([]*live.Role, error) {
	conn, err := live.Connect(ctx, live.ConnectOptions{
		Host:     opts.Host,
		Port:     opts.Port,
		DBName:   opts.DBName,
		User:     opts.Username,
		Password: opts.Password,
	})
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)
	intro, err := live.NewRoleIntrospector(ctx, conn)
	if err != nil {
		return nil, err
	}
	return live.ExtractRoles(ctx, intro)
}

// ReadIgnoreFile reads the project relative paths of files generate
// should not write, one per line
func ReadIgnoreFile(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()
	out := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out[filepath.Clean(line)] = true
	}
	return out, errors.Wrapf(scanner.Err(), "could not read %s", path)
}

// Generator writes a project tree from a dump archive. Entries that are
// turned into project files are marked processed; whatever is left over
// is reported, and optionally saved, at the end.
type Generator struct {
	config    Config
	logger    *slog.Logger
	archive   *archive.Archive
	writer    *project.Writer
	entries   map[string][]*archive.Entry
	processed map[int]bool
	comments  map[string]*comment
	roles     *util.OrderedMap[string, *generatedRole]
	hasRoles  bool
	written   map[string]bool
}

func NewGenerator(config Config, a *archive.Archive, dest string) *Generator {
	self := &Generator{
		config:    config,
		logger:    config.Logger,
		archive:   a,
		writer:    project.NewWriter(config.Logger, dest, config.Gitkeep),
		entries:   map[string][]*archive.Entry{},
		processed: map[int]bool{},
		comments:  map[string]*comment{},
		roles:     util.NewOrderedMap[string, *generatedRole](),
		written:   map[string]bool{},
	}
	for _, e := range a.Entries() {
		self.entries[e.Desc] = append(self.entries[e.Desc], e)
	}
	return self
}

// genericKinds are written as their dump SQL plus the shared metadata
var genericKinds = []ir.Kind{
	ir.KindAggregate,
	ir.KindCast,
	ir.KindCollation,
	ir.KindConversion,
	ir.KindDomain,
	ir.KindEventTrigger,
	ir.KindForeignDataWrapper,
	ir.KindFunction,
	ir.KindMaterializedView,
	ir.KindOperator,
	ir.KindProcedure,
	ir.KindPublication,
	ir.KindServer,
	ir.KindSubscription,
	ir.KindTablespace,
	ir.KindType,
	ir.KindView,
}

func (self *Generator) Run() error {
	if err := self.writer.Prepare(self.config.Force); err != nil {
		return &ExitError{Code: ExitInvalidAction, Err: err}
	}
	self.indexComments()
	for _, desc := range []string{archive.DescEncoding, archive.DescStdStrings, archive.DescSearchPath, string(ir.KindDatabase)} {
		self.markAll(desc)
	}
	if self.config.NoSecurityLabels {
		self.markAll(descSecurityLabel)
	}
	if self.config.NoPrivileges {
		self.markAll(archive.DescACL)
	}

	steps := []func() error{
		self.writeProject,
		self.writeSchemas,
		self.writeSequences,
		self.writeTables,
		self.writeGeneric,
		self.writeTextSearch,
		self.writeUserMappings,
		self.writeTableData,
	}
	if self.hasRoles {
		steps = append(steps, self.processACLs, self.writeRoles)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	self.markAll(string(ir.KindSequenceSet))

	remaining := self.remaining()
	counts := map[string]int{}
	for _, e := range remaining {
		counts[e.Section+":"+e.Desc]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, k := range keys {
		self.logger.Info("remaining entries", "kind", k, "count", counts[k])
	}
	if self.config.SaveRemaining {
		if err := self.writer.WriteRemaining(remaining); err != nil {
			return err
		}
	}

	if self.config.Gitkeep {
		if err := self.writer.RemoveUnneededGitkeeps(); err != nil {
			return errors.Wrap(err, "could not remove .gitkeep files")
		}
	}
	if self.config.RemoveEmptyDirs {
		if err := self.writer.RemoveEmptyDirectories(); err != nil {
			return errors.Wrap(err, "could not remove empty directories")
		}
	}
	self.logger.Info("generated project", "path", self.writer.Root(), "files", len(self.written))
	return nil
}

// remaining lists the entries no project file accounts for
func (self *Generator) remaining() []*archive.Entry {
	out := []*archive.Entry{}
	for _, e := range self.archive.Entries() {
		if !self.processed[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func (self *Generator) mark(e *archive.Entry) {
	self.processed[e.ID] = true
}

func (self *Generator) markAll(desc string) {
	for _, e := range self.entries[desc] {
		self.mark(e)
	}
}

// save writes doc unless its path is ignored. Objects whose path is
// already taken are numbered.
func (self *Generator) save(kind ir.Kind, schema, name string, doc interface{}) error {
	rel, err := project.FilePath(kind, schema, name)
	if err != nil {
		return err
	}
	if self.config.Ignore[rel] {
		self.logger.Debug("skipping ignored file", "path", rel)
		return nil
	}
	base := rel
	for n := 1; self.written[rel]; n++ {
		rel = project.AlternatePath(base, n)
	}
	self.written[rel] = true
	return self.writer.WriteFile(rel, kind, schema, name, doc)
}

// meta fills the shared project file fields from an entry, honouring
// the no-owner and no-tablespaces switches
func (self *Generator) meta(kind ir.Kind, e *archive.Entry) ir.Meta {
	m := ir.Meta{
		Name:         e.Tag,
		Comment:      self.comment(string(kind), qualify(kind, e.Namespace, e.Tag)),
		Dependencies: self.dependencies(e, 0),
	}
	if !kind.IsSchemaless() {
		m.Schema = e.Namespace
	}
	if !self.config.NoOwner {
		m.Owner = e.Owner
	}
	if !self.config.NoTablespaces {
		m.Tablespace = e.Tablespace
	}
	return m
}

func qualify(kind ir.Kind, schema, name string) string {
	if kind.IsSchemaless() || schema == "" {
		return name
	}
	return schema + "." + name
}

// dependencies names the objects e depends on, leaving out schemas, the
// parent the entry is written under and anything that is not a project
// object
func (self *Generator) dependencies(e *archive.Entry, parent int) []ir.Dependency {
	out := []ir.Dependency{}
	for _, id := range e.Dependencies {
		if id == parent {
			continue
		}
		dep := self.archive.Get(id)
		if dep == nil {
			continue
		}
		kind := ir.Kind(dep.Desc)
		if kind == ir.KindSchema {
			continue
		}
		if _, ok := ir.Paths[kind]; !ok && kind != ir.KindExtension && kind != ir.KindProceduralLanguage {
			continue
		}
		out = append(out, ir.Dependency{Kind: kind, Name: qualify(kind, dep.Namespace, dep.Tag)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type comment struct {
	entry *archive.Entry
	text  string
}

// indexComments keys every COMMENT entry by the object it describes
func (self *Generator) indexComments() {
	for _, e := range self.entries[archive.DescComment] {
		stmt, err := parse.ParseOne(e.Defn)
		if err != nil {
			self.logger.Debug("could not parse comment", "tag", e.Tag, "error", err)
			continue
		}
		if c, ok := stmt.(*parse.Comment); ok {
			self.comments[commentKey(c.ObjectType, c.Object)] = &comment{entry: e, text: c.Text}
		}
	}
}

func commentKey(kind, object string) string {
	return kind + " " + object
}

// comment returns the comment on the named object and marks its entry
// processed
func (self *Generator) comment(kind, object string) string {
	c, ok := self.comments[commentKey(kind, object)]
	if !ok {
		return ""
	}
	self.mark(c.entry)
	return c.text
}

func (self *Generator) writeProject() error {
	proj := &ir.Project{
		Name:       self.archive.DBName,
		Encoding:   self.archive.Encoding,
		StdStrings: self.archive.StdStrings,
	}
	for _, e := range self.entries[string(ir.KindExtension)] {
		self.mark(e)
		ext := &ir.Extension{Meta: ir.Meta{
			Name:    e.Tag,
			Comment: self.comment(string(ir.KindExtension), e.Tag),
		}}
		if m := extensionSchema.FindStringSubmatch(e.Defn); m != nil {
			ext.Schema = strings.Trim(m[1], `"`)
		}
		proj.Extensions = append(proj.Extensions, ext)
	}
	for _, e := range self.entries[string(ir.KindProceduralLanguage)] {
		self.mark(e)
		lang := &ir.Language{
			Meta:    self.meta(ir.KindProceduralLanguage, e),
			Trusted: strings.Contains(strings.ToUpper(e.Defn), " TRUSTED "),
		}
		lang.SQL = strings.TrimSpace(e.Defn)
		lang.Comment = self.comment("LANGUAGE", e.Tag)
		proj.Languages = append(proj.Languages, lang)
	}
	if self.config.Ignore[project.ProjectFile] {
		return nil
	}
	return self.writer.WriteProject(proj)
}

func (self *Generator) writeSchemas() error {
	for _, e := range self.entries[string(ir.KindSchema)] {
		self.mark(e)
		schema := &ir.Schema{Meta: self.meta(ir.KindSchema, e)}
		if e.Tag != ir.SchemaPublic {
			schema.SQL = strings.TrimSpace(e.Defn)
		}
		if err := self.save(ir.KindSchema, "", e.Tag, schema); err != nil {
			return err
		}
	}
	return nil
}

// writeGeneric stores the kinds that have no structured form as their
// dump SQL
func (self *Generator) writeGeneric() error {
	for _, kind := range genericKinds {
		for _, e := range self.entries[string(kind)] {
			self.mark(e)
			m := self.meta(kind, e)
			m.SQL = strings.TrimSpace(e.Defn)
			if err := self.save(kind, e.Namespace, e.Tag, &m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self *Generator) writeTextSearch() error {
	bySchema := util.NewOrderedMap[string, *ir.TextSearch]()
	for _, kind := range []ir.Kind{
		ir.KindTextSearchConfiguration,
		ir.KindTextSearchDictionary,
		ir.KindTextSearchParser,
		ir.KindTextSearchTemplate,
	} {
		for _, e := range self.entries[string(kind)] {
			self.mark(e)
			ts := bySchema.GetOrInit(e.Namespace, func() *ir.TextSearch {
				return &ir.TextSearch{Schema: e.Namespace}
			})
			m := self.meta(kind, e)
			m.SQL = strings.TrimSpace(e.Defn)
			switch kind {
			case ir.KindTextSearchConfiguration:
				ts.Configurations = append(ts.Configurations, &ir.TextSearchConfiguration{Meta: m})
			case ir.KindTextSearchDictionary:
				ts.Dictionaries = append(ts.Dictionaries, &ir.TextSearchDictionary{Meta: m})
			case ir.KindTextSearchParser:
				ts.Parsers = append(ts.Parsers, &ir.TextSearchParser{Meta: m})
			case ir.KindTextSearchTemplate:
				ts.Templates = append(ts.Templates, &ir.TextSearchTemplate{Meta: m})
			}
		}
	}
	for _, ts := range bySchema.Values() {
		rel, err := project.FilePath(ir.KindTextSearchConfiguration, ts.Schema, "")
		if err != nil {
			return err
		}
		if self.config.Ignore[rel] {
			self.logger.Debug("skipping ignored file", "path", rel)
			continue
		}
		if _, err := self.writer.WriteTextSearch(ts); err != nil {
			return err
		}
		self.written[rel] = true
	}
	return nil
}

var userMappingStmt = regexp.MustCompile(`(?is)^CREATE USER MAPPING FOR ("[^"]+"|\S+) SERVER ("[^"]+"|\S+?)(?:\s+OPTIONS\s*\((.*)\))?\s*;`)
var fdwOption = regexp.MustCompile(`("[^"]+"|\w+)\s+'((?:[^']|'')*)'`)

// writeUserMappings groups the mappings of each user into one file
func (self *Generator) writeUserMappings() error {
	byUser := util.NewOrderedMap[string, *ir.UserMapping]()
	for _, e := range self.entries[string(ir.KindUserMapping)] {
		m := userMappingStmt.FindStringSubmatch(strings.TrimSpace(e.Defn))
		if m == nil {
			self.logger.Warn("could not read user mapping", "tag", e.Tag)
			continue
		}
		self.mark(e)
		user := strings.Trim(m[1], `"`)
		server := &ir.UserMappingServer{Name: strings.Trim(m[2], `"`)}
		for _, opt := range fdwOption.FindAllStringSubmatch(m[3], -1) {
			if server.Options == nil {
				server.Options = map[string]string{}
			}
			server.Options[strings.Trim(opt[1], `"`)] = strings.ReplaceAll(opt[2], "''", "'")
		}
		um := byUser.GetOrInit(user, func() *ir.UserMapping {
			return &ir.UserMapping{Meta: ir.Meta{Name: user}}
		})
		um.Servers = append(um.Servers, server)
	}
	for _, um := range byUser.Values() {
		if err := self.save(ir.KindUserMapping, "", um.Name, um); err != nil {
			return err
		}
	}
	return nil
}

// writeTableData stores the rows of every TABLE DATA entry as CSV
func (self *Generator) writeTableData() error {
	for _, e := range self.entries[archive.DescTableData] {
		if e.Data == nil {
			continue
		}
		self.mark(e)
		rel := project.DMLPath(e.Namespace, e.Tag)
		if self.config.Ignore[rel] {
			self.logger.Debug("skipping ignored file", "path", rel)
			continue
		}
		if _, err := self.writer.WriteDML(e.Namespace, e.Tag, e.Data.Columns, e.Data.Rows); err != nil {
			return err
		}
		self.written[rel] = true
	}
	return nil
}
