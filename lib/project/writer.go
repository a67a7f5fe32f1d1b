package project

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

// Writer lays out a project tree on disk
type Writer struct {
	logger  *slog.Logger
	root    string
	gitkeep bool
}

func NewWriter(logger *slog.Logger, root string, gitkeep bool) *Writer {
	return &Writer{logger: logger, root: root, gitkeep: gitkeep}
}

func (self *Writer) Root() string {
	return self.root
}

// Prepare creates the project root and a directory per kind. An existing
// root is only reused when force is set.
func (self *Writer) Prepare(force bool) error {
	if util.Exists(self.root) && !force {
		return errors.Errorf("%s already exists", self.root)
	}
	self.logger.Debug("creating project directories", "path", self.root)
	dirs := append(util.Unique(mapValues(ir.Paths)), ir.DMLPath)
	for _, dir := range dirs {
		path := filepath.Join(self.root, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return errors.Wrapf(err, "could not create %s", path)
		}
		if self.gitkeep {
			if err := os.WriteFile(filepath.Join(path, gitkeep), nil, 0o644); err != nil {
				return errors.Wrapf(err, "could not create %s in %s", gitkeep, path)
			}
		}
	}
	return nil
}

func mapValues(m map[ir.Kind]string) []string {
	out := make([]string, 0, len(m))
	for _, kind := range ir.ProjectKinds {
		if v, ok := m[kind]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Write stores doc as the file for the named object and returns its path
// relative to the root
func (self *Writer) Write(kind ir.Kind, schema, name string, doc interface{}) (string, error) {
	rel, err := FilePath(kind, schema, name)
	if err != nil {
		return "", err
	}
	return rel, self.WriteFile(rel, kind, schema, name, doc)
}

// WriteFile stores doc for the named object at rel, for callers that
// had to pick a path other than FilePath
func (self *Writer) WriteFile(rel string, kind ir.Kind, schema, name string, doc interface{}) error {
	display := name
	if !kind.IsSchemaless() && schema != "" {
		display = schema + "." + name
	}
	return self.save(rel, header(kind, display), doc)
}

func (self *Writer) WriteProject(project *ir.Project) error {
	return self.save(ProjectFile, header("PROJECT", project.Name), project)
}

// WriteTextSearch stores every text search object of one schema
func (self *Writer) WriteTextSearch(ts *ir.TextSearch) (string, error) {
	rel, err := FilePath(ir.KindTextSearchConfiguration, ts.Schema, "")
	if err != nil {
		return "", err
	}
	return rel, self.save(rel, header("TEXT SEARCH", ts.Schema), ts)
}

// WriteRemaining stores the archive entries generate did not turn into
// project files
func (self *Writer) WriteRemaining(entries []*archive.Entry) error {
	self.logger.Debug("writing remaining entries", "count", len(entries))
	return self.save(RemainingFile, "", entries)
}

func (self *Writer) save(rel, head string, doc interface{}) error {
	buf := bytes.NewBufferString(head)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrapf(err, "could not encode %s", rel)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "could not encode %s", rel)
	}
	path := filepath.Join(self.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", filepath.Dir(path))
	}
	self.logger.Debug("writing project file", "path", rel)
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "could not write %s", path)
}

// RemoveUnneededGitkeeps drops the placeholder from directories that
// ended up with other content
func (self *Writer) RemoveUnneededGitkeeps() error {
	return filepath.WalkDir(self.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		hasKeep := false
		for _, e := range entries {
			if e.Name() == gitkeep {
				hasKeep = true
			}
		}
		if hasKeep && len(entries) > 1 {
			self.logger.Debug("removing placeholder", "path", path)
			return os.Remove(filepath.Join(path, gitkeep))
		}
		return nil
	})
}

// RemoveEmptyDirectories prunes directories left without files,
// deepest first
func (self *Writer) RemoveEmptyDirectories() error {
	dirs := []string{}
	err := filepath.WalkDir(self.root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != self.root {
			dirs = append(dirs, path)
		}
		return err
	})
	if err != nil {
		return err
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			self.logger.Debug("removing empty directory", "path", dirs[i])
			if err := os.Remove(dirs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
