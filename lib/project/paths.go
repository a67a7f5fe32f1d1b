// Package project reads and writes the YAML project tree: one file per
// database object, grouped into a directory per object kind.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

const (
	ProjectFile   = "project.yaml"
	RemainingFile = "remaining.yaml"
	gitkeep       = ".gitkeep"
)

// flatKind is true for kinds whose files sit directly in the kind
// directory rather than in a directory per schema
func flatKind(kind ir.Kind) bool {
	return kind.IsSchemaless()
}

// fileName keeps names usable as a single path element
func fileName(name string) string {
	return strings.ReplaceAll(name, "/", "_") + ".yaml"
}

// FilePath is where an object lives, relative to the project root.
// Functions and procedures are stored by name and arity so overloads get
// a file each.
func FilePath(kind ir.Kind, schema, name string) (string, error) {
	dir, ok := ir.Paths[kind]
	if !ok {
		return "", errors.Errorf("%s objects are not stored in project files", kind)
	}
	switch kind {
	case ir.KindTextSearchConfiguration, ir.KindTextSearchDictionary:
		return filepath.Join(dir, fileName(schema)), nil
	case ir.KindFunction, ir.KindProcedure:
		name = fmt.Sprintf("%s-%d", ir.BareName(name), ir.Arity(name))
	}
	if flatKind(kind) {
		return filepath.Join(dir, fileName(name)), nil
	}
	if schema == "" {
		schema = ir.SchemaPublic
	}
	return filepath.Join(dir, schema, fileName(name)), nil
}

// AlternatePath numbers rel for objects that would otherwise share a
// file, such as overloaded functions of the same arity
func AlternatePath(rel string, n int) string {
	ext := filepath.Ext(rel)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(rel, ext), n, ext)
}

// DMLPath is the CSV file holding the rows of a table
func DMLPath(schema, table string) string {
	if schema == "" {
		schema = ir.SchemaPublic
	}
	return filepath.Join(ir.DMLPath, schema, table+".csv")
}

// header is the comment block every project file starts with
func header(kind ir.Kind, name string) string {
	if name == "" {
		return fmt.Sprintf("# %s\n---\n", kind)
	}
	return fmt.Sprintf("# %s: %s\n---\n", kind, name)
}
