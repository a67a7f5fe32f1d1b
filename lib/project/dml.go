package project

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

// NullValue marks a NULL in DML files, as in COPY text format
const NullValue = `\N`

// DMLFile is one table's rows on disk
type DMLFile struct {
	Schema string
	Table  string
	Path   string
}

// DMLFiles lists the CSV files under the dml directory, sorted by schema
// and table. A project without a dml directory has none.
func DMLFiles(root string) ([]DMLFile, error) {
	base := filepath.Join(root, ir.DMLPath)
	schemas, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", base)
	}
	out := []DMLFile{}
	for _, schema := range schemas {
		if !schema.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(base, schema.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "could not read %s", schema.Name())
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".csv") {
				continue
			}
			out = append(out, DMLFile{
				Schema: schema.Name(),
				Table:  strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())),
				Path:   filepath.Join(base, schema.Name(), f.Name()),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		return out[i].Table < out[j].Table
	})
	return out, nil
}

// ReadDML returns the header and rows of a DML file
func ReadDML(path string) ([]string, [][]*string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()
	r := csv.NewReader(f)
	columns, err := r.Read()
	if err == io.EOF {
		return nil, nil, errors.Errorf("%s has no header row", path)
	} else if err != nil {
		return nil, nil, errors.Wrapf(err, "could not read %s", path)
	}
	r.FieldsPerRecord = len(columns)
	rows := [][]*string{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, errors.Wrapf(err, "could not read %s", path)
		}
		row := make([]*string, len(record))
		for i := range record {
			if record[i] != NullValue {
				row[i] = &record[i]
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// WriteDML stores the rows of a table under dml/<schema>/<table>.csv
func (self *Writer) WriteDML(schema, table string, columns []string, rows [][]*string) (string, error) {
	rel := DMLPath(schema, table)
	path := filepath.Join(self.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "could not create %s", path)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", errors.Wrapf(err, "could not write %s", path)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row {
			if v == nil {
				record[i] = NullValue
			} else {
				record[i] = *v
			}
		}
		if err := w.Write(record); err != nil {
			return "", errors.Wrapf(err, "could not write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrapf(err, "could not write %s", path)
	}
	self.logger.Debug("writing table data", "path", rel, "rows", len(rows))
	return rel, f.Close()
}
