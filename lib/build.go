package lib

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbsteward/pglifecycle/lib/archive"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8"
	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/sql"
	"github.com/dbsteward/pglifecycle/lib/graph"
	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/project"
	"github.com/dbsteward/pglifecycle/lib/util"
)

// Build loads the project at path and writes it as a dump to dest. An
// empty dest writes the plain SQL script <path>/<name>.sql. Any other
// extension than .sql gets the pglifecycle container, which only
// pglifecycle reads back.
func Build(config Config, path, dest string) (*archive.Archive, error) {
	logger := config.Logger
	inv := inventory.New(inventory.NewIDAllocator(archive.FirstID))
	proj, err := project.Load(logger, path, inv)
	if err != nil {
		return nil, buildFailure(err)
	}
	superuser := proj.SuperuserOrDefault()

	acls, err := pgsql8.NewACLBuilder(logger, inv, superuser).Build()
	if err != nil {
		return nil, buildFailure(err)
	}
	logger.Debug("built ACLs", "count", acls)

	edges, err := graph.Resolve(inv, superuser)
	if err != nil {
		return nil, buildFailure(err)
	}
	order, err := graph.Sequence(edges, inv)
	if err != nil {
		return nil, buildFailure(err)
	}

	a := archive.New(proj.Name, util.CoalesceStr(proj.Encoding, ir.DefaultEncode), proj.StdStrings)
	synth := pgsql8.NewSynthesizer(logger, inv, a, superuser)
	for _, id := range order {
		rec, err := inv.Get(id)
		if err != nil {
			return nil, buildFailure(err)
		}
		if err := synth.Emit(rec, edges.Of(id)); err != nil {
			return nil, buildFailure(errors.Wrapf(err, "could not create %s", rec.Triple()))
		}
	}

	if err := addDML(config, path, a, inv); err != nil {
		return nil, buildFailure(err)
	}
	if err := verifyEntries(a, inv); err != nil {
		return nil, buildFailure(err)
	}

	if dest == "" {
		dest = filepath.Join(path, proj.Name+".sql")
	}
	if dir := filepath.Dir(dest); !util.IsDir(dir) {
		return nil, &ExitError{Code: ExitInvalidAction, Err: errors.Errorf("destination directory %s does not exist", dir)}
	}
	logger.Info("saving archive", "path", dest, "entries", len(a.Entries()))
	if err := a.Save(dest); err != nil {
		return nil, buildFailure(err)
	}
	return a, nil
}

func buildFailure(err error) error {
	return &ExitError{Code: ExitBuildFailure, Err: err}
}

// addDML turns every CSV file under dml/ into a TABLE DATA entry, and
// restarts the sequences those tables own past the highest loaded value
func addDML(config Config, path string, a *archive.Archive, inv *inventory.Inventory) error {
	files, err := project.DMLFiles(path)
	if err != nil {
		return err
	}
	if files == nil {
		config.Logger.Debug("no dml directory", "path", path)
		return nil
	}
	ids := inv.IDs()
	for _, f := range files {
		table := a.Lookup(string(ir.KindTable), f.Schema, f.Table)
		if table == nil {
			return errors.Errorf("%s: table %s.%s is not part of the project", f.Path, f.Schema, f.Table)
		}
		columns, rows, err := project.ReadDML(f.Path)
		if err != nil {
			return err
		}
		entry, err := a.AddEntry(archive.EntryOptions{
			ID:           ids.Next(),
			Desc:         archive.DescTableData,
			Section:      archive.SectionData,
			Namespace:    f.Schema,
			Tag:          f.Table,
			Owner:        table.Owner,
			Dependencies: []int{table.ID},
		})
		if err != nil {
			return err
		}
		w := a.TableDataWriter(entry, columns)
		for _, row := range rows {
			if err := w.Append(row); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		config.Logger.Debug("added table data", "table", f.Schema+"."+f.Table, "rows", len(rows))
		if err := restartSequences(a, inv, entry, columns, rows); err != nil {
			return err
		}
	}
	return nil
}

// restartSequences adds a SEQUENCE SET entry for each sequence owned by
// a column of the loaded table
func restartSequences(a *archive.Archive, inv *inventory.Inventory, data *archive.Entry, columns []string, rows [][]*string) error {
	table := data.Namespace + "." + data.Tag
	for _, rec := range inv.ByKind(ir.KindSequenceOwnedBy) {
		owned, ok := rec.Attributes.(*ir.SequenceOwnedBy)
		if !ok {
			continue
		}
		ownerTable, column := ownedByColumn(rec.Schema, owned.OwnedBy)
		if ownerTable != table {
			continue
		}
		idx := util.IndexOf(columns, column)
		if idx < 0 {
			continue
		}
		max, found := maxValue(rows, idx)
		if !found {
			continue
		}
		seq := a.Lookup(string(ir.KindSequence), rec.Schema, rec.Name)
		if seq == nil {
			return errors.Errorf("sequence %s.%s is not in the archive", rec.Schema, rec.Name)
		}
		stmt := &sql.SequenceRestart{
			Sequence: sql.SequenceRef{Schema: rec.Schema, Sequence: rec.Name},
			Value:    max + 1,
		}
		_, err := a.AddEntry(archive.EntryOptions{
			ID:           inv.IDs().Next(),
			Desc:         string(ir.KindSequenceSet),
			Section:      archive.SectionData,
			Namespace:    rec.Schema,
			Tag:          rec.Name,
			Owner:        seq.Owner,
			Defn:         stmt.ToSql(&sql.Quoter{}) + "\n",
			Dependencies: []int{seq.ID, data.ID},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ownedByColumn splits an OWNED BY target into its schema qualified
// table and column
func ownedByColumn(schema, ownedBy string) (string, string) {
	parts := strings.Split(ownedBy, ".")
	if len(parts) < 2 {
		return "", ""
	}
	column := parts[len(parts)-1]
	table := strings.Join(parts[:len(parts)-1], ".")
	if len(parts) == 2 {
		table = schema + "." + table
	}
	return table, column
}

func maxValue(rows [][]*string, idx int) (int64, bool) {
	var max int64
	found := false
	for _, row := range rows {
		if row[idx] == nil {
			continue
		}
		v, err := strconv.ParseInt(*row[idx], 10, 64)
		if err != nil {
			continue
		}
		if !found || v > max {
			max = v
			found = true
		}
	}
	return max, found
}

// verifyEntries checks that every catalogued object made it into the
// archive
func verifyEntries(a *archive.Archive, inv *inventory.Inventory) error {
	missing := []string{}
	for _, rec := range inv.Records() {
		if a.Get(rec.ID) == nil {
			missing = append(missing, rec.Triple().String())
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("objects missing from the archive: %s", strings.Join(missing, ", "))
	}
	return nil
}
