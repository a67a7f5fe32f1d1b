package inventory

import (
	"github.com/dbsteward/pglifecycle/lib/ir"
)

// Inventory is the catalog of every object known to a run. It is the
// sole owner of records; everything else refers to them by id.
type Inventory struct {
	ids     *IDAllocator
	records map[ir.Triple]*ir.ObjectRecord
	byID    map[int]*ir.ObjectRecord
	order   []*ir.ObjectRecord
}

func New(ids *IDAllocator) *Inventory {
	return &Inventory{
		ids:     ids,
		records: map[ir.Triple]*ir.ObjectRecord{},
		byID:    map[int]*ir.ObjectRecord{},
	}
}

// IDs returns the allocator backing this inventory
func (self *Inventory) IDs() *IDAllocator {
	return self.ids
}

func key(kind ir.Kind, schema, name string) ir.Triple {
	if schema == "" {
		schema = kind.DefaultSchema()
	}
	if kind.IsSchemaless() {
		schema = string(kind)
	}
	return ir.Triple{Kind: kind, Schema: schema, Name: name}
}

// Add catalogs rec, assigning it the next id. The schema is normalized
// the same way Lookup normalizes it.
func (self *Inventory) Add(rec ir.ObjectRecord) (int, error) {
	k := key(rec.Kind, rec.Schema, rec.Name)
	if _, exists := self.records[k]; exists {
		return 0, &DuplicateObjectError{Object: k}
	}
	rec.Schema = k.Schema
	rec.ID = self.ids.Next()
	stored := &rec
	self.records[k] = stored
	self.byID[stored.ID] = stored
	self.order = append(self.order, stored)
	return stored.ID, nil
}

func (self *Inventory) Lookup(kind ir.Kind, schema, name string) (*ir.ObjectRecord, error) {
	k := key(kind, schema, name)
	rec, ok := self.records[k]
	if !ok {
		return nil, &UnknownReferenceError{Object: k}
	}
	return rec, nil
}

// Has is Lookup without the error
func (self *Inventory) Has(kind ir.Kind, schema, name string) bool {
	_, ok := self.records[key(kind, schema, name)]
	return ok
}

func (self *Inventory) ReverseLookup(id int) (ir.Triple, error) {
	rec, ok := self.byID[id]
	if !ok {
		return ir.Triple{}, &UnknownIDError{ID: id}
	}
	return rec.Triple(), nil
}

func (self *Inventory) Get(id int) (*ir.ObjectRecord, error) {
	rec, ok := self.byID[id]
	if !ok {
		return nil, &UnknownIDError{ID: id}
	}
	return rec, nil
}

// Records returns every record in the order it was added
func (self *Inventory) Records() []*ir.ObjectRecord {
	out := make([]*ir.ObjectRecord, len(self.order))
	copy(out, self.order)
	return out
}

func (self *Inventory) ByKind(kinds ...ir.Kind) []*ir.ObjectRecord {
	out := []*ir.ObjectRecord{}
	for _, rec := range self.order {
		for _, kind := range kinds {
			if rec.Kind == kind {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Children returns the records whose parent is id
func (self *Inventory) Children(id int) []*ir.ObjectRecord {
	out := []*ir.ObjectRecord{}
	for _, rec := range self.order {
		if rec.ParentID == id {
			out = append(out, rec)
		}
	}
	return out
}

func (self *Inventory) Len() int {
	return len(self.order)
}
