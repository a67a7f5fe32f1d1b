package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib/graph"
	"github.com/dbsteward/pglifecycle/lib/inventory"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func mustAdd(t *testing.T, inv *inventory.Inventory, rec ir.ObjectRecord) int {
	id, err := inv.Add(rec)
	require.NoError(t, err)
	return id
}

func TestResolve_ParentSchemaAndDeclared(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	schema := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindSchema, Name: "app"})
	fn := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindFunction, Schema: "app", Name: "touch()"})
	table := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "app", Name: "foo"})
	pub := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "bar"})
	trigger := mustAdd(t, inv, ir.ObjectRecord{
		Kind: ir.KindTrigger, Schema: "app", Name: "foo_touch", ParentID: table,
		Dependencies: []ir.Dependency{
			{Kind: ir.KindFunction, Name: "app.touch()"},
			{Kind: ir.KindSchema, Name: "app"},
			{Kind: ir.KindTable, Name: "bar"},
		},
	})

	edges, err := graph.Resolve(inv, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []int{}, edges[schema])
	assert.Equal(t, []int{schema}, edges.Of(fn))
	assert.Equal(t, []int{schema}, edges.Of(table))
	assert.Equal(t, []int{}, edges[pub])
	assert.Equal(t, []int{schema, fn, table, pub}, edges.Of(trigger))
}

func TestResolve_UnresolvedIsFatal(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	mustAdd(t, inv, ir.ObjectRecord{
		Kind: ir.KindView, Schema: "public", Name: "v",
		Dependencies: []ir.Dependency{{Kind: ir.KindTable, Name: "other.missing"}},
	})
	_, err := graph.Resolve(inv, "postgres")
	var dre *graph.DependencyResolutionError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, ir.Triple{Kind: ir.KindView, Schema: "public", Name: "v"}, dre.Dependent)
	assert.Equal(t, ir.Triple{Kind: ir.KindTable, Schema: "other", Name: "missing"}, dre.Target)
	assert.Contains(t, err.Error(), "VIEW public.v")
	assert.Contains(t, err.Error(), "TABLE other.missing")
}

func TestResolve_MissingSchemaIsFatal(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "nope", Name: "t"})
	_, err := graph.Resolve(inv, "postgres")
	var dre *graph.DependencyResolutionError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, ir.KindSchema, dre.Target.Kind)
}

func TestResolve_RolesShareKeySpace(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	group := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindGroup, Name: "admins", Attributes: &ir.Role{}})
	user := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindUser, Name: "alice", Attributes: &ir.Role{
		Grants: &ir.Grants{Roles: []string{"admins"}, Groups: []string{"postgres"}},
	}})
	table := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Name: "t", Owner: "alice"})
	acl := mustAdd(t, inv, ir.ObjectRecord{
		Kind: ir.KindACL, Schema: "public", Name: "TABLE t",
		Attributes: &ir.ACLSet{
			Target: ir.Triple{Kind: ir.KindTable, Schema: "public", Name: "t"},
			Entries: []*ir.ACL{
				{Privileges: []string{"SELECT"}, Direction: ir.ACLGrant, Grantees: []string{"admins", "PUBLIC"}},
			},
		},
	})

	edges, err := graph.Resolve(inv, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []int{group}, edges.Of(user))
	assert.Equal(t, []int{user}, edges.Of(table))
	assert.Equal(t, []int{group, table}, edges.Of(acl))
}

func TestResolve_UnknownRoleIsFatal(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindRole, Name: "app", Attributes: &ir.Role{
		Grants: &ir.Grants{Groups: []string{"ghost"}},
	}})
	_, err := graph.Resolve(inv, "postgres")
	var dre *graph.DependencyResolutionError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, "ghost", dre.Target.Name)
}

func TestSequence_Deterministic(t *testing.T) {
	edges := graph.Edges{
		1: {},
		2: {7, 3},
		3: {},
		4: {2, 6},
		5: {6},
		6: {7},
		7: {},
	}
	inv := inventory.New(inventory.NewIDAllocator(1))
	first, err := graph.Sequence(edges, inv)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 7, 2, 6, 4, 5}, first)

	for i := 0; i < 10; i++ {
		again, err := graph.Sequence(edges, inv)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSequence_DependencyOnlyNodes(t *testing.T) {
	order, err := graph.Sequence(graph.Edges{5: {9}}, inventory.New(inventory.NewIDAllocator(1)))
	require.NoError(t, err)
	assert.Equal(t, []int{9, 5}, order)
}

func TestSequence_Cycle(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	a := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindView, Name: "a"})
	b := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindView, Name: "b"})
	c := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Name: "c"})
	edges := graph.Edges{a: {b, c}, b: {a}, c: {}}

	_, err := graph.Sequence(edges, inv)
	var cyc *graph.CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []int{a, b}, cyc.IDs)
	assert.Equal(t, []ir.Triple{
		{Kind: ir.KindView, Schema: "public", Name: "a"},
		{Kind: ir.KindView, Schema: "public", Name: "b"},
	}, cyc.Members)
}

func TestEdges_NoSelfOrDuplicate(t *testing.T) {
	e := graph.Edges{}
	e.Add(1, 1)
	e.Add(1, 2)
	e.Add(1, 2)
	assert.Equal(t, []int{2}, e[1])
}

func TestResolve_TypeReferences(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	schema := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindSchema, Name: "app"})
	table := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "t", Attributes: &ir.Table{
		Columns: []*ir.Column{
			{Name: "id", DataType: "integer"},
			{Name: "mood", DataType: "app.mood"},
			{Name: "moods", DataType: "app.mood[]"},
			{Name: "email", DataType: "email"},
		},
	}})
	mood := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindType, Schema: "app", Name: "mood", Attributes: &ir.Type{Type: ir.TypeEnum}})
	email := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindDomain, Schema: "public", Name: "email", Attributes: &ir.Domain{DataType: "text"}})
	fn := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindFunction, Schema: "app", Name: "cheer(public.t)", Attributes: &ir.Function{
		Parameters: []*ir.Parameter{{Name: "row", DataType: "public.t"}},
		Returns:    "SETOF mood",
	}})

	edges, err := graph.Resolve(inv, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []int{mood, email}, edges.Of(table))
	assert.Equal(t, []int{}, edges.Of(email))
	assert.Equal(t, []int{schema, table, mood}, edges.Of(fn))

	order, err := graph.Sequence(edges, inv)
	require.NoError(t, err)
	assert.Equal(t, []int{schema, mood, email, table, fn}, order)
}

func TestResolve_QueryReferences(t *testing.T) {
	inv := inventory.New(inventory.NewIDAllocator(1))
	schema := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindSchema, Name: "app"})
	view := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindView, Schema: "public", Name: "v", Attributes: &ir.View{
		Query: "SELECT u.id FROM app.users u JOIN audit a ON a.id = u.id",
	}})
	raw := mustAdd(t, inv, ir.ObjectRecord{
		Kind: ir.KindView, Schema: "app", Name: "w",
		RawSQL:     "CREATE VIEW app.w AS SELECT id FROM users;",
		Attributes: &ir.View{},
	})
	users := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "app", Name: "users", Attributes: &ir.Table{}})
	audit := mustAdd(t, inv, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "audit", Attributes: &ir.Table{}})

	edges, err := graph.Resolve(inv, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []int{users, audit}, edges.Of(view))
	assert.Equal(t, []int{schema, users}, edges.Of(raw))

	order, err := graph.Sequence(edges, inv)
	require.NoError(t, err)
	assert.Less(t, indexOf(order, users), indexOf(order, view))
	assert.Less(t, indexOf(order, audit), indexOf(order, view))
	assert.Less(t, indexOf(order, users), indexOf(order, raw))
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
