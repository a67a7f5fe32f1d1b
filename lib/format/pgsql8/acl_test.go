package pgsql8_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8"
	"github.com/dbsteward/pglifecycle/lib/graph"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func role(kind ir.Kind, name string, grants, revocations *ir.Grants) ir.ObjectRecord {
	return ir.ObjectRecord{
		Kind: kind,
		Name: name,
		Attributes: &ir.Role{
			Meta:        ir.Meta{Name: name},
			Grants:      grants,
			Revocations: revocations,
		},
	}
}

func TestACLBuilder(t *testing.T) {
	f := newFixture()
	f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})
	f.add(t, ir.ObjectRecord{Kind: ir.KindSchema, Name: "app"})
	f.add(t, role(ir.KindRole, "reader", &ir.Grants{
		Tables:   map[string][]string{"public.users": {"select"}},
		Schemata: map[string][]string{"app": {"usage"}},
	}, nil))
	f.add(t, role(ir.KindUser, "writer",
		&ir.Grants{
			Tables: map[string][]string{"public.users": {"insert", "select"}, "public.nope": {"select"}},
			Roles:  []string{"reader"},
		},
		&ir.Grants{Tables: map[string][]string{"public.users": {"delete"}}},
	))
	f.add(t, role(ir.KindUser, "auditor", &ir.Grants{
		Tables:  map[string][]string{"public.users": {"SELECT"}},
		Columns: map[string][]string{"public.users.email": {"update"}},
	}, nil))

	count, err := pgsql8.NewACLBuilder(discardLogger(), f.inv, "postgres").Build()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	table, err := f.inv.Lookup(ir.KindACL, "public", "TABLE users")
	require.NoError(t, err)
	assert.Equal(t,
		"REVOKE ALL ON public.users FROM PUBLIC;\n"+
			"REVOKE DELETE ON public.users FROM writer;\n"+
			"GRANT SELECT ON public.users TO reader, auditor;\n"+
			"GRANT SELECT, INSERT ON public.users TO writer;\n"+
			"GRANT UPDATE (email) ON public.users TO auditor;\n",
		f.create(t, table))

	schema, err := f.inv.Lookup(ir.KindACL, "public", "SCHEMA app")
	require.NoError(t, err)
	assert.Equal(t,
		"REVOKE ALL ON SCHEMA app FROM PUBLIC;\nGRANT USAGE ON SCHEMA app TO reader;\n",
		f.create(t, schema))

	membership, err := f.inv.Lookup(ir.KindACL, "public", "ROLE reader")
	require.NoError(t, err)
	assert.Equal(t, "GRANT reader TO writer;\n", f.create(t, membership))

	r, err := f.synth.Render(membership)
	require.NoError(t, err)
	assert.Empty(t, r.Drop)
}

func TestACLPrivilegeOrder(t *testing.T) {
	f := newFixture()
	f.add(t, ir.ObjectRecord{Kind: ir.KindTable, Schema: "public", Name: "users", Attributes: usersTable()})
	f.add(t, role(ir.KindRole, "ops", &ir.Grants{
		Tables: map[string][]string{"public.users": {"trigger", "delete", "select", "Select", "truncate"}},
	}, nil))
	f.add(t, role(ir.KindRole, "admin", &ir.Grants{
		Tables: map[string][]string{"public.users": {"select", "all privileges"}},
	}, nil))

	_, err := pgsql8.NewACLBuilder(discardLogger(), f.inv, "postgres").Build()
	require.NoError(t, err)
	acl, err := f.inv.Lookup(ir.KindACL, "public", "TABLE users")
	require.NoError(t, err)
	assert.Equal(t,
		"REVOKE ALL ON public.users FROM PUBLIC;\n"+
			"GRANT SELECT, DELETE, TRUNCATE, TRIGGER ON public.users TO ops;\n"+
			"GRANT ALL ON public.users TO admin;\n",
		f.create(t, acl))
}

func TestACLBuilder_MembershipInMissingRole(t *testing.T) {
	f := newFixture()
	f.add(t, role(ir.KindUser, "alice", &ir.Grants{Roles: []string{"ghosts"}}, nil))

	_, err := pgsql8.NewACLBuilder(discardLogger(), f.inv, "postgres").Build()
	var dre *graph.DependencyResolutionError
	require.ErrorAs(t, err, &dre)
	assert.Equal(t, ir.KindUser, dre.Dependent.Kind)
	assert.Equal(t, "alice", dre.Dependent.Name)
	assert.Equal(t, ir.Triple{Kind: ir.KindRole, Schema: string(ir.KindRole), Name: "ghosts"}, dre.Target)
	assert.Contains(t, err.Error(), "ROLE ghosts")
}

func TestACLBuilder_MembershipInBuiltInRole(t *testing.T) {
	f := newFixture()
	f.add(t, role(ir.KindUser, "alice", &ir.Grants{Roles: []string{"postgres"}}, nil))

	count, err := pgsql8.NewACLBuilder(discardLogger(), f.inv, "postgres").Build()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
