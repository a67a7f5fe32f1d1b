package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dbsteward/pglifecycle/lib/validation"
)

func decode(t *testing.T, text string) interface{} {
	var doc interface{}
	require.NoError(t, yaml.Unmarshal([]byte(text), &doc))
	return doc
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "table", validation.SchemaName("TABLE"))
	assert.Equal(t, "text_search", validation.SchemaName("TEXT SEARCH"))
	assert.Equal(t, "user_mapping", validation.SchemaName("USER MAPPING"))
	assert.Equal(t, "object", validation.SchemaName("AGGREGATE"))
}

func TestValidate_Table(t *testing.T) {
	v := validation.New()
	doc := decode(t, `
name: users
schema: public
columns:
  - name: id
    data_type: integer
    nullable: false
primary_key:
  columns: [id]
dependencies:
  - TYPE: public.status
`)
	assert.NoError(t, v.Validate("TABLE", "tables/public/users.yaml", doc))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	v := validation.New()
	doc := decode(t, `
schema: public
columns:
  - name: id
colour: blue
`)
	err := v.Validate("TABLE", "tables/public/users.yaml", doc)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tables/public/users.yaml", verr.Path)
	assert.GreaterOrEqual(t, len(verr.Problems), 3)
	assert.Contains(t, err.Error(), "tables/public/users.yaml failed validation")
}

func TestValidate_Dependencies(t *testing.T) {
	v := validation.New()
	doc := decode(t, `
name: touch
sql: CREATE FUNCTION touch() RETURNS trigger AS $$ BEGIN RETURN NEW; END $$ LANGUAGE plpgsql
dependencies:
  - TABLE: public.a
    VIEW: public.b
`)
	err := v.Validate("FUNCTION", "functions/public/touch-0.yaml", doc)
	assert.Error(t, err)
}

func TestValidate_Function(t *testing.T) {
	v := validation.New()
	ok := decode(t, `
name: add
parameters:
  - data_type: integer
  - data_type: integer
returns: integer
language: sql
definition: SELECT $1 + $2
`)
	assert.NoError(t, v.Validate("FUNCTION", "functions/public/add-2.yaml", ok))

	missingBody := decode(t, `
name: add
returns: integer
`)
	assert.Error(t, v.Validate("FUNCTION", "functions/public/add-0.yaml", missingBody))
}

func TestValidate_Project(t *testing.T) {
	v := validation.New()
	doc := decode(t, `
name: app
encoding: UTF8
stdstrings: true
superuser: postgres
extensions:
  - name: pgcrypto
    schema: public
languages:
  - name: plpgsql
`)
	assert.NoError(t, v.Validate("PROJECT", "project.yaml", doc))
	assert.Error(t, v.Validate("PROJECT", "project.yaml", decode(t, "encoding: UTF8\n")))
}

func TestValidate_FallsBackToGenericSchema(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate("AGGREGATE", "aggregates/public/total.yaml", decode(t, "name: total\nsql: CREATE AGGREGATE total (integer) (SFUNC = int4pl, STYPE = integer)\n")))
	assert.Error(t, v.Validate("AGGREGATE", "aggregates/public/total.yaml", decode(t, "sql: x\n")))
}

func TestValidate_Role(t *testing.T) {
	v := validation.New()
	doc := decode(t, `
name: reader
options: [LOGIN]
grants:
  tables:
    public.users: [SELECT]
  roles: [staff]
`)
	assert.NoError(t, v.Validate("ROLE", "roles/reader.yaml", doc))

	bad := decode(t, `
name: reader
grants:
  widgets:
    public.users: [SELECT]
`)
	assert.Error(t, v.Validate("ROLE", "roles/reader.yaml", bad))
}
