package live_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgtype"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsteward/pglifecycle/lib/format/pgsql8/live"
	"github.com/dbsteward/pglifecycle/lib/ir"
)

func textArray(t *testing.T, items ...string) pgtype.TextArray {
	arr := pgtype.TextArray{}
	require.NoError(t, arr.Set(items))
	return arr
}

func TestExtractRoles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	intro := live.NewMockRoleIntrospector(ctrl)

	intro.EXPECT().GetRoles(gomock.Any()).Return([]live.RoleEntry{
		{
			Name:      "staff",
			Inherit:   true,
			ConnLimit: -1,
			Comment:   pgtype.Text{String: "everyone", Status: pgtype.Present},
		},
		{
			Name:       "app",
			Inherit:    true,
			CanLogin:   true,
			ConnLimit:  5,
			ValidUntil: pgtype.Timestamptz{Time: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), Status: pgtype.Present},
			Config:     textArray(t, "work_mem=64", "search_path=app, public"),
		},
	}, nil)
	intro.EXPECT().GetMemberships(gomock.Any()).Return([]live.MembershipEntry{
		{Role: "staff", Member: "app"},
		{Role: "pg_read_all_data", Member: "someone_filtered"},
	}, nil)

	roles, err := live.ExtractRoles(context.Background(), intro)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	staff := roles[0]
	assert.Equal(t, ir.KindRole, staff.Kind)
	assert.Equal(t, []string{
		"NOSUPERUSER", "INHERIT", "NOCREATEROLE", "NOCREATEDB", "NOLOGIN", "NOREPLICATION", "NOBYPASSRLS",
	}, staff.Role.Options)
	assert.Equal(t, "everyone", staff.Role.Comment)
	assert.Nil(t, staff.Role.Grants)

	app := roles[1]
	assert.Equal(t, ir.KindUser, app.Kind)
	assert.Contains(t, app.Role.Options, "LOGIN")
	assert.Contains(t, app.Role.Options, "CONNECTION LIMIT 5")
	assert.Equal(t, "2030-01-02 03:04:05Z", app.Role.ValidUntil)
	assert.Equal(t, []*ir.Setting{
		{Name: "search_path", Value: []interface{}{"app", "public"}},
		{Name: "work_mem", Value: 64},
	}, app.Role.Settings)
	require.NotNil(t, app.Role.Grants)
	assert.Equal(t, []string{"staff"}, app.Role.Grants.Roles)
}

func TestExtractRoles_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	intro := live.NewMockRoleIntrospector(ctrl)
	intro.EXPECT().GetRoles(gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := live.ExtractRoles(context.Background(), intro)
	assert.EqualError(t, err, "connection reset")
}

func TestVersionNum(t *testing.T) {
	assert.Equal(t, live.VersionNum(90605), live.NewVersionNum(9, 6, 5))
	assert.Equal(t, live.VersionNum(120005), live.NewVersionNum(12, 5))
	assert.Equal(t, "9.6.5", live.NewVersionNum(9, 6, 5).String())
	assert.Equal(t, "12.5", live.NewVersionNum(12, 5).String())
	assert.True(t, live.FEAT_ROLE_BYPASSRLS(live.NewVersionNum(9, 5)))
	assert.False(t, live.FEAT_ROLE_BYPASSRLS(live.NewVersionNum(9, 4, 20)))
}
