// Package live reads catalog data straight from a running server
package live

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

// ConnectOptions locate the server to read from
type ConnectOptions struct {
	Host     string
	Port     uint
	DBName   string
	User     string
	Password string
}

func (self ConnectOptions) dsn() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s", self.Host, self.Port, self.User, self.DBName)
	if self.Password != "" {
		dsn += " password=" + self.Password
	}
	return dsn
}

type Connection struct {
	conn *pgx.Conn
}

func Connect(ctx context.Context, opts ConnectOptions) (*Connection, error) {
	conn, err := pgx.Connect(ctx, opts.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to postgres database")
	}
	return &Connection{conn}, nil
}

func (self *Connection) Version(ctx context.Context) (VersionNum, error) {
	var v string // server_version_num is reported as text
	if err := self.conn.QueryRow(ctx, "SHOW server_version_num;").Scan(&v); err != nil {
		return 0, errors.Wrap(err, "while reading server version")
	}
	i, err := strconv.Atoi(v)
	return VersionNum(i), err
}

func (self *Connection) Close(ctx context.Context) error {
	return self.conn.Close(ctx)
}

func (self *Connection) Query(ctx context.Context, query string, params ...interface{}) (pgx.Rows, error) {
	return self.conn.Query(ctx, query, params...)
}
