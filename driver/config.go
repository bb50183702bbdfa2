// Package driver is the thin external surface named by §6: it turns the
// VKA_DATABASE connection string into per-database *sql.DB handles and
// composes package bootstrap, streamfp and aggregator into the four
// operations a caller (cmd/pgfingerprint, or another Go program) needs.
package driver

import (
	"database/sql"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// Config holds the base connection string every per-database DSN is built
// from, matching the original implementation's conn_for: one VKA_DATABASE
// URL names the server, and each operation names which database on that
// server to connect to.
type Config struct {
	base *url.URL
}

// ErrMissingDatabase is returned by NewConfig when the given connection
// string is empty, mirroring conn_for's "VKA_DATABASE is not set".
var ErrMissingDatabase = errors.New("driver: connection string is empty")

// ErrUnsupportedScheme is returned when the connection string's scheme is
// neither postgres nor postgresql.
var ErrUnsupportedScheme = errors.New("driver: connection string must use the postgres:// or postgresql:// scheme")

// NewConfig parses raw (typically os.Getenv("VKA_DATABASE")) into a Config.
// Per §7's fatal-at-startup boundary behavior, a missing or malformed
// connection string, or a non-postgres scheme, is an error the caller
// should treat as fatal before doing any other work.
func NewConfig(raw string) (Config, error) {
	if strings.TrimSpace(raw) == "" {
		return Config{}, ErrMissingDatabase
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "driver: parse connection string")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Config{}, errors.Wrapf(ErrUnsupportedScheme, "got %q", u.Scheme)
	}
	return Config{base: u}, nil
}

// dsnFor rewrites the configured base URL's path to /dbname, keeping its
// host, credentials and query parameters, the same substitution conn_for
// performs with urllib.parse.urlunparse.
func (c Config) dsnFor(dbname string) string {
	u := *c.base
	u.Path = "/" + dbname
	return u.String()
}

// Open connects to dbname on the configured server.
func (c Config) Open(dbname string) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.dsnFor(dbname))
	if err != nil {
		return nil, errors.Wrapf(err, "driver: open %q", dbname)
	}
	return db, nil
}
