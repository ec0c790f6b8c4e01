package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/perp-research/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
// Credentials are query-escaped so ':' '@' and '/' survive.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	query := url.Values{"sslmode": {sslMode}}
	return "postgres://" +
		url.QueryEscape(cfg.User) + ":" + url.QueryEscape(cfg.Password) +
		"@" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) +
		"/" + cfg.Name + "?" + query.Encode()
}
