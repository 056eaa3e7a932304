package mongoutil

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"DMChat/tools/errs"
)

const (
	defaultMaxPoolSize    = 100
	defaultMaxRetry       = 3
	defaultConnectTimeout = 10 * time.Second
)

// ValidateAndSetDefaults checks the required fields, fills defaults and
// derives Uri from Address when no Uri is given.
func (c *Config) ValidateAndSetDefaults() error {
	if c.Uri == "" && len(c.Address) == 0 {
		return errs.ErrArgs.WrapMsg("mongo: either uri or address must be provided")
	}
	if c.Database == "" {
		return errs.ErrArgs.WrapMsg("mongo: database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.Uri == "" {
		c.Uri = c.buildURI()
	}
	return nil
}

// authSource defaults to the database itself.
func (c *Config) authSource() string {
	if c.AuthSource != "" {
		return c.AuthSource
	}
	return c.Database
}

// buildURI renders mongodb://user:pass@h1,h2/db?authSource=..&maxPoolSize=..
// with credentials escaped.
func (c *Config) buildURI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   strings.Join(c.Address, ","),
		Path:   "/" + c.Database,
	}
	if c.Username != "" && c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	q.Set("authSource", c.authSource())
	q.Set("maxPoolSize", strconv.Itoa(c.MaxPoolSize))
	u.RawQuery = q.Encode()
	return u.String()
}
