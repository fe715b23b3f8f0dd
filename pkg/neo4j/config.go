package neo4j

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds Neo4j configuration.
type ClientConfig struct {
	URI          string
	User         string
	Password     string
	Database     string
	DialTimeout  time.Duration
	QueryTimeout time.Duration
	MaxPoolSize  int
}

// WithURI sets the bolt URI.
func WithURI(uri string) ClientOption {
	return func(c *ClientConfig) {
		c.URI = uri
	}
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithDatabase sets the database name (empty selects the server default).
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		c.Database = database
	}
}

// WithDialTimeout sets connectivity verification timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.DialTimeout = d
		}
	}
}

// WithQueryTimeout sets the uniform per-query timeout. It applies to every
// query, primary detection and enrichment lookups alike.
func WithQueryTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.QueryTimeout = d
		}
	}
}

// WithMaxPoolSize sets the driver connection pool size.
func WithMaxPoolSize(n int) ClientOption {
	return func(c *ClientConfig) {
		if n > 0 {
			c.MaxPoolSize = n
		}
	}
}
