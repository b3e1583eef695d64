// Package hdfs provides an HDFS-backed implementation of the core.FS
// interface using the colinmarc/hdfs native protocol client.
//
// The client holds a stateful namenode connection that does not survive
// process duplication; construct the filesystem through the lazy wrapper
// when the process may fork.
package hdfs

import (
	"fmt"
	"os/user"

	gohdfs "github.com/colinmarc/hdfs/v2"
)

// Config holds HDFS filesystem configuration.
type Config struct {
	// Addresses lists namenode addresses (e.g., "namenode:8020").
	// At least one is required unless Client is provided.
	Addresses []string

	// User is the HDFS user to act as. Defaults to the current OS user.
	User string

	// Root is an optional absolute path all operations are rooted under
	// (for namespacing), e.g. "/user/alice/datasets".
	Root string

	// Client is an optional pre-configured HDFS client.
	// If provided, Addresses and User are ignored.
	Client *gohdfs.Client

	// DialAttempts bounds the exponential-backoff retry of the initial
	// namenode connection. Default: 3. Set to 1 to dial exactly once.
	// Retrying here is a backend choice; nothing in the shared contract
	// retries on its own.
	DialAttempts int
}

// validate checks if the configuration is valid.
// Either Client OR at least one namenode address must be provided.
func (c *Config) validate() error {
	if c.Client != nil {
		return nil
	}
	if len(c.Addresses) == 0 {
		return fmt.Errorf("at least one namenode address is required when client is not provided")
	}
	return nil
}

// username resolves the HDFS user: the configured one, or the current OS
// user.
func (c *Config) username() (string, error) {
	if c.User != "" {
		return c.User, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolving current user: %w", err)
	}
	return u.Username, nil
}
