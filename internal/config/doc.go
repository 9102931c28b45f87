// Package config holds the immutable values ptunnel is configured with: the
// list of tunnels, the optional upstream proxy, and the optional proxy user,
// together with the parsers that build them from command-line arguments and
// the environment.
//
// All values are small and passed by value; nothing here is mutated after
// parsing, so they are shared freely between goroutines.
package config
