// Package config reads the node's plain-text configuration file and its
// companion peer seed list.
//
// The format is deliberately minimal — a flat key = value table — so this
// stays a small hand-rolled bufio.Scanner parser rather than pulling in a
// TOML/YAML library: there are exactly four keys, all flat scalars, no
// nesting and no arrays-of-tables, which is exactly the case where a
// general-purpose config library earns its weight in neither clarity nor
// correctness.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config is the parsed contents of the node's configuration file.
type Config struct {
	// StorageLocation is the directory the header log and its side index
	// are kept in.
	StorageLocation string
	// PeerSeedList is the path to the newline-delimited seed address file.
	PeerSeedList string
	// MaxActivePeers bounds concurrently connected sessions.
	MaxActivePeers int
	// MaxCandidatePeers bounds the manager's dial-candidate queue. Not
	// named in the plain three-key table but operationally required by
	// the peer manager's candidate queue; defaulted when absent.
	MaxCandidatePeers int
}

const defaultMaxCandidatePeers = 256

// Load parses the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a configuration file body from r.
func Parse(r io.Reader) (Config, error) {
	raw := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("config: line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return Config{}, fmt.Errorf("config: line %d: empty key", lineNo)
		}
		raw[key] = value
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: scan: %w", err)
	}

	cfg := Config{MaxCandidatePeers: defaultMaxCandidatePeers}

	cfg.StorageLocation = raw["storage_location"]
	if cfg.StorageLocation == "" {
		return Config{}, fmt.Errorf("config: storage_location is required")
	}

	cfg.PeerSeedList = raw["peer_seed_list"]
	if cfg.PeerSeedList == "" {
		return Config{}, fmt.Errorf("config: peer_seed_list is required")
	}

	maxActiveRaw, ok := raw["max_active_peers"]
	if !ok {
		return Config{}, fmt.Errorf("config: max_active_peers is required")
	}
	maxActive, err := strconv.Atoi(maxActiveRaw)
	if err != nil || maxActive <= 0 {
		return Config{}, fmt.Errorf("config: max_active_peers must be a positive integer")
	}
	cfg.MaxActivePeers = maxActive

	if raw, ok := raw["max_candidate_peers"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: max_candidate_peers must be a positive integer")
		}
		cfg.MaxCandidatePeers = n
	}

	return cfg, nil
}
