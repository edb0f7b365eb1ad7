package config

import (
	"strings"
	"testing"
)

func TestParseValidConfig(t *testing.T) {
	body := `
# comment
storage_location = /var/lib/kaliko

peer_seed_list = /etc/kaliko/seeds.txt
max_active_peers = 8
`
	cfg, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.StorageLocation != "/var/lib/kaliko" {
		t.Errorf("StorageLocation = %q", cfg.StorageLocation)
	}
	if cfg.PeerSeedList != "/etc/kaliko/seeds.txt" {
		t.Errorf("PeerSeedList = %q", cfg.PeerSeedList)
	}
	if cfg.MaxActivePeers != 8 {
		t.Errorf("MaxActivePeers = %d, want 8", cfg.MaxActivePeers)
	}
	if cfg.MaxCandidatePeers != defaultMaxCandidatePeers {
		t.Errorf("MaxCandidatePeers = %d, want default %d", cfg.MaxCandidatePeers, defaultMaxCandidatePeers)
	}
}

func TestParseOverridesMaxCandidatePeers(t *testing.T) {
	body := "storage_location = /data\npeer_seed_list = /data/seeds\nmax_active_peers = 4\nmax_candidate_peers = 50\n"
	cfg, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MaxCandidatePeers != 50 {
		t.Errorf("MaxCandidatePeers = %d, want 50", cfg.MaxCandidatePeers)
	}
}

func TestParseRejectsMissingRequiredKeys(t *testing.T) {
	cases := []string{
		"peer_seed_list = /data/seeds\nmax_active_peers = 4\n",
		"storage_location = /data\nmax_active_peers = 4\n",
		"storage_location = /data\npeer_seed_list = /data/seeds\n",
	}
	for i, body := range cases {
		if _, err := Parse(strings.NewReader(body)); err == nil {
			t.Errorf("case %d: expected error for missing required key", i)
		}
	}
}

func TestParseRejectsMalformedLine(t *testing.T) {
	body := "storage_location = /data\nthis line has no equals sign\n"
	if _, err := Parse(strings.NewReader(body)); err == nil {
		t.Fatal("expected error for a line without key = value")
	}
}

func TestParseRejectsNonPositiveMaxActivePeers(t *testing.T) {
	body := "storage_location = /data\npeer_seed_list = /data/seeds\nmax_active_peers = 0\n"
	if _, err := Parse(strings.NewReader(body)); err == nil {
		t.Fatal("expected error for max_active_peers = 0")
	}
}
