package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load should fail without credentials")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "tok")
	t.Setenv("DISCORD_CHANNEL_ID", "chan")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TARGET_ITEMS", "7")
	t.Setenv("DEDUP_THRESHOLD", "0.8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.TargetItems != 7 {
		t.Errorf("TargetItems = %d, want 7 from env", cfg.TargetItems)
	}
	if cfg.DedupThreshold != 0.8 {
		t.Errorf("DedupThreshold = %v, want 0.8 from env", cfg.DedupThreshold)
	}
	if cfg.MinItems != 3 {
		t.Errorf("MinItems = %d, want default 3", cfg.MinItems)
	}
	if cfg.BatchLimit != 1900 {
		t.Errorf("BatchLimit = %d, want default 1900", cfg.BatchLimit)
	}
	if cfg.Timezone != "Asia/Taipei" {
		t.Errorf("Timezone = %q, want default Asia/Taipei", cfg.Timezone)
	}
}

func TestValidateMinItemsVsTarget(t *testing.T) {
	cfg := &Config{
		DiscordToken: "tok",
		ChannelID:    "chan",
		GeminiAPIKey: "key",
		TargetItems:  3,
		MinItems:     5,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject MinItems > TargetItems")
	}
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	yaml := `feeds:
  - name: CoinDesk
    url: https://example.com/rss
    language: en
kols:
  - handle: "@Saylor"
    tier: 1
  - handle: wublockchain
    tier: 2
  - handle: lookonchain
    tier: 2
    base_score: 40
nitter_instances:
  - https://nitter.net
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources() returned error: %v", err)
	}
	if len(s.Feeds) != 1 || s.Feeds[0].Name != "CoinDesk" {
		t.Errorf("unexpected feeds: %+v", s.Feeds)
	}

	scores := s.KOLBaseScores()
	if scores["saylor"] != 50 {
		t.Errorf("tier-1 handle = %d, want 50 (and @ plus case stripped)", scores["saylor"])
	}
	if scores["wublockchain"] != 30 {
		t.Errorf("tier-2 handle = %d, want 30", scores["wublockchain"])
	}
	if scores["lookonchain"] != 40 {
		t.Errorf("explicit base_score = %d, want 40", scores["lookonchain"])
	}
}

func TestLoadSourcesRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("feeds: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Error("LoadSources should reject a config with no feeds")
	}
}
