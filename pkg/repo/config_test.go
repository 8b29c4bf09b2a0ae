package repo

import (
	"testing"
)

func TestConfigDefaultsWhenMissing(t *testing.T) {
	r, _ := initTestRepo(t)

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		t.Errorf("defaults missing: %+v", cfg.User)
	}
	if cfg.Merge.ContextLines != defaultMergeContextLines {
		t.Errorf("context lines = %d, want %d", cfg.Merge.ContextLines, defaultMergeContextLines)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	r, _ := initTestRepo(t)

	want := &Config{
		User:  UserConfig{Name: "Grace", Email: "grace@example.com"},
		Merge: MergeConfig{ContextLines: 5},
	}
	if err := r.WriteConfig(want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.User != want.User || got.Merge != want.Merge {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestConfigSanitizesContextLines(t *testing.T) {
	r, _ := initTestRepo(t)

	if err := r.WriteConfig(&Config{
		User:  UserConfig{Name: "x", Email: "x@x"},
		Merge: MergeConfig{ContextLines: -2},
	}); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.Merge.ContextLines != defaultMergeContextLines {
		t.Errorf("context lines = %d, want default", got.Merge.ContextLines)
	}
}
