package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindConfig(nested)
	if err != nil || !ok {
		t.Fatalf("FindConfig: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	dir, ok, err := FindProjectRoot(nested)
	if err != nil || !ok || dir != root {
		t.Fatalf("FindProjectRoot = %q, %v, %v", dir, ok, err)
	}
}

func TestLoadManifestDefaultsWithoutFile(t *testing.T) {
	m, err := LoadManifest(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Path != "" {
		t.Fatalf("unexpected manifest path %q", m.Path)
	}
	if m.Config != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", m.Config)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[check]
max_instantiation_depth = 8
max_stack_mb = 64

[trace]
level = "detail"
output = "trace.ndjson"

[pipeline]
jobs = 3
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Check.MaxInstantiationDepth != 8 || cfg.Check.MaxSimplifySteps != def.Check.MaxSimplifySteps {
		t.Fatalf("check section = %+v", cfg.Check)
	}
	if cfg.Limits().MaxInstantiationDepth != 8 {
		t.Fatalf("Limits not derived from [check]")
	}
	if cfg.MaxStackBytes() != 64<<20 {
		t.Fatalf("MaxStackBytes = %d", cfg.MaxStackBytes())
	}
	if cfg.Trace.Level != "detail" || cfg.Trace.Output != "trace.ndjson" {
		t.Fatalf("trace section = %+v", cfg.Trace)
	}
	if cfg.Jobs() != 3 {
		t.Fatalf("Jobs = %d", cfg.Jobs())
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown key", body: "[check]\nmax_depth = 3\n", want: "unknown keys: check.max_depth"},
		{name: "unknown section", body: "[backend]\nfoo = 1\n", want: "unknown keys"},
		{name: "non-positive limit", body: "[check]\nmax_type_depth = 0\n", want: "check.max_type_depth"},
		{name: "negative jobs", body: "[pipeline]\njobs = -1\n", want: "pipeline.jobs"},
		{name: "bad trace level", body: "[trace]\nlevel = \"loud\"\n", want: "trace.level"},
		{name: "syntax", body: "[check\n", want: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestDigest(t *testing.T) {
	a := DigestOf([]byte("bundle"))
	if a != DigestOf([]byte("bundle")) {
		t.Fatalf("digest not deterministic")
	}
	if len(a.Short()) != 12 || !strings.HasPrefix(a.String(), a.Short()) {
		t.Fatalf("Short = %q", a.Short())
	}
	b := DigestOf([]byte("other"))
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine must depend on order")
	}
}
