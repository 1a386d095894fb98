package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
connections:
  - name: prod
    kind: postgres
    host: db.example.com
    port: 5432
    user: app
    database: appdb
  - kind: sqlite
    path: /var/data/app.db
    read_only: true
keys:
  quit: ["x"]
row_count: "off"
ssh:
  enabled: true
  listen: ":2345"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Connections) != 2 {
		t.Fatalf("connections = %d, want 2", len(cfg.Connections))
	}
	if cfg.Connections[0].Host != "db.example.com" || cfg.Connections[0].Port != 5432 {
		t.Errorf("first connection = %+v", cfg.Connections[0])
	}
	if !cfg.Connections[1].ReadOnly {
		t.Error("read_only not parsed")
	}
	if cfg.RowCount != RowCountOff {
		t.Errorf("row_count = %q", cfg.RowCount)
	}
	if got := cfg.Keys["quit"]; len(got) != 1 || got[0] != "x" {
		t.Errorf("keys = %v", cfg.Keys)
	}
	if !cfg.SSH.Enabled || cfg.SSH.Listen != ":2345" {
		t.Errorf("ssh = %+v", cfg.SSH)
	}
	// Defaults fill what the file omits.
	if cfg.SSH.HostKeyPath == "" {
		t.Error("host key path default missing")
	}
	if cfg.Path() == "" {
		t.Error("path not recorded")
	}
}

func TestLoadDefaultsRowCount(t *testing.T) {
	path := writeConfig(t, `
connections:
  - kind: sqlite
    path: a.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RowCount != RowCountExact {
		t.Errorf("row_count default = %q, want exact", cfg.RowCount)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"missing kind",
			"connections:\n  - name: x\n",
			"kind is required",
		},
		{
			"unknown kind",
			"connections:\n  - kind: oracle\n    name: x\n",
			"unknown kind",
		},
		{
			"mysql without host",
			"connections:\n  - kind: mysql\n    name: x\n",
			"host is required",
		},
		{
			"postgres without host",
			"connections:\n  - kind: postgres\n    name: x\n",
			"host is required",
		},
		{
			"sqlite without path",
			"connections:\n  - kind: sqlite\n    name: x\n",
			"path is required",
		},
		{
			"bad row_count",
			"row_count: approximate\n",
			"invalid row_count",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestReloadKeepsCurrentOnFailure(t *testing.T) {
	path := writeConfig(t, `
connections:
  - name: good
    kind: sqlite
    path: a.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("connections:\n  - kind: oracle\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := cfg.Reload(); err == nil {
		t.Fatal("invalid file should fail reload")
	}
	if len(cfg.Connections) != 1 || cfg.Connections[0].Name != "good" {
		t.Errorf("config mutated by rejected reload: %+v", cfg.Connections)
	}
}

func TestReloadAppliesChanges(t *testing.T) {
	path := writeConfig(t, `
connections:
  - name: one
    kind: sqlite
    path: a.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	next := `
connections:
  - name: one
    kind: sqlite
    path: a.db
  - name: two
    kind: sqlite
    path: b.db
row_count: "off"
`
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := cfg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(cfg.Connections) != 2 {
		t.Errorf("connections = %d, want 2", len(cfg.Connections))
	}
	if cfg.RowCount != RowCountOff {
		t.Errorf("row_count = %q, want off", cfg.RowCount)
	}
}

// Reload runs on the watcher goroutine while the TUI reads settings, so
// every read goes through a locked accessor. Run under the race
// detector to verify.
func TestConcurrentReloadAndReads(t *testing.T) {
	path := writeConfig(t, `
connections:
  - name: one
    kind: sqlite
    path: a.db
keys:
  quit: ["x"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := cfg.Reload(); err != nil {
				t.Errorf("Reload: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if got := cfg.RowCountPolicy(); got != RowCountExact {
			t.Fatalf("row count policy = %q", got)
		}
		if got := cfg.KeyOverrides()["quit"]; len(got) != 1 || got[0] != "x" {
			t.Fatalf("key overrides = %v", got)
		}
		if conns := cfg.ConnectionList(); len(conns) != 1 {
			t.Fatalf("connections = %d", len(conns))
		}
		if cfg.SSHSettings().Listen == "" {
			t.Fatal("ssh listen empty")
		}
	}
	<-done
}

func TestExpandConnectionsGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"beta.db", "alpha.db"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	conns := ExpandConnections([]Connection{
		{Kind: "sqlite", Path: filepath.Join(dir, "*.db"), ReadOnly: true},
		{Name: "direct", Kind: "sqlite", Path: "/data/fixed.db"},
		{Name: "net", Kind: "mysql", Host: "db", Database: "app"},
	})

	if len(conns) != 4 {
		t.Fatalf("expanded = %d entries, want 4: %+v", len(conns), conns)
	}
	// Glob matches come first, sorted by path.
	if filepath.Base(conns[0].Path) != "alpha.db" || filepath.Base(conns[1].Path) != "beta.db" {
		t.Errorf("glob order: %q, %q", conns[0].Path, conns[1].Path)
	}
	if conns[0].Name != "alpha" || conns[1].Name != "beta" {
		t.Errorf("glob labels: %q, %q", conns[0].Name, conns[1].Name)
	}
	if !conns[0].ReadOnly {
		t.Error("glob expansion dropped read_only")
	}
	// Non-glob entries pass through untouched.
	if conns[2].Name != "direct" || conns[3].Name != "net" {
		t.Errorf("passthrough order: %+v", conns[2:])
	}
}

func TestExpandConnectionsGlobNamed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.db"), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	conns := ExpandConnections([]Connection{
		{Name: "local", Kind: "sqlite", Path: filepath.Join(dir, "*.db")},
	})
	if len(conns) != 1 || conns[0].Name != "local:app" {
		t.Errorf("named glob = %+v, want label local:app", conns)
	}
}

func TestExpandConnectionsGlobNoMatch(t *testing.T) {
	conns := ExpandConnections([]Connection{
		{Name: "empty", Kind: "sqlite", Path: filepath.Join(t.TempDir(), "*.db")},
	})
	// The entry stays visible so the operator sees it exists.
	if len(conns) != 1 || conns[0].Name != "empty" {
		t.Errorf("no-match glob = %+v, want the original entry", conns)
	}
}

func TestConnectionLabel(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want string
	}{
		{"explicit name", Connection{Name: "prod", Kind: "mysql", Host: "db"}, "prod"},
		{"sqlite path", Connection{Kind: "sqlite", Path: "/var/data/app.db"}, "app.db"},
		{"host and database", Connection{Kind: "postgres", Host: "db.internal", Database: "app"}, "db.internal/app"},
		{"host only", Connection{Kind: "mysql", Host: "db.internal"}, "db.internal"},
		{"no host", Connection{Kind: "postgres", Database: "app"}, "localhost/app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conn.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}
