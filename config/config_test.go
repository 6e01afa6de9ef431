package config

import (
	"os"
	"testing"
)

func TestLoadRequiresEcsCluster(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Fatal("expected error when ECSS_ECS_CLUSTER is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("ECSS_ECS_CLUSTER", "my-cluster")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("want default log level INFO, got %s", cfg.LogLevel)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("want default addr :8080, got %s", cfg.Addr)
	}
}

func TestLoadExpandsPlaceholders(t *testing.T) {
	os.Clearenv()
	os.Setenv("CLUSTER_NAME", "prod-cluster")
	os.Setenv("ECSS_ECS_CLUSTER", "{CLUSTER_NAME}")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EcsCluster != "prod-cluster" {
		t.Errorf("want expanded prod-cluster, got %s", cfg.EcsCluster)
	}
}

func TestLoadOverlayYAMLWinsOverEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("ECSS_ECS_CLUSTER", "my-cluster")
	os.Setenv("ECSS_SQLITE_FILE", "/env/path.db")

	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := f.WriteString("sqlite:\n  file: /yaml/path.db\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	os.Setenv("ECSS_CONFIG_FILE", f.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SqliteFile != "/yaml/path.db" {
		t.Errorf("want yaml override /yaml/path.db, got %s", cfg.SqliteFile)
	}
}
