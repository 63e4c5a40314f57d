package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/internal/export"
	"github.com/circuitlens/circuitlens/internal/store"
)

const bellSource = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
h q[0];
cx q[0],q[1];
measure q -> c;
`

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func seedHistory(t *testing.T, dir string, n int) string {
	t.Helper()
	dbPath := filepath.Join(dir, "history.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	for i := 0; i < n; i++ {
		report := &engine.Report{
			Language:       "openqasm",
			SourceHash:     "cafef00d",
			Classification: "bell_state",
			Confidence:     0.9,
		}
		if _, err := st.Save(context.Background(), report); err != nil {
			t.Fatalf("save report: %v", err)
		}
	}
	return dbPath
}

func TestAnalyzeCmd_Run(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		language string
		wantErr  bool
	}{
		{
			name:     "explicit language",
			source:   bellSource,
			language: "openqasm",
		},
		{
			name:   "auto-detected language",
			source: bellSource,
		},
		{
			name:     "parse error",
			source:   "OPENQASM 2.0;\nqreg q[;",
			language: "openqasm",
			wantErr:  true,
		},
		{
			name:     "unsupported language",
			source:   bellSource,
			language: "quil",
			wantErr:  true,
		},
		{
			name:    "undetectable source",
			source:  "once upon a time",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTestFile(t, t.TempDir(), "circuit.qasm", tt.source)
			cmd := &AnalyzeCmd{Path: path, Language: tt.language, JSON: true}
			err := cmd.Run()
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeCmd_MissingFile(t *testing.T) {
	cmd := &AnalyzeCmd{Path: filepath.Join(t.TempDir(), "missing.qasm")}
	if err := cmd.Run(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDetectCmd_Run(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "circuit.qasm", bellSource)
	cmd := &DetectCmd{Path: path}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestLanguagesCmd_Run(t *testing.T) {
	cmd := &LanguagesCmd{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestHistoryCmd_Run(t *testing.T) {
	dbPath := seedHistory(t, t.TempDir(), 2)
	cmd := &HistoryCmd{DB: dbPath, Limit: 10}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestExportCmd_Run(t *testing.T) {
	dir := t.TempDir()
	dbPath := seedHistory(t, dir, 3)
	outPath := filepath.Join(dir, "reports.tar.xz")

	cmd := &ExportCmd{DB: dbPath, Out: outPath, Limit: 10}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	bundle, err := export.Read(outPath)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if len(bundle.Records) != 3 {
		t.Errorf("bundle records = %d, want 3", len(bundle.Records))
	}
}

func TestVersionCmd_Run(t *testing.T) {
	cmd := &VersionCmd{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
