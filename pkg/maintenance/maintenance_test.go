package maintenance

import (
	"PicUtils/config"
	"PicUtils/pkg/hasher"
	"PicUtils/pkg/scanner"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestMaintenance(t *testing.T) Maintenance {
	t.Helper()
	m, err := NewMaintenance(t.TempDir(), 2, scanner.NewParser(config.DefaultExtensions))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Close)
	return m
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGenerateNumberManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "trip_0010.jpg", "trip_0002.jpg", "trip_0002.NEF", "cover.jpg", "x_0005.txt")
	out := filepath.Join(t.TempDir(), "Good Ones.txt")

	n, err := newTestMaintenance(t).GenerateNumberManifest(dir, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "2\n10\n" {
		t.Errorf("manifest = %q", b)
	}
}

func TestGenerateChecksumManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.jpg", "a.NEF", "skip.txt")
	out := filepath.Join(t.TempDir(), "sums.txt")

	if err := newTestMaintenance(t).GenerateChecksumManifest(context.Background(), dir, out); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	want, _ := hasher.CalculateSHA256(filepath.Join(dir, "a.NEF"))
	if lines[0] != want+" *a.NEF" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], " *b.jpg") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestGenerateChecksumManifest_Cancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestMaintenance(t).GenerateChecksumManifest(ctx, dir, filepath.Join(t.TempDir(), "sums.txt"))
	if err == nil {
		t.Error("expected context error")
	}
}
