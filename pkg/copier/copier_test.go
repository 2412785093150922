package copier

import (
	"PicUtils/config"
	"PicUtils/pkg/errs"
	"PicUtils/pkg/logger"
	"PicUtils/pkg/scanner"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"
)

func newTestCopier(opts Options) SelectiveCopier {
	return NewCopier(scanner.NewParser(config.DefaultExtensions), opts, logger.Discard())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func setupTrip(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"trip_0003.jpg", "trip_0005.jpg", "trip_0007.jpg"} {
		writeFile(t, filepath.Join(dir, name), "data "+name)
	}
	return dir
}

func TestCopySelected(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "picks.txt"), "3\n7\n")

	res, err := newTestCopier(Options{}).CopySelected(dir, "picks.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Requested != 2 || res.Copied != 2 {
		t.Errorf("requested/copied = %d/%d, want 2/2", res.Requested, res.Copied)
	}
	if res.DestinationExisted {
		t.Error("destination reported as pre-existing")
	}
	if res.Destination != filepath.Join(dir, "picks") {
		t.Errorf("destination = %s", res.Destination)
	}
	want := []string{"trip_0003.jpg", "trip_0007.jpg"}
	if got := listDir(t, res.Destination); !reflect.DeepEqual(got, want) {
		t.Errorf("copied = %v, want %v", got, want)
	}
	b, err := os.ReadFile(filepath.Join(res.Destination, "trip_0003.jpg"))
	if err != nil || string(b) != "data trip_0003.jpg" {
		t.Errorf("content = %q, %v", b, err)
	}
	// 原文件不变
	if got := listDir(t, dir); len(got) != 5 {
		t.Errorf("source dir = %v", got)
	}
}

func TestCopySelected_DuplicatesCollapse(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "picks.txt"), "3\n3\n 7 \n\n")

	res, err := newTestCopier(Options{}).CopySelected(dir, "picks.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Requested != 2 || res.Copied != 2 {
		t.Errorf("requested/copied = %d/%d, want 2/2", res.Requested, res.Copied)
	}
}

func TestCopySelected_MissingManifest(t *testing.T) {
	dir := setupTrip(t)

	_, err := newTestCopier(Options{}).CopySelected(dir, "Good Ones.txt")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Good Ones")); !os.IsNotExist(err) {
		t.Errorf("destination directory created: %v", err)
	}
}

func TestCopySelected_BadManifestLine(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "picks.txt"), "3\nseven\n")

	_, err := newTestCopier(Options{}).CopySelected(dir, "picks.txt")
	if !errors.Is(err, errs.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestCopySelected_ExistingDestinationReused(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "picks.txt"), "5\n")
	if err := os.Mkdir(filepath.Join(dir, "picks"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := newTestCopier(Options{}).CopySelected(dir, "picks.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !res.DestinationExisted || res.Copied != 1 {
		t.Errorf("res = %+v", res)
	}
}

func TestCopySelected_DestinationIsFile(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "picks"), "5\n")

	_, err := newTestCopier(Options{}).CopySelected(dir, "picks")
	if !errors.Is(err, errs.ErrCollision) {
		t.Errorf("err = %v, want ErrCollision", err)
	}
}

func TestCopySelected_DestinationIsSourceDir(t *testing.T) {
	for _, manifest := range []string{".txt", "..txt"} {
		t.Run(manifest, func(t *testing.T) {
			dir := setupTrip(t)
			writeFile(t, filepath.Join(dir, manifest), "3\n")

			_, err := newTestCopier(Options{}).CopySelected(dir, manifest)
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
			b, err := os.ReadFile(filepath.Join(dir, "trip_0003.jpg"))
			if err != nil || string(b) != "data trip_0003.jpg" {
				t.Errorf("source changed: %q, %v", b, err)
			}
		})
	}
}

func TestCopyFile_SameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, "keep me")
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Skip("symlinks not supported:", err)
	}

	err := copyFile(src, filepath.Join(link, "a.jpg"))
	if !errors.Is(err, errs.ErrCollision) {
		t.Fatalf("err = %v, want ErrCollision", err)
	}
	if b, _ := os.ReadFile(src); string(b) != "keep me" {
		t.Errorf("source = %q", b)
	}
}

func TestCopySelected_UnparsableFilename(t *testing.T) {
	dir := setupTrip(t)
	writeFile(t, filepath.Join(dir, "0009.jpg"), "bare")
	writeFile(t, filepath.Join(dir, "picks.txt"), "3\n9\n")

	// 0009.jpg 排在最前且没有下划线
	_, err := newTestCopier(Options{}).CopySelected(dir, "picks.txt")
	if !errors.Is(err, errs.ErrParse) {
		t.Fatalf("abort mode: err = %v, want ErrParse", err)
	}

	res, err := newTestCopier(Options{SkipUnparsable: true}).CopySelected(dir, "picks.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Copied != 1 || !reflect.DeepEqual(res.Skipped, []string{"0009.jpg"}) {
		t.Errorf("skip mode: res = %+v", res)
	}
}

func TestCopySelected_AbsoluteManifestAndVerify(t *testing.T) {
	dir := setupTrip(t)
	other := t.TempDir()
	manifest := filepath.Join(other, "best.list")
	writeFile(t, manifest, "7")

	res, err := newTestCopier(Options{Verify: true}).CopySelected(dir, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if res.Destination != filepath.Join(other, "best") {
		t.Errorf("destination = %s", res.Destination)
	}
	if got := listDir(t, res.Destination); !reflect.DeepEqual(got, []string{"trip_0007.jpg"}) {
		t.Errorf("copied = %v", got)
	}
}

func TestCopyFile_PreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, "x")
	old := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(src, 0o600); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "b.jpg")
	if err := copyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), old)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestReadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.txt")
	writeFile(t, path, "1\n 2\n\n2\n-4\n0010\n")
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]struct{}{1: {}, 2: {}, -4: {}, 10: {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveManifest(t *testing.T) {
	if got := ResolveManifest(".", "Good Ones.txt"); got != "Good Ones.txt" {
		t.Errorf("got %q", got)
	}
	if got := ResolveManifest(" picks.txt\n", "Good Ones.txt"); got != "picks.txt" {
		t.Errorf("got %q", got)
	}
}

func TestDestinationFor(t *testing.T) {
	tests := map[string]string{
		"Good Ones.txt":             "Good Ones",
		"/a/b/picks.txt":            "/a/b/picks",
		"/photos.2019/picks":        "/photos.2019/picks",
		"/photos.2019/picks.v2.txt": "/photos.2019/picks.v2",
	}
	for in, want := range tests {
		if got := DestinationFor(in); got != filepath.FromSlash(want) {
			t.Errorf("DestinationFor(%q) = %q, want %q", in, got, want)
		}
	}
}
