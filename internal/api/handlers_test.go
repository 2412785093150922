package api

import (
	"PicUtils/config"
	"PicUtils/internal/models"
	"PicUtils/internal/task"
	"PicUtils/pkg/database/memory"
	"PicUtils/pkg/errs"
	"PicUtils/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testServer struct {
	srv       *httptest.Server
	store     *memory.Store
	configDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config.Set(config.Default())
	t.Cleanup(func() { config.Set(nil) })

	store := memory.NewStore()
	tm := task.NewManager(config.Get(), store, logger.Discard())
	configDir := t.TempDir()
	srv := httptest.NewServer(RegisterRoutes(tm, store, configDir))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store, configDir: configDir}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) waitTask(t *testing.T, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		code, body := s.do(t, http.MethodGet, "/api/v1/tasks/"+id, "")
		if code != http.StatusOK {
			t.Fatalf("status %d: %v", code, body)
		}
		if st := body["status"]; st == string(task.StatusCompleted) || st == string(task.StatusFailed) {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", id)
	return nil
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRenameTask(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	touch(t, dir, "b.jpg", "a.jpg")

	code, body := s.do(t, http.MethodPost, "/api/v1/tasks/rename",
		fmt.Sprintf(`{"dir":%q,"prefix":"trip","startIndex":5}`, dir))
	if code != http.StatusAccepted {
		t.Fatalf("status %d: %v", code, body)
	}
	done := s.waitTask(t, body["taskId"].(string))
	if done["status"] != string(task.StatusCompleted) {
		t.Fatalf("task = %v", done)
	}
	for _, name := range []string{"trip_0005.jpg", "trip_0006.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}

	code, body = s.do(t, http.MethodGet, "/api/v1/operations", "")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	ops := body["data"].([]interface{})
	if len(ops) != 1 || ops[0].(map[string]interface{})["kind"] != string(models.KindRename) {
		t.Errorf("operations = %v", ops)
	}
}

func TestRenameTask_BadRequests(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	tests := map[string]string{
		"bad json":       `{`,
		"missing index":  fmt.Sprintf(`{"dir":%q,"prefix":"x"}`, dir),
		"negative index": fmt.Sprintf(`{"dir":%q,"prefix":"x","startIndex":-1}`, dir),
		"slash prefix":   fmt.Sprintf(`{"dir":%q,"prefix":"a/b","startIndex":1}`, dir),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			code, resp := s.do(t, http.MethodPost, "/api/v1/tasks/rename", body)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d (%v), want 400", code, resp)
			}
		})
	}
}

func TestCopyTask_DefaultManifest(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	touch(t, dir, "trip_0003.jpg", "trip_0004.jpg")
	if err := os.WriteFile(filepath.Join(dir, "Good Ones.txt"), []byte("3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, body := s.do(t, http.MethodPost, "/api/v1/tasks/copy", fmt.Sprintf(`{"dir":%q,"manifest":"."}`, dir))
	if code != http.StatusAccepted {
		t.Fatalf("status %d: %v", code, body)
	}
	done := s.waitTask(t, body["taskId"].(string))
	result, _ := done["result"].(map[string]interface{})
	if done["status"] != string(task.StatusCompleted) || result["copied"] != float64(1) {
		t.Fatalf("task = %v", done)
	}
	if _, err := os.Stat(filepath.Join(dir, "Good Ones", "trip_0003.jpg")); err != nil {
		t.Error(err)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/api/v1/tasks/unknown", "")
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestListPhotos(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	touch(t, dir, "trip_0001.NEF", "notes.txt")

	code, body := s.do(t, http.MethodGet, "/api/v1/photos?images=false&dir="+dir, "")
	if code != http.StatusOK {
		t.Fatalf("status %d: %v", code, body)
	}
	data := body["data"].([]interface{})
	if len(data) != 1 || data[0].(map[string]interface{})["number"] != float64(1) {
		t.Errorf("data = %v", data)
	}

	code, _ = s.do(t, http.MethodGet, "/api/v1/photos?dir="+filepath.Join(dir, "missing"), "")
	if code != http.StatusNotFound {
		t.Errorf("missing dir status = %d, want 404", code)
	}
}

func TestGetOperation(t *testing.T) {
	s := newTestServer(t)
	op := &models.Operation{Kind: models.KindCopy, Dir: "/x"}
	if err := s.store.Operations().Create(context.Background(), op); err != nil {
		t.Fatal(err)
	}

	code, body := s.do(t, http.MethodGet, "/api/v1/operations/"+op.ID.Hex(), "")
	if code != http.StatusOK || body["dir"] != "/x" {
		t.Errorf("status %d: %v", code, body)
	}
	code, _ = s.do(t, http.MethodGet, "/api/v1/operations/zzz", "")
	if code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", code)
	}
}

func TestUpdateConfig(t *testing.T) {
	s := newTestServer(t)
	cfg := config.Default()
	cfg.Copy.DefaultManifest = "Keepers.txt"
	payload, _ := json.Marshal(cfg)

	code, body := s.do(t, http.MethodPut, "/api/v1/config", string(payload))
	if code != http.StatusOK {
		t.Fatalf("status %d: %v", code, body)
	}
	if config.Get().Copy.DefaultManifest != "Keepers.txt" {
		t.Errorf("current config not updated")
	}
	if err := config.LoadConfig(s.configDir); err != nil {
		t.Fatal(err)
	}
	if config.Get().Copy.DefaultManifest != "Keepers.txt" {
		t.Errorf("config.yaml not written: %+v", config.Get().Copy)
	}

	cfg.Media.Extensions = nil
	payload, _ = json.Marshal(cfg)
	if code, _ := s.do(t, http.MethodPut, "/api/v1/config", string(payload)); code != http.StatusBadRequest {
		t.Errorf("invalid config status = %d, want 400", code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", errs.ErrParse), http.StatusBadRequest},
		{fmt.Errorf("x: %w", errs.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("x: %w", errs.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", errs.ErrCollision), http.StatusConflict},
		{fmt.Errorf("x: %w", task.ErrBusy), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
