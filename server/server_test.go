package server

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/tabula/catalog"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

var usersSeed = []string{
	"CREATE TABLE users (id INT, name TEXT) 'Users';",
	"INSERT INTO users VALUES (1, 'Ann'); INSERT INTO users VALUES (2, 'Bob');",
}

func newTestServer(t *testing.T, configure func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.Logging.Quiet = true
	cfg.Seed = usersSeed
	if configure != nil {
		configure(cfg)
	}
	s, err := New(cfg, "", nil, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "GET", "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["tables"] != float64(1) {
		t.Errorf("wrong health body: %v", body)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response has no request ID")
	}
}

func TestQueryRows(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "POST", "/query", "application/json", `{"query": "SELECT name FROM users WHERE id = 2;"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["kind"] != "rows" {
		t.Errorf("wrong kind: %v", body["kind"])
	}
	rows, _ := body["rows"].([]any)
	if len(rows) != 1 || rows[0].([]any)[0] != "Bob" {
		t.Errorf("wrong rows: %v", body["rows"])
	}
}

func TestQueryEmptyRowSetKeepsRows(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "POST", "/query", "text/plain", "SELECT * FROM users WHERE id = 99;")
	if !strings.Contains(rec.Body.String(), `"rows":[]`) {
		t.Errorf("empty row set lost: %s", rec.Body.String())
	}
}

func TestQueryAck(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "POST", "/query", "text/plain", "DELETE FROM users WHERE id = 1;")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["kind"] != "ack" || body["rows_affected"] != float64(1) {
		t.Errorf("wrong ack: %v", body)
	}
	if _, ok := body["rows"]; ok {
		t.Error("ack carries rows")
	}
}

func TestQueryFailure(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "POST", "/query", "text/plain", "SELECT * FROM usres;")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	errBody, _ := body["error"].(map[string]any)
	if body["kind"] != "failure" || errBody["kind"] != "UnknownTable" || errBody["code"] != "SEM-0001" {
		t.Errorf("wrong failure: %v", body)
	}
}

func TestQueryScript(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, "POST", "/query?script=true", "text/plain",
		"INSERT INTO users VALUES (3, 'Cy'); SELECT * FROM users;")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	results, _ := decode(t, rec)["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", results)
	}
	if results[0].(map[string]any)["kind"] != "ack" || results[1].(map[string]any)["kind"] != "rows" {
		t.Errorf("wrong result kinds: %v", results)
	}

	rec = do(t, s, "POST", "/query", "application/json",
		`{"query": "DELETE FROM users; SELECT * FROM nowhere; SELECT 1;", "script": true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a failing script, got %d", rec.Code)
	}
	if results, _ := decode(t, rec)["results"].([]any); len(results) != 2 {
		t.Errorf("script did not stop at the failure: %v", results)
	}
}

func TestQueryOverflowFails(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, "POST", "/query", "text/plain", "CREATE TABLE f (x FLOAT);")

	tiny := "0." + strings.Repeat("0", 309) + "1"
	rec := do(t, s, "POST", "/query", "text/plain", "INSERT INTO f VALUES (1.0 / "+tiny+");")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if errObj, _ := body["error"].(map[string]any); errObj["code"] != "SEM-0018" {
		t.Errorf("wrong error: %v", body["error"])
	}
}

func TestUnencodableResultIsServerError(t *testing.T) {
	s := newTestServer(t, nil)
	var logs strings.Builder
	s.stderr = &logs

	do(t, s, "POST", "/query", "text/plain", "CREATE TABLE f (x FLOAT);")
	s.Engine().View(func(cat *tabula.Catalog) error {
		table, _ := cat.GetTable("f")
		table.Rows = append(table.Rows, catalog.Row{math.Inf(1)})
		return nil
	})

	rec := do(t, s, "POST", "/query", "text/plain", "SELECT x FROM f;")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %q", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["error"] != "failed to encode response" {
		t.Errorf("wrong body: %v", body)
	}
	if !strings.Contains(logs.String(), "[ERROR] encoding response:") {
		t.Errorf("encoding failure not logged: %q", logs.String())
	}
}

func TestQueryBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		contains    string
	}{
		{"empty", "text/plain", "   ", "empty query"},
		{"empty json", "application/json", `{"query": ""}`, "empty query"},
		{"invalid json", "application/json", `{"query":`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/query", tt.contentType, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, tt.contains) {
				t.Errorf("error %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestQueryTooLarge(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxQuerySize = "16B"
	})
	rec := do(t, s, "POST", "/query", "text/plain", "SELECT * FROM users WHERE id = 1;")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSchemaEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "GET", "/schema", "", "")
	users, _ := decode(t, rec)["Users"].([]any)
	if len(users) != 2 || users[1].(map[string]any)["type"] != "TEXT" {
		t.Errorf("wrong JSON schema: %s", rec.Body.String())
	}

	rec = do(t, s, "GET", "/schema.txt", "", "")
	if !strings.HasPrefix(rec.Body.String(), "Database Schema:") || !strings.Contains(rec.Body.String(), "Total rows: 2") {
		t.Errorf("wrong text schema: %s", rec.Body.String())
	}

	rec = do(t, s, "GET", "/schema.html", "", "")
	html := rec.Body.String()
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("wrong content type: %s", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{"<h1>Database Schema</h1>", "<table>", "<td>name</td>", "<code>users</code>"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML schema should contain %q:\n%s", want, html)
		}
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "GET", "/export.csv?table=users", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	expected := `"id","name"` + "\n" + `"1","Ann"` + "\n" + `"2","Bob"` + "\n"
	if rec.Body.String() != expected {
		t.Errorf("wrong CSV:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "users.csv") {
		t.Errorf("wrong disposition: %s", rec.Header().Get("Content-Disposition"))
	}

	rec = do(t, s, "GET", "/export.csv?table=usres", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	errBody, _ := decode(t, rec)["error"].(map[string]any)
	if errBody["kind"] != "UnknownTable" {
		t.Errorf("wrong error: %v", errBody)
	}

	if rec = do(t, s, "GET", "/export.csv", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without table, got %d", rec.Code)
	}
}

func TestLint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/lint", "text/plain", "SELECT * FROM usres;")
	issues, _ := decode(t, rec)["issues"].([]any)
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	issue := issues[0].(map[string]any)
	if issue["code"] != "LINT-0004" || issue["hint"] != "Did you mean `users`?" {
		t.Errorf("wrong issue: %v", issue)
	}

	rec = do(t, s, "POST", "/lint", "text/plain", "SELECT * FROM users;")
	if !strings.Contains(rec.Body.String(), `"issues":[]`) {
		t.Errorf("expected an empty issue list: %s", rec.Body.String())
	}
}

func TestFormat(t *testing.T) {
	s := newTestServer(t, nil)
	query := "select id,name from users where id=1"

	tests := []struct {
		mode     string
		status   int
		expected string
	}{
		{"", http.StatusOK, "SELECT id, name\nFROM users\nWHERE id = 1\n"},
		{"pretty", http.StatusOK, "SELECT id, name\nFROM users\nWHERE id = 1\n"},
		{"compact", http.StatusOK, "SELECT id, name FROM users WHERE id = 1\n"},
		{"sideways", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			rec := do(t, s, "POST", "/format?mode="+tt.mode, "text/plain", query)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.expected != "" && rec.Body.String() != tt.expected {
				t.Errorf("expected:\n%q\ngot:\n%q", tt.expected, rec.Body.String())
			}
		})
	}

	rec := do(t, s, "POST", "/format", "text/plain", "SELECT FROM")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a syntax error, got %d", rec.Code)
	}
	rec = do(t, s, "POST", "/format?mode=text", "text/plain", "select * from")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "SELECT") {
		t.Errorf("text mode should format unparsable input: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []config.SecretString{config.NewSecretString(string(hash))}
	})

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"no key", "", "", http.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer open", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer sesame", http.StatusOK},
		{"api key header", "X-API-Key", "sesame", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/schema", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate")
			}
		})
	}

	if rec := do(t, s, "GET", "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health should be public, got %d", rec.Code)
	}
}

func TestSeedFailure(t *testing.T) {
	cfg := config.Defaults()
	cfg.Seed = []string{"CREATE TABLE a (x INT); INSERT INTO b VALUES (1);"}
	_, err := New(cfg, "", nil, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "statement 2") {
		t.Errorf("expected seed error at statement 2, got %v", err)
	}
}

func TestSeedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.sql")
	os.WriteFile(path, []byte("CREATE TABLE items (sku TEXT);\nINSERT INTO items VALUES ('a-1');\n"), 0644)

	var logs strings.Builder
	cfg := config.Defaults()
	cfg.Seed = usersSeed
	cfg.SeedFiles = []string{path}
	s, err := New(cfg, "", nil, &logs, io.Discard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tables := s.Engine().Tables(); len(tables) != 2 || tables[1] != "items" {
		t.Errorf("wrong tables: %v", tables)
	}
	if !strings.Contains(logs.String(), "seeded 2 table(s), 3 row(s)") {
		t.Errorf("wrong seed log: %s", logs.String())
	}

	cfg.SeedFiles = []string{filepath.Join(dir, "missing.sql")}
	if _, err := New(cfg, "", nil, io.Discard, io.Discard); err == nil {
		t.Error("expected error for a missing seed file")
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabula.yaml")
	write := func(seed string) {
		t.Helper()
		if err := os.WriteFile(path, []byte("seed:\n  - \""+seed+"\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("CREATE TABLE first (a INT);")
	cfg, err := config.Load(path, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Server.Dev = true
	s, err := New(cfg, path, nil, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	write("CREATE TABLE second (b TEXT);")
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if tables := s.Engine().Tables(); len(tables) != 1 || tables[0] != "second" {
		t.Errorf("engine not replaced: %v", tables)
	}
	if !s.Config().Server.Dev {
		t.Error("dev flag lost on reload")
	}

	write("CREATE TABLE broken (;")
	if err := s.Reload(); err == nil {
		t.Error("expected reload error")
	}
	if tables := s.Engine().Tables(); len(tables) != 1 || tables[0] != "second" {
		t.Errorf("failed reload replaced the engine: %v", tables)
	}
}

func TestReloadInterpolatesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabula.yaml")
	yaml := "seed:\n  - \"CREATE TABLE ${TABLE_NAME} (id INT);\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	getenv := func(key string) string {
		if key == "TABLE_NAME" {
			return "users"
		}
		return ""
	}

	cfg, err := config.Load(path, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s, err := New(cfg, path, getenv, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if tables := s.Engine().Tables(); len(tables) != 1 || tables[0] != "users" {
		t.Errorf("wrong tables after reload: %v", tables)
	}
}

func TestReloadWithoutConfigFile(t *testing.T) {
	s := newTestServer(t, nil)
	if err := s.Reload(); err == nil {
		t.Error("expected error reloading without a config file")
	}
}

func TestListenAddr(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.Host = "::1"
		cfg.Server.Port = 9000
	})
	if got := s.listenAddr(); got != "[::1]:9000" {
		t.Errorf("wrong address: %s", got)
	}
}
