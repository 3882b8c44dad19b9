package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sambeau/tabula/config"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/evaluator"
	"github.com/sambeau/tabula/pkg/tabula/export"
	"github.com/sambeau/tabula/pkg/tabula/format"
	"github.com/sambeau/tabula/pkg/tabula/lint"
	"github.com/sambeau/tabula/pkg/tabula/parser"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.limitRequests(h))
	}
	protected("POST /query", s.handleQuery)
	protected("GET /schema", s.handleSchema)
	protected("GET /schema.txt", s.handleSchemaText)
	protected("GET /schema.html", s.handleSchemaHTML)
	protected("GET /export.csv", s.handleExportCSV)
	protected("POST /lint", s.handleLint)
	protected("POST /format", s.handleFormat)

	return mux
}

// queryRequest is the JSON body of POST /query, /lint and /format.
// A text/plain body is taken as the query itself.
type queryRequest struct {
	Query  string `json:"query"`
	Script bool   `json:"script"` // run every statement instead of the first
}

// resultResponse is one statement's outcome.
type resultResponse struct {
	Kind         string               `json:"kind"`
	Columns      []string             `json:"columns,omitempty"`
	Rows         *[][]any             `json:"rows,omitempty"`
	RowsAffected *int                 `json:"rows_affected,omitempty"`
	Error        *terrors.TabulaError `json:"error,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func newResultResponse(r *tabula.Result) resultResponse {
	resp := resultResponse{Kind: r.Kind.String(), Warnings: r.Warnings, Error: r.Error}
	switch r.Kind {
	case evaluator.ResultRows:
		rows := r.Rows
		if rows == nil {
			rows = [][]any{}
		}
		resp.Columns, resp.Rows = r.Columns, &rows
	case evaluator.ResultAck:
		n := r.RowsAffected
		resp.RowsAffected = &n
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": len(s.Engine().Tables()),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	engine := s.Engine()
	if req.Script {
		results := engine.ExecuteScript(req.Query)
		out := make([]resultResponse, len(results))
		status := http.StatusOK
		for i, result := range results {
			out[i] = newResultResponse(result)
			if result.Failed() {
				status = http.StatusBadRequest
			}
		}
		s.respond(w, status, map[string]any{"results": out})
		return
	}

	result := engine.Execute(req.Query)
	status := http.StatusOK
	if result.Failed() {
		status = http.StatusBadRequest
	}
	s.respond(w, status, newResultResponse(result))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Engine().Schema())
}

func (s *Server) handleSchemaText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.Engine().SchemaText())
}

func (s *Server) handleSchemaHTML(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(s.Engine().SchemaMarkdown()), &body); err != nil {
		s.logError("rendering schema: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Database Schema</title>\n%s</head>\n<body>\n%s</body>\n</html>\n",
		schemaPageStyles, body.String())
}

const schemaPageStyles = `<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 2rem; }
  table { border-collapse: collapse; margin-bottom: 1rem; }
  th, td { border: 1px solid #ccc; padding: 0.25rem 0.75rem; text-align: left; }
  code { background: #f4f4f4; padding: 0 0.25rem; }
</style>
`

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("table")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "missing table parameter")
		return
	}

	var buf bytes.Buffer
	err := s.Engine().View(func(cat *tabula.Catalog) error {
		table, ok := cat.GetTable(name)
		if !ok {
			return cat.UnknownTable(name)
		}
		return export.TableCSV(&buf, table)
	})
	if err != nil {
		var terr *terrors.TabulaError
		if errors.As(err, &terr) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": terr})
			return
		}
		s.logError("exporting %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name + ".csv"}))
	w.Write(buf.Bytes())
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	var schema lint.Schema
	s.Engine().View(func(cat *tabula.Catalog) error {
		schema = lint.SchemaFromCatalog(cat)
		return nil
	})

	issues := lint.Check(req.Query, schema)
	if issues == nil {
		issues = []lint.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

// handleFormat pretty-prints the first statement. With ?mode=text the
// query is only re-cased and re-indented, which also works on text that
// does not parse.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	var out string
	switch r.URL.Query().Get("mode") {
	case "text":
		out = format.FormatText(req.Query)
	case "", "pretty", "compact":
		stmt, _, err := parser.ParseFirst(req.Query)
		if err != nil {
			var terr *terrors.TabulaError
			if errors.As(err, &terr) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": terr})
				return
			}
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if r.URL.Query().Get("mode") == "compact" {
			out, err = format.Generate(stmt)
		} else {
			out, err = format.Pretty(stmt)
		}
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, "mode must be pretty, compact or text")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, out+"\n")
}

// readQuery decodes the request body. It writes the error response itself
// and returns false when the body is unusable.
func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest

	limit, _ := config.ParseSize(s.Config().Server.MaxQuerySize)
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("query larger than %d bytes", tooLarge.Limit))
			return req, false
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return req, false
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.Unmarshal(data, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return req, false
		}
	} else {
		req.Query = string(data)
		req.Script = r.URL.Query().Get("script") == "true"
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, http.StatusBadRequest, "empty query")
		return req, false
	}
	return req, true
}

// respond writes v as JSON and logs values that cannot be encoded.
func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.logError("encoding response: %v", err)
	}
}

// writeJSON encodes v before writing anything, so an encoding failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"failed to encode response"}`+"\n")
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
