package couchdb

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeCouch is an in-memory stand-in for the subset of the CouchDB HTTP API
// the store uses.
type fakeCouch struct {
	mu   sync.Mutex
	dbs  map[string]map[string]map[string]any
	revs int
	user string
}

func newFakeCouch(t *testing.T) (*fakeCouch, *httptest.Server) {
	t.Helper()
	f := &fakeCouch{dbs: make(map[string]map[string]map[string]any)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, e, reason string) {
	writeJSON(w, status, map[string]string{"error": e, "reason": reason})
}

func (f *fakeCouch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, _, ok := r.BasicAuth(); ok {
		f.user = u
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	switch {
	case parts[0] == "":
		writeJSON(w, http.StatusOK, map[string]string{"couchdb": "Welcome"})
	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := f.dbs[parts[0]]; ok {
			writeErr(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
			return
		}
		f.dbs[parts[0]] = make(map[string]map[string]any)
		writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	default:
		db, ok := f.dbs[parts[0]]
		if !ok || len(parts) < 2 {
			writeErr(w, http.StatusNotFound, "not_found", "Database does not exist.")
			return
		}
		f.serveDB(w, r, db, parts[1])
	}
}

func (f *fakeCouch) nextRev() string {
	f.revs++
	return strconv.Itoa(f.revs) + "-fake"
}

func (f *fakeCouch) serveDB(w http.ResponseWriter, r *http.Request, db map[string]map[string]any, id string) {
	switch {
	case id == "_find" && r.Method == http.MethodPost:
		f.find(w, r, db)
	case id == "_bulk_docs" && r.Method == http.MethodPost:
		f.bulk(w, r, db)
	case r.Method == http.MethodGet:
		doc, ok := db[id]
		if !ok {
			writeErr(w, http.StatusNotFound, "not_found", "missing")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case r.Method == http.MethodPut:
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		current, exists := db[id]
		rev, _ := doc["_rev"].(string)
		if (exists && current["_rev"] != rev) || (!exists && rev != "") {
			writeErr(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		doc["_id"] = id
		doc["_rev"] = f.nextRev()
		db[id] = doc
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": id, "rev": doc["_rev"]})
	case r.Method == http.MethodDelete:
		current, exists := db[id]
		if !exists {
			writeErr(w, http.StatusNotFound, "not_found", "missing")
			return
		}
		if current["_rev"] != r.URL.Query().Get("rev") {
			writeErr(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		delete(db, id)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	}
}

func matches(doc, selector map[string]any) bool {
	for k, want := range selector {
		got, present := doc[k]
		if op, ok := want.(map[string]any); ok {
			if exists, ok := op["$exists"].(bool); ok && exists != (present && got != nil) {
				return false
			}
			continue
		}
		if !present || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func (f *fakeCouch) find(w http.ResponseWriter, r *http.Request, db map[string]map[string]any) {
	var req struct {
		Selector map[string]any `json:"selector"`
		Limit    int            `json:"limit"`
		Bookmark string         `json:"bookmark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = 25
	}
	offset, _ := strconv.Atoi(req.Bookmark)

	var docs []map[string]any
	for _, id := range slices.Sorted(maps.Keys(db)) {
		if matches(db[id], req.Selector) {
			docs = append(docs, db[id])
		}
	}
	end := min(offset+req.Limit, len(docs))
	if offset > end {
		offset = end
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"docs":     docs[offset:end],
		"bookmark": fmt.Sprint(end),
	})
}

func (f *fakeCouch) bulk(w http.ResponseWriter, r *http.Request, db map[string]map[string]any) {
	var req struct {
		Docs []bulkDoc `json:"docs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	results := make([]map[string]any, 0, len(req.Docs))
	for _, d := range req.Docs {
		current, ok := db[d.ID]
		if !ok || current["_rev"] != d.Rev || !d.Deleted {
			results = append(results, map[string]any{"id": d.ID, "error": "conflict"})
			continue
		}
		delete(db, d.ID)
		results = append(results, map[string]any{"id": d.ID, "ok": true})
	}
	writeJSON(w, http.StatusCreated, results)
}

func (f *fakeCouch) docs(db string) map[string]map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.dbs[db])
}

func (f *fakeCouch) lastUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}
