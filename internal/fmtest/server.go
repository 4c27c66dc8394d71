// Package fmtest provides an in-memory FileMaker Data API server for tests.
package fmtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/fmdata/pkg/fmdata"
)

// Default credentials accepted by a new Server.
const (
	Username = "admin"
	Password = "secret"
)

// RecordedRequest is a request seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Body          string
	Authorization string
}

type failure struct {
	method   string
	contains string
	status   int
	code     string
	message  string
}

type layoutStore struct {
	records map[int]fmdata.FieldData
	nextID  int
}

// Server is a fake Data API. Databases and layouts are created on demand
// by AddRecord or AddLayout.
type Server struct {
	*httptest.Server

	// CreateReply, when set, replaces the response object of record
	// creation replies. The record is still stored.
	CreateReply interface{}

	mu        sync.Mutex
	databases map[string]map[string]*layoutStore
	tokens    map[string]string // token -> database
	closed    []string
	requests  []RecordedRequest
	failures  []failure
	sessionNo int
}

// NewServer starts a server closed by t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	return newServer(t, httptest.NewServer)
}

// NewTLSServer is NewServer over HTTPS with a self-signed certificate.
func NewTLSServer(t testing.TB) *Server {
	t.Helper()

	return newServer(t, httptest.NewTLSServer)
}

func newServer(t testing.TB, start func(http.Handler) *httptest.Server) *Server {
	t.Helper()

	server := &Server{
		databases: map[string]map[string]*layoutStore{},
		tokens:    map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases", server.handleDatabases)
	mux.HandleFunc("DELETE /databases/{db}", server.authenticated(server.handleDeleteDatabase))
	mux.HandleFunc("POST /databases/{db}/sessions", server.handleLogin)
	mux.HandleFunc("DELETE /databases/{db}/sessions/{token}", server.handleLogout)
	mux.HandleFunc("GET /databases/{db}/layouts", server.authenticated(server.handleLayouts))
	mux.HandleFunc("GET /databases/{db}/layouts/{layout}/records", server.authenticated(server.handleGetRecords))
	mux.HandleFunc("POST /databases/{db}/layouts/{layout}/records", server.authenticated(server.handleCreate))
	mux.HandleFunc("GET /databases/{db}/layouts/{layout}/records/{id}", server.authenticated(server.handleGetRecord))
	mux.HandleFunc("PATCH /databases/{db}/layouts/{layout}/records/{id}", server.authenticated(server.handleUpdate))
	mux.HandleFunc("DELETE /databases/{db}/layouts/{layout}/records/{id}", server.authenticated(server.handleDelete))
	mux.HandleFunc("POST /databases/{db}/layouts/{layout}/_find", server.authenticated(server.handleFind))

	server.Server = start(server.record(mux))
	t.Cleanup(server.Close)

	return server
}

// AddLayout creates an empty layout.
func (s *Server) AddLayout(database, layout string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layout(database, layout)
}

// AddRecord stores a record and returns its id.
func (s *Server) AddRecord(database, layout string, fields fmdata.FieldData) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.layout(database, layout).add(fields)
}

// Record returns the stored fields of a record.
func (s *Server) Record(database, layout string, recordID int) (fmdata.FieldData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.layout(database, layout).records[recordID]

	return fields, ok
}

// RecordCount returns the number of records in a layout.
func (s *Server) RecordCount(database, layout string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.layout(database, layout).records)
}

// FailNext makes the next request whose method matches and whose path
// contains the given text fail with a FileMaker error.
func (s *Server) FailNext(method, pathContains string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, failure{
		method:   method,
		contains: pathContains,
		status:   status,
		code:     code,
		message:  message,
	})
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return RecordedRequest{}
	}

	return s.requests[len(s.requests)-1]
}

// ClosedSessions returns the tokens deleted through the sessions endpoint.
func (s *Server) ClosedSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.closed...)
}

// SessionCount returns how many sessions were opened.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionNo
}

func (s *Server) layout(database, layout string) *layoutStore {
	layouts, ok := s.databases[database]
	if !ok {
		layouts = map[string]*layoutStore{}
		s.databases[database] = layouts
	}

	store, ok := layouts[layout]
	if !ok {
		store = &layoutStore{records: map[int]fmdata.FieldData{}, nextID: 1}
		layouts[layout] = store
	}

	return store
}

func (l *layoutStore) add(fields fmdata.FieldData) int {
	id := l.nextID
	l.nextID++

	copied := make(fmdata.FieldData, len(fields))
	for key, value := range fields {
		copied[key] = value
	}

	l.records[id] = copied

	return id
}

func (l *layoutStore) sortedIDs() []int {
	ids := make([]int, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		_ = request.Body.Close()
		request.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        request.Method,
			Path:          request.URL.EscapedPath(),
			RawQuery:      request.URL.RawQuery,
			Body:          string(body),
			Authorization: request.Header.Get("Authorization"),
		})

		for i, f := range s.failures {
			if f.method == request.Method && strings.Contains(request.URL.Path, f.contains) {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				s.mu.Unlock()
				writeError(writer, f.status, f.code, f.message)

				return
			}
		}
		s.mu.Unlock()

		next.ServeHTTP(writer, request)
	})
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		token := strings.TrimPrefix(request.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		database, ok := s.tokens[token]
		s.mu.Unlock()

		if !ok || database != request.PathValue("db") {
			writeError(writer, http.StatusUnauthorized, "952", "Invalid FileMaker Data API token (*)")

			return
		}

		next(writer, request)
	}
}

func validBasicAuth(request *http.Request) bool {
	username, password, ok := request.BasicAuth()

	return ok && username == Username && password == Password
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	if !validBasicAuth(request) {
		writeError(writer, http.StatusUnauthorized, "212", "Invalid user account and/or password; please try again")

		return
	}

	s.mu.Lock()
	s.sessionNo++
	token := "token-" + strconv.Itoa(s.sessionNo)
	s.tokens[token] = request.PathValue("db")
	s.mu.Unlock()

	writeOK(writer, map[string]interface{}{"token": token})
}

func (s *Server) handleLogout(writer http.ResponseWriter, request *http.Request) {
	token := request.PathValue("token")

	s.mu.Lock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)

	if ok {
		s.closed = append(s.closed, token)
	}
	s.mu.Unlock()

	if !ok {
		writeError(writer, http.StatusUnauthorized, "952", "Invalid FileMaker Data API token (*)")

		return
	}

	writeOK(writer, map[string]interface{}{})
}

func (s *Server) handleDatabases(writer http.ResponseWriter, request *http.Request) {
	if !validBasicAuth(request) {
		writeError(writer, http.StatusUnauthorized, "212", "Invalid user account and/or password; please try again")

		return
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)

	databases := make([]map[string]string, 0, len(names))
	for _, name := range names {
		databases = append(databases, map[string]string{"name": name})
	}

	writeOK(writer, map[string]interface{}{"databases": databases})
}

func (s *Server) handleDeleteDatabase(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	delete(s.databases, request.PathValue("db"))
	s.mu.Unlock()

	writeOK(writer, map[string]interface{}{})
}

func (s *Server) handleLayouts(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	names := make([]string, 0)
	for name := range s.databases[request.PathValue("db")] {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)

	layouts := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		layouts = append(layouts, map[string]interface{}{"name": name})
	}

	writeOK(writer, map[string]interface{}{"layouts": layouts})
}

func toRecord(id int, fields fmdata.FieldData) fmdata.Record {
	return fmdata.Record{
		RecordID:   strconv.Itoa(id),
		ModID:      "0",
		FieldData:  fields,
		PortalData: map[string]interface{}{},
	}
}

func writeRecords(writer http.ResponseWriter, request *http.Request, total int, records []fmdata.Record) {
	writeOK(writer, map[string]interface{}{
		"dataInfo": fmdata.DataInfo{
			Database:         request.PathValue("db"),
			Layout:           request.PathValue("layout"),
			Table:            request.PathValue("layout"),
			TotalRecordCount: total,
			FoundCount:       len(records),
			ReturnedCount:    len(records),
		},
		"data": records,
	})
}

func queryInt(request *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(request.URL.Query().Get(key))
	if err != nil {
		return fallback
	}

	return value
}

func (s *Server) handleGetRecords(writer http.ResponseWriter, request *http.Request) {
	offset := queryInt(request, "_offset", 1)
	limit := queryInt(request, "_limit", 100)

	s.mu.Lock()
	store := s.layout(request.PathValue("db"), request.PathValue("layout"))
	ids := store.sortedIDs()

	records := make([]fmdata.Record, 0)
	for i := offset - 1; i >= 0 && i < len(ids) && len(records) < limit; i++ {
		records = append(records, toRecord(ids[i], store.records[ids[i]]))
	}
	s.mu.Unlock()

	writeRecords(writer, request, len(ids), records)
}

func (s *Server) handleGetRecord(writer http.ResponseWriter, request *http.Request) {
	id, _ := strconv.Atoi(request.PathValue("id"))

	s.mu.Lock()
	store := s.layout(request.PathValue("db"), request.PathValue("layout"))
	fields, ok := store.records[id]
	total := len(store.records)
	s.mu.Unlock()

	if !ok {
		writeError(writer, http.StatusInternalServerError, "101", "Record is missing")

		return
	}

	writeRecords(writer, request, total, []fmdata.Record{toRecord(id, fields)})
}

type fieldDataBody struct {
	FieldData fmdata.FieldData `json:"fieldData"`
}

func (s *Server) handleCreate(writer http.ResponseWriter, request *http.Request) {
	var body fieldDataBody

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil || body.FieldData == nil {
		writeError(writer, http.StatusBadRequest, "10", "Requested data is missing")

		return
	}

	s.mu.Lock()
	id := s.layout(request.PathValue("db"), request.PathValue("layout")).add(body.FieldData)
	reply := s.CreateReply
	s.mu.Unlock()

	if reply != nil {
		writeOK(writer, reply)

		return
	}

	writeOK(writer, map[string]interface{}{"recordId": strconv.Itoa(id), "modId": "0"})
}

func (s *Server) handleUpdate(writer http.ResponseWriter, request *http.Request) {
	id, _ := strconv.Atoi(request.PathValue("id"))

	var body fieldDataBody

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "10", "Requested data is missing")

		return
	}

	s.mu.Lock()
	store := s.layout(request.PathValue("db"), request.PathValue("layout"))
	fields, ok := store.records[id]

	if ok {
		for key, value := range body.FieldData {
			fields[key] = value
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(writer, http.StatusInternalServerError, "101", "Record is missing")

		return
	}

	writeOK(writer, map[string]interface{}{"modId": "1"})
}

func (s *Server) handleDelete(writer http.ResponseWriter, request *http.Request) {
	id, _ := strconv.Atoi(request.PathValue("id"))

	s.mu.Lock()
	store := s.layout(request.PathValue("db"), request.PathValue("layout"))
	_, ok := store.records[id]
	delete(store.records, id)
	s.mu.Unlock()

	if !ok {
		writeError(writer, http.StatusInternalServerError, "101", "Record is missing")

		return
	}

	writeOK(writer, map[string]interface{}{})
}

// handleFind matches a record when all criteria of any request object
// match. A value ending in "*" is a prefix match; "==" forces exact match.
func (s *Server) handleFind(writer http.ResponseWriter, request *http.Request) {
	var body fmdata.FindRequest

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil || len(body.Query) == 0 {
		writeError(writer, http.StatusBadRequest, "10", "Requested data is missing")

		return
	}

	s.mu.Lock()
	store := s.layout(request.PathValue("db"), request.PathValue("layout"))
	total := len(store.records)

	records := make([]fmdata.Record, 0)
	for _, id := range store.sortedIDs() {
		if matchesAny(store.records[id], body.Query) {
			records = append(records, toRecord(id, store.records[id]))
		}
	}
	s.mu.Unlock()

	if len(records) == 0 {
		writeError(writer, http.StatusInternalServerError, "401", "No records match the request")

		return
	}

	sortRecords(records, body.Sort)
	writeRecords(writer, request, total, records)
}

func matchesAny(fields fmdata.FieldData, query []map[string]interface{}) bool {
	for _, criteria := range query {
		if matchesAll(fields, criteria) {
			return true
		}
	}

	return false
}

func matchesAll(fields fmdata.FieldData, criteria map[string]interface{}) bool {
	for name, want := range criteria {
		have, ok := fields[name]
		if !ok {
			return false
		}

		if !matchValue(fmt.Sprint(have), fmt.Sprint(want)) {
			return false
		}
	}

	return true
}

func matchValue(have, want string) bool {
	switch {
	case strings.HasPrefix(want, "=="):
		return have == strings.TrimPrefix(want, "==")
	case strings.HasSuffix(want, "*"):
		return strings.HasPrefix(strings.ToLower(have), strings.ToLower(strings.TrimSuffix(want, "*")))
	default:
		return strings.EqualFold(have, want)
	}
}

func sortRecords(records []fmdata.Record, rules []fmdata.SortRule) {
	if len(rules) == 0 {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		for _, rule := range rules {
			left := fmt.Sprint(records[i].FieldData[rule.FieldName])
			right := fmt.Sprint(records[j].FieldData[rule.FieldName])

			if left == right {
				continue
			}

			if rule.SortOrder == "descend" {
				return left > right
			}

			return left < right
		}

		return false
	})
}

func writeOK(writer http.ResponseWriter, response interface{}) {
	writeJSON(writer, http.StatusOK, response, "0", "OK")
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writeJSON(writer, status, map[string]interface{}{}, code, message)
}

func writeJSON(writer http.ResponseWriter, status int, response interface{}, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	_ = json.NewEncoder(writer).Encode(map[string]interface{}{
		"response": response,
		"messages": []fmdata.Message{{Code: code, Message: message}},
	})
}

// BasicAuth returns the Authorization header the server accepts.
func BasicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(Username+":"+Password))
}
