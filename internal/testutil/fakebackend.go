// Package testutil provides an in-memory fruit log backend for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"fruity/internal/types"

	"github.com/gorilla/mux"
)

// Fault overrides the normal response for one request. A zero Fault means
// "behave normally".
type Fault struct {
	Status int           // non-zero: reply with this status and an {"error"} body
	Delay  time.Duration // sleep before answering (or until the client gives up)
	Body   string        // non-empty: raw 200 body instead of the collection
}

// FakeBackend implements GET/POST /api/logs and DELETE /api/logs/{id}.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	logs     []types.LogEntry
	nextID   int
	faults   map[string][]Fault // by method, consumed in order
	requests map[string]int
	reqIDs   []string
}

// NewFakeBackend starts a backend seeded with logs. Close it with Close.
func NewFakeBackend(seed ...types.LogEntry) *FakeBackend {
	fb := &FakeBackend{
		nextID:   1,
		faults:   make(map[string][]Fault),
		requests: make(map[string]int),
	}
	for _, l := range seed {
		fb.insert(l)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/logs", fb.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", fb.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/logs/{id}", fb.handleDelete).Methods(http.MethodDelete)
	r.Use(fb.track)
	fb.Server = httptest.NewServer(r)
	return fb
}

// URL is the base URL to hand to a client.
func (fb *FakeBackend) URL() string { return fb.Server.URL }

// Close shuts the server down.
func (fb *FakeBackend) Close() { fb.Server.Close() }

// FailNext queues faults for the next requests with the given method.
func (fb *FakeBackend) FailNext(method string, faults ...Fault) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.faults[method] = append(fb.faults[method], faults...)
}

// Requests returns how many requests with method were received.
func (fb *FakeBackend) Requests(method string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.requests[method]
}

// RequestIDs returns the X-Request-ID headers seen, in order.
func (fb *FakeBackend) RequestIDs() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.reqIDs...)
}

// Logs returns the stored entries.
func (fb *FakeBackend) Logs() []types.LogEntry {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]types.LogEntry(nil), fb.logs...)
}

func (fb *FakeBackend) insert(l types.LogEntry) types.LogEntry {
	if l.ID == "" {
		l.ID = types.LogID(strconv.Itoa(fb.nextID))
	}
	fb.nextID++
	if l.UserRegion == "" {
		l.UserRegion = types.DefaultRegion
	}
	l.DateObj = time.Time{}
	fb.logs = append(fb.logs, l)
	return l
}

func (fb *FakeBackend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.requests[r.Method]++
		fb.reqIDs = append(fb.reqIDs, r.Header.Get("X-Request-ID"))
		var fault Fault
		if q := fb.faults[r.Method]; len(q) > 0 {
			fault, fb.faults[r.Method] = q[0], q[1:]
		}
		fb.mu.Unlock()

		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.Status != 0 {
			writeJSON(w, fault.Status, map[string]string{"error": http.StatusText(fault.Status)})
			return
		}
		if fault.Body != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(fault.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *FakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	out := append([]types.LogEntry(nil), fb.logs...)
	fb.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in types.NewLogEntry
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if in.Fruit == "" || in.Rating < types.MinRating || in.Rating > types.MaxRating {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry"})
		return
	}
	fb.mu.Lock()
	created := fb.insert(types.LogEntry{
		Fruit:      in.Fruit,
		Origin:     in.Origin,
		Store:      in.Store,
		Rating:     in.Rating,
		Date:       in.Date,
		UserRegion: in.UserRegion,
	})
	fb.mu.Unlock()
	writeJSON(w, http.StatusCreated, created)
}

func (fb *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := types.LogID(mux.Vars(r)["id"])
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, l := range fb.logs {
		if l.ID == id {
			fb.logs = append(fb.logs[:i], fb.logs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Log not found"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
