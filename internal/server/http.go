package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/karupanerura/arithmetic-repl/internal/expression"
	"github.com/karupanerura/arithmetic-repl/internal/types"
)

const (
	basePath         = "/v1/evaluations"
	batchCustomVerb  = "batchEvaluate"
	succeededState   = "SUCCEEDED"
	failedState      = "FAILED"
	defaultBatchSize = 8

	// DefaultHistorySize is the number of evaluations kept for GET requests.
	DefaultHistorySize = 1000
)

type evaluation struct {
	Name       string    `json:"name"`
	CreateTime time.Time `json:"createTime"`
	Expression string    `json:"expression"`
	State      string    `json:"state"`
	Result     string    `json:"result,omitempty"`
	Error      any       `json:"error,omitempty"`

	seq uint64
}

type evaluateRequest struct {
	Expression string `json:"expression"`
}

type batchEvaluateRequest struct {
	Expressions []string `json:"expressions"`
}

type httpHandler struct {
	parser           *expression.Parser
	batchConcurrency int
	historySize      uint64
	idBase           uint64
	evaluations      sync.Map
}

type Option func(*httpHandler)

func WithParser(p *expression.Parser) Option {
	return func(h *httpHandler) {
		h.parser = p
	}
}

func WithBatchConcurrency(n int) Option {
	return func(h *httpHandler) {
		h.batchConcurrency = n
	}
}

// WithHistorySize limits how many evaluations are kept; older ones are forgotten first.
func WithHistorySize(n int) Option {
	return func(h *httpHandler) {
		if n < 1 {
			n = 1
		}
		h.historySize = uint64(n)
	}
}

func NewHTTPHandler(opts ...Option) http.Handler {
	h := &httpHandler{
		parser:           expression.NewParser(),
		batchConcurrency: defaultBatchSize,
		historySize:      DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == basePath:
		switch r.Method {
		case http.MethodGet:
			h.listEvaluations(w, r)
			return

		case http.MethodPost:
			h.createEvaluation(w, r)
			return

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

	case r.URL.Path == basePath+":"+batchCustomVerb:
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.batchEvaluate(w, r)
		return

	case strings.HasPrefix(r.URL.Path, basePath+"/"):
		id := strings.TrimPrefix(r.URL.Path, basePath+"/")
		if id == "" || strings.ContainsRune(id, '/') {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getEvaluation(w, r, id)
		return

	default:
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
}

func (h *httpHandler) createEvaluation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ev := h.evaluate(req.Expression)
	if err := resJSON(w, http.StatusOK, ev); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) batchEvaluate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req batchEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	results := make([]*evaluation, len(req.Expressions))
	eg := errgroup.Group{}
	eg.SetLimit(h.batchConcurrency)
	for i, source := range req.Expressions {
		i := i
		source := source
		eg.Go(func() error {
			results[i] = h.evaluate(source)
			return nil
		})
	}
	_ = eg.Wait() // evaluate never fails; failures are recorded in each evaluation

	if err := resJSON(w, http.StatusOK, map[string][]*evaluation{"evaluations": results}); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) evaluate(source string) *evaluation {
	seq := atomic.AddUint64(&h.idBase, 1)
	id := evaluationID(seq)
	ev := &evaluation{
		Name:       "evaluations/" + id,
		CreateTime: time.Now().UTC(),
		Expression: strings.TrimSpace(source),
		seq:        seq,
	}

	ret, err := h.parser.Calculate(source)
	if err != nil {
		ev.State = failedState
		var exception types.Exception
		if errors.As(err, &exception) {
			ev.Error = exception.Exception()
		} else {
			log.Printf("failed to evaluate %q: %v", source, err)
			ev.Error = err.Error()
		}
	} else {
		ev.State = succeededState
		ev.Result = strconv.FormatUint(ret, 10)
	}

	h.evaluations.Store(id, ev)
	if seq > h.historySize {
		h.evaluations.Delete(evaluationID(seq - h.historySize))
	}
	return ev
}

func evaluationID(seq uint64) string {
	return fmt.Sprintf("%016x", seq)
}

func (h *httpHandler) listEvaluations(w http.ResponseWriter, r *http.Request) {
	results := []*evaluation{}
	h.evaluations.Range(func(key, value any) bool {
		results = append(results, value.(*evaluation))
		return true
	})
	sort.Slice(results, func(i, j int) bool {
		return results[i].seq < results[j].seq
	})

	if err := resJSON(w, http.StatusOK, map[string][]*evaluation{"evaluations": results}); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (h *httpHandler) getEvaluation(w http.ResponseWriter, r *http.Request, id string) {
	ret, ok := h.evaluations.Load(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := resJSON(w, http.StatusOK, ret.(*evaluation)); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func resJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)+1))
	w.WriteHeader(status)

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
