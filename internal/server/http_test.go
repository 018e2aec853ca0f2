package server_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/karupanerura/arithmetic-repl/internal/expression"
	"github.com/karupanerura/arithmetic-repl/internal/server"
)

type evaluation struct {
	Name       string         `json:"name"`
	Expression string         `json:"expression"`
	State      string         `json:"state"`
	Result     string         `json:"result"`
	Error      map[string]any `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v: %s", err, rec.Body.String())
	}
	return v
}

func TestCreateEvaluation(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		body     string
		expected evaluation
	}{
		{
			body: `{"expression":"(1+2)*3"}`,
			expected: evaluation{
				Expression: "(1+2)*3",
				State:      "SUCCEEDED",
				Result:     "9",
			},
		},
		{
			body: `{"expression":"18446744073709551615"}`,
			expected: evaluation{
				Expression: "18446744073709551615",
				State:      "SUCCEEDED",
				Result:     "18446744073709551615",
			},
		},
		{
			body: `{"expression":"5/0"}`,
			expected: evaluation{
				Expression: "5/0",
				State:      "FAILED",
				Error: map[string]any{
					"tags":     []any{"ZeroDivisionError"},
					"message":  "5 / 0",
					"operator": "/",
					"left":     "5",
					"right":    "0",
				},
			},
		},
		{
			body: `{"expression":"1+2)"}`,
			expected: evaluation{
				Expression: "1+2)",
				State:      "FAILED",
				Error: map[string]any{
					"tags":     []any{"SyntaxError"},
					"message":  `unexpected token ")" at 4`,
					"position": float64(4),
				},
			},
		},
	} {
		tt := tt
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()

			h := server.NewHTTPHandler()
			rec := doRequest(t, h, http.MethodPost, "/v1/evaluations", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
			}

			got := decodeBody[evaluation](t, rec)
			if diff := cmp.Diff(tt.expected, got, cmpopts.IgnoreFields(evaluation{}, "Name")); diff != "" {
				t.Errorf("unexpected evaluation (-want +got):\n%s", diff)
			}
			if !strings.HasPrefix(got.Name, "evaluations/") {
				t.Errorf("unexpected name: %q", got.Name)
			}
		})
	}
}

func TestGetAndListEvaluations(t *testing.T) {
	t.Parallel()

	h := server.NewHTTPHandler()

	var names []string
	for _, source := range []string{"1", "2", "3"} {
		rec := doRequest(t, h, http.MethodPost, "/v1/evaluations", fmt.Sprintf(`{"expression":%q}`, source))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		names = append(names, decodeBody[evaluation](t, rec).Name)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/"+names[1], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[evaluation](t, rec); got.Result != "2" {
		t.Errorf("expect to 2 but got %q", got.Result)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/evaluations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[map[string][]evaluation](t, rec)["evaluations"]
	var listed []string
	for _, ev := range list {
		listed = append(listed, ev.Name)
	}
	if diff := cmp.Diff(names, listed); diff != "" {
		t.Errorf("unexpected list (-want +got):\n%s", diff)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/evaluations/ffffffffffffffff", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unexpected status %d", rec.Code)
	}
}

func TestBatchEvaluate(t *testing.T) {
	t.Parallel()

	h := server.NewHTTPHandler(
		server.WithBatchConcurrency(2),
		server.WithParser(expression.NewParser(expression.WithMaxDepth(2))),
	)

	sources := []string{"1+1", "2-3", "(1+2)*3", "(((1)))", "10/3"}
	body, err := json.Marshal(map[string][]string{"expressions": sources})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodPost, "/v1/evaluations:batchEvaluate", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[map[string][]evaluation](t, rec)["evaluations"]
	if len(got) != len(sources) {
		t.Fatalf("expect %d evaluations but got %d", len(sources), len(got))
	}

	type summary struct {
		Expression, State, Result string
		Tags                      any
	}
	var summaries []summary
	for _, ev := range got {
		summaries = append(summaries, summary{Expression: ev.Expression, State: ev.State, Result: ev.Result, Tags: ev.Error["tags"]})
	}
	expected := []summary{
		{Expression: "1+1", State: "SUCCEEDED", Result: "2"},
		{Expression: "2-3", State: "FAILED", Tags: []any{"UnderflowError"}},
		{Expression: "(1+2)*3", State: "SUCCEEDED", Result: "9"},
		{Expression: "(((1)))", State: "FAILED", Tags: []any{"RecursionError"}},
		{Expression: "10/3", State: "SUCCEEDED", Result: "3"},
	}
	if diff := cmp.Diff(expected, summaries); diff != "" {
		t.Errorf("unexpected evaluations (-want +got):\n%s", diff)
	}
}

func TestEvaluationHistorySize(t *testing.T) {
	t.Parallel()

	h := server.NewHTTPHandler(server.WithHistorySize(2))

	var names []string
	for _, source := range []string{"1", "2", "3", "4"} {
		rec := doRequest(t, h, http.MethodPost, "/v1/evaluations", fmt.Sprintf(`{"expression":%q}`, source))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		names = append(names, decodeBody[evaluation](t, rec).Name)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/evaluations", "")
	var listed []string
	for _, ev := range decodeBody[map[string][]evaluation](t, rec)["evaluations"] {
		listed = append(listed, ev.Name)
	}
	if diff := cmp.Diff(names[2:], listed); diff != "" {
		t.Errorf("unexpected list (-want +got):\n%s", diff)
	}

	if rec := doRequest(t, h, http.MethodGet, "/v1/"+names[0], ""); rec.Code != http.StatusNotFound {
		t.Errorf("forgotten evaluation should be 404 but got %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/v1/"+names[3], ""); rec.Code != http.StatusOK {
		t.Errorf("latest evaluation should be 200 but got %d", rec.Code)
	}
}

func TestServeHTTPErrors(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		method, path, body string
		status             int
	}{
		{method: http.MethodPost, path: "/v1/evaluations", body: `{`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/v1/evaluations:batchEvaluate", body: `[]`, status: http.StatusBadRequest},
		{method: http.MethodDelete, path: "/v1/evaluations", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/v1/evaluations:batchEvaluate", status: http.StatusMethodNotAllowed},
		{method: http.MethodPost, path: "/v1/evaluations/0000000000000001", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/v1/evaluations/", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/v1/evaluations/a/b", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/", status: http.StatusNotFound},
	} {
		tt := tt
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, server.NewHTTPHandler(), tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expect to %d but got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}
