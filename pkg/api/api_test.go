package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parcelui/expression/pkg/store"
)

func testRequest(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}

	var decoded map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", data, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestEvalEndpoint(t *testing.T) {
	srv := New(store.New())

	status, body := testRequest(t, srv, "POST", "/v1/eval",
		`{"source": "2 + 3 * 4"}`)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["result"] != 14.0 {
		t.Errorf("result = %v, want 14", body["result"])
	}
	if body["formatted"] != "14" {
		t.Errorf("formatted = %v, want %q", body["formatted"], "14")
	}
}

func TestEvalWithConstants(t *testing.T) {
	srv := New(store.New())

	status, body := testRequest(t, srv, "POST", "/v1/eval",
		`{"source": "'hello ' + name", "constants": {"name": "world"}}`)
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["result"] != "hello world" {
		t.Errorf("result = %v, want %q", body["result"], "hello world")
	}
}

func TestEvalErrors(t *testing.T) {
	srv := New(store.New())

	tests := []struct {
		name       string
		body       string
		wantStatus string
	}{
		{"missing source", `{}`, "INVALID_ARGUMENT"},
		{"parse error", `{"source": "(1 + 2"}`, "INVALID_ARGUMENT"},
		{"undefined symbol", `{"source": "mystery"}`, "INVALID_ARGUMENT"},
		{"type mismatch", `{"source": "s * 2", "constants": {"s": "text"}}`, "FAILED_PRECONDITION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := testRequest(t, srv, "POST", "/v1/eval", tt.body)
			if status != 400 {
				t.Fatalf("status = %d, want 400 (body %v)", status, body)
			}
			errObj, ok := body["error"].(map[string]any)
			if !ok {
				t.Fatalf("missing error object: %v", body)
			}
			if errObj["status"] != tt.wantStatus {
				t.Errorf("error status = %v, want %q", errObj["status"], tt.wantStatus)
			}
		})
	}
}

func TestExpressionLifecycle(t *testing.T) {
	srv := New(store.New())

	status, created := testRequest(t, srv, "POST", "/v1/expressions",
		`{"source": "width / 2", "constants": {"width": 320}}`)
	if status != 200 {
		t.Fatalf("create status = %d, body = %v", status, created)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no id in response: %v", created)
	}

	status, got := testRequest(t, srv, "GET", "/v1/expressions/"+id, "")
	if status != 200 || got["source"] != "width / 2" {
		t.Fatalf("get status = %d, body = %v", status, got)
	}

	status, result := testRequest(t, srv, "POST",
		fmt.Sprintf("/v1/expressions/%s/result", id), "")
	if status != 200 {
		t.Fatalf("eval status = %d, body = %v", status, result)
	}
	if result["result"] != 160.0 {
		t.Errorf("result = %v, want 160", result["result"])
	}

	// Request constants override stored ones.
	status, result = testRequest(t, srv, "POST",
		fmt.Sprintf("/v1/expressions/%s/result", id),
		`{"constants": {"width": 100}}`)
	if status != 200 || result["result"] != 50.0 {
		t.Fatalf("override eval status = %d, body = %v", status, result)
	}

	status, list := testRequest(t, srv, "GET", "/v1/expressions", "")
	if status != 200 {
		t.Fatalf("list status = %d", status)
	}
	items, _ := list["expressions"].([]any)
	if len(items) != 1 {
		t.Errorf("list returned %d items, want 1", len(items))
	}

	status, _ = testRequest(t, srv, "DELETE", "/v1/expressions/"+id, "")
	if status != 200 {
		t.Fatalf("delete status = %d", status)
	}
	status, _ = testRequest(t, srv, "GET", "/v1/expressions/"+id, "")
	if status != 404 {
		t.Errorf("get after delete status = %d, want 404", status)
	}
}

func TestCreateRejectsInvalidExpressions(t *testing.T) {
	srv := New(store.New())

	status, body := testRequest(t, srv, "POST", "/v1/expressions",
		`{"source": "1 + (2"}`)
	if status != 400 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
}

func TestUpdateExpression(t *testing.T) {
	srv := New(store.New())

	_, created := testRequest(t, srv, "POST", "/v1/expressions",
		`{"source": "a + 1", "constants": {"a": 1}}`)
	id := created["id"].(string)

	status, updated := testRequest(t, srv, "PATCH", "/v1/expressions/"+id,
		`{"source": "a + 2"}`)
	if status != 200 || updated["source"] != "a + 2" {
		t.Fatalf("update status = %d, body = %v", status, updated)
	}

	status, _ = testRequest(t, srv, "PATCH", "/v1/expressions/"+id,
		`{"source": "a + ("}`)
	if status != 400 {
		t.Errorf("invalid update status = %d, want 400", status)
	}
}

func TestSymbolsEndpoint(t *testing.T) {
	srv := New(store.New())

	_, created := testRequest(t, srv, "POST", "/v1/expressions",
		`{"source": "width + pow(height, 2)"}`)
	id := created["id"].(string)

	status, body := testRequest(t, srv, "GET",
		fmt.Sprintf("/v1/expressions/%s/symbols", id), "")
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}

	names, _ := body["names"].([]any)
	want := []string{"+", "height", "pow", "width"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %v, want %q", i, names[i], want[i])
		}
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	srv := New(store.New())

	status, body := testRequest(t, srv, "DELETE", "/v1/cache", "")
	if status != 200 || body["cleared"] != "all" {
		t.Fatalf("status = %d, body = %v", status, body)
	}

	status, body = testRequest(t, srv, "DELETE", "/v1/cache?source=a%2B1", "")
	if status != 200 || body["cleared"] != "a+1" {
		t.Fatalf("status = %d, body = %v", status, body)
	}
}
