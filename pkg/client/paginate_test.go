package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// pagedServer serves pages of integers under "items" keyed by the "page"
// query parameter. Unconfigured pages are empty.
func pagedServer(t *testing.T, pages map[int][]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		items := pages[page]
		if items == nil {
			items = []int{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
}

func TestPaginate_StopsOnShortPage(t *testing.T) {
	server := pagedServer(t, map[int][]int{
		1: {1, 2, 3},
		2: {4, 5, 6},
		3: {7},
		4: {8, 9, 10},
	})
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:  RequestSpec{Path: "numbers"},
		DataPath: "items",
		PageSize: 3,
		MaxPages: 10,
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	// Page 3 is the first page shorter than the requested size; page 4 must
	// never be requested even though MaxPages allows it.
	if len(result.Responses) != 3 {
		t.Errorf("pages fetched = %d, want 3", len(result.Responses))
	}
	if len(result.Items) != 7 {
		t.Errorf("items = %d, want 7", len(result.Items))
	}
}

func TestPaginate_StopsWhenEmpty(t *testing.T) {
	server := pagedServer(t, map[int][]int{
		1: {1, 2},
		2: {},
		3: {3, 4},
	})
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:       RequestSpec{Path: "numbers"},
		StopWhenEmpty: true,
		MaxPages:      10,
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(result.Responses) != 2 {
		t.Errorf("pages fetched = %d, want 2 (stop at first empty page)", len(result.Responses))
	}
	if len(result.Items) != 2 {
		t.Errorf("items = %d, want 2", len(result.Items))
	}
}

func TestPaginate_MaxPagesBound(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[1,2,3]}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:  RequestSpec{Path: "numbers"},
		MaxPages: 4,
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if requests != 4 {
		t.Errorf("requests = %d, want exactly MaxPages", requests)
	}
	if len(result.Items) != 12 {
		t.Errorf("items = %d, want 12", len(result.Items))
	}
}

func TestPaginate_TokenMode(t *testing.T) {
	pages := map[string]string{
		"":   `{"items":[1,2],"next":"t2"}`,
		"t2": `{"items":[3,4],"next":"t3"}`,
		"t3": `{"items":[5],"next":null}`,
	}
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pages[cursor])
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:       RequestSpec{Path: "numbers"},
		NextTokenPath: "next",
		MaxPages:      10,
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(result.Items) != 5 {
		t.Errorf("items = %d, want 5", len(result.Items))
	}
	want := []string{"", "t2", "t3"}
	if len(cursors) != len(want) {
		t.Fatalf("cursors = %v, want %v", cursors, want)
	}
	for i := range want {
		if cursors[i] != want[i] {
			t.Errorf("cursor[%d] = %q, want %q", i, cursors[i], want[i])
		}
	}
}

func TestPaginate_SingletonDataPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"id":7}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:  RequestSpec{Path: "thing"},
		DataPath: "result",
		MaxPages: 1,
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want singleton", len(result.Items))
	}
	obj, ok := result.Items[0].(map[string]any)
	if !ok || obj["id"] != float64(7) {
		t.Errorf("item = %#v, want the object at the data path", result.Items[0])
	}
}

func TestPaginate_ErrorReturnsPartial(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[1,2,3]}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	result, err := c.Paginate(context.Background(), PaginateSpec{
		Request:  RequestSpec{Path: "numbers"},
		MaxPages: 5,
	})
	if err == nil {
		t.Fatal("Paginate() error = nil, want the failed page's error")
	}
	if len(result.Items) != 3 {
		t.Errorf("items = %d, want the partial accumulator", len(result.Items))
	}
}
