package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairlensai/fairlens/internal/cache"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGetDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "w1", "name": "widget one"},
			"message": "ok",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[widget](context.Background(), c, "/api/v1/widgets/w1", nil)

	if !env.Success {
		t.Fatalf("Success = false, error = %q", env.Error)
	}
	if env.Data.ID != "w1" || env.Data.Name != "widget one" {
		t.Errorf("Data = %+v", env.Data)
	}
	if env.Message != "ok" {
		t.Errorf("Message = %q, want %q", env.Message, "ok")
	}
	if env.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", env.StatusCode)
	}
}

func TestGetBarePayloadIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "w1", "name": "bare"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[widget](context.Background(), c, "/w", nil)

	if !env.Success {
		t.Fatalf("Success = false, error = %q", env.Error)
	}
	if env.Data.Name != "bare" {
		t.Errorf("Data = %+v, want bare payload decoded", env.Data)
	}
}

func TestGetArrayPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]widget{{ID: "a"}, {ID: "b"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[[]widget](context.Background(), c, "/w", nil)

	if !env.Success {
		t.Fatalf("Success = false, error = %q", env.Error)
	}
	if len(env.Data) != 2 {
		t.Errorf("len(Data) = %d, want 2", len(env.Data))
	}
}

func TestBackendReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "invalid framework"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Post[widget](context.Background(), c, "/w", map[string]string{"x": "y"}, nil)

	if env.Success {
		t.Fatal("Success = true for backend-reported failure")
	}
	if env.Error != "invalid framework" {
		t.Errorf("Error = %q, want %q", env.Error, "invalid framework")
	}
	if env.Err() == nil {
		t.Error("Err() = nil for failed envelope")
	}
}

func TestFailureNormalization(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "http error with envelope body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{"error": "bad input"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "http error with plain body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success": tru`))
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL)
			env := Get[widget](context.Background(), c, "/w", nil)

			if env.Success {
				t.Fatal("Success = true, want failure envelope")
			}
			if env.Error == "" {
				t.Error("Error is empty, want non-empty failure reason")
			}
			if env.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", env.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestNetworkErrorBecomesEnvelope(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL)
	env := Get[widget](context.Background(), c, "/w", nil)

	if env.Success {
		t.Fatal("Success = true for unreachable backend")
	}
	if env.Error == "" {
		t.Error("Error is empty")
	}
	if env.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", env.StatusCode)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "w1", "name": "stable"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	first := Get[widget](context.Background(), c, "/w", nil)
	second := Get[widget](context.Background(), c, "/w", nil)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("envelopes differ:\n  first:  %+v\n  second: %+v", first, second)
	}
}

func TestRetryBound(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[widget](context.Background(), c, "/w", &RequestOptions{EnableRetry: true, MaxRetries: 2})

	if env.Success {
		t.Fatal("Success = true from always-failing backend")
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3 (MaxRetries+1)", n)
	}
}

func TestRetryRecovers(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": "ok"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[widget](context.Background(), c, "/w", &RequestOptions{EnableRetry: true, MaxRetries: 3})

	if !env.Success {
		t.Fatalf("Success = false after recovery, error = %q", env.Error)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	Get[widget](context.Background(), c, "/w", &RequestOptions{EnableRetry: true, MaxRetries: 5})

	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1 (404 is not retryable)", n)
	}
}

func TestTimeoutEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	start := time.Now()
	env := Get[widget](context.Background(), c, "/w", &RequestOptions{Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if env.Success {
		t.Fatal("Success = true from stalled backend")
	}
	if elapsed > time.Second {
		t.Errorf("call took %v, want ~100ms", elapsed)
	}
}

func TestContextCancellationAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := NewClient(srv.URL)
	start := time.Now()
	env := Get[widget](ctx, c, "/w", nil)

	if env.Success {
		t.Fatal("Success = true after cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v after cancel", elapsed)
	}
}

func TestTokenAttachment(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	Get[widget](context.Background(), c, "/w", nil)
	if auth := gotAuth.Load().(string); auth != "" {
		t.Errorf("Authorization = %q before SetAccessToken", auth)
	}

	c.SetAccessToken("tok-123")
	Get[widget](context.Background(), c, "/w", nil)
	if auth := gotAuth.Load().(string); auth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer tok-123")
	}

	c.SetAccessToken("")
	Get[widget](context.Background(), c, "/w", nil)
	if auth := gotAuth.Load().(string); auth != "" {
		t.Errorf("Authorization = %q after detaching token", auth)
	}
}

func TestHeaderOverrides(t *testing.T) {
	var gotContentType, gotAccept atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType.Store(r.Header.Get("Content-Type"))
		gotAccept.Store(r.Header.Get("Accept"))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	Post[widget](context.Background(), c, "/w", map[string]string{}, &RequestOptions{
		Headers: map[string]string{
			"Content-Type": "application/vnd.fairlens+json",
			"Accept":       "",
		},
	})

	if ct := gotContentType.Load().(string); ct != "application/vnd.fairlens+json" {
		t.Errorf("Content-Type = %q, want override", ct)
	}
	if accept := gotAccept.Load().(string); accept != "" {
		t.Errorf("Accept = %q, want removed", accept)
	}
}

func TestOfflineModeSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithOffline(true))
	env := Get[widget](context.Background(), c, "/w", nil)

	if env.Success {
		t.Fatal("Success = true in offline mode")
	}
	if !strings.Contains(env.Error, "offline") {
		t.Errorf("Error = %q, want offline failure", env.Error)
	}
	if hits.Load() != 0 {
		t.Errorf("backend hit %d times in offline mode", hits.Load())
	}
}

func TestUploadIsMultipart(t *testing.T) {
	var gotContentType string
	var gotFile, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		buf := make([]byte, header.Size)
		file.Read(buf)
		gotFile = string(buf)
		gotName = r.FormValue("name")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": "d1"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Upload[widget](context.Background(), c, "/api/v1/datasets/upload", "census.csv",
		strings.NewReader("age,income\n34,50000\n"),
		map[string]string{"name": "Census"}, nil)

	if !env.Success {
		t.Fatalf("Success = false, error = %q", env.Error)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q, want multipart/form-data with boundary", gotContentType)
	}
	if gotContentType == "application/json" {
		t.Error("upload forced application/json content type")
	}
	if gotFile != "age,income\n34,50000\n" {
		t.Errorf("file content = %q", gotFile)
	}
	if gotName != "Census" {
		t.Errorf("name field = %q, want Census", gotName)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	var gotID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID.Store(r.Header.Get("X-Request-ID"))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	Get[widget](context.Background(), c, "/w", nil)

	if id, _ := gotID.Load().(string); id == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestCachedGetSkipsSecondRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "w1", "name": "cached"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCache(cache.NewMemory(), time.Minute))

	for i := 0; i < 3; i++ {
		env := Get[widget](context.Background(), c, "/widgets/w1", nil)
		if err := env.Err(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if env.Data.Name != "cached" {
			t.Fatalf("call %d: unexpected data %+v", i, env.Data)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
}

func TestCachedGetServedWhileOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "w1", "name": "stashed"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCache(cache.NewMemory(), time.Minute))

	if err := Get[widget](context.Background(), c, "/widgets/w1", nil).Err(); err != nil {
		t.Fatalf("warm-up fetch: %v", err)
	}

	c.SetOffline(true)

	env := Get[widget](context.Background(), c, "/widgets/w1", nil)
	if err := env.Err(); err != nil {
		t.Fatalf("offline cached read: %v", err)
	}
	if env.Data.Name != "stashed" {
		t.Fatalf("unexpected data %+v", env.Data)
	}

	// An uncached path still fails offline.
	if err := Get[widget](context.Background(), c, "/widgets/w2", nil).Err(); err == nil {
		t.Fatal("expected offline failure for uncached path")
	}
}

func TestMutationsBypassCache(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCache(cache.NewMemory(), time.Minute))

	for i := 0; i < 2; i++ {
		if err := Post[struct{}](context.Background(), c, "/widgets", map[string]string{"name": "x"}, nil).Err(); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	if got := posts.Load(); got != 2 {
		t.Fatalf("server posts = %d, want 2", got)
	}
}

func TestBodyWithDataKeyButNoSuccessIsBarePayload(t *testing.T) {
	type listing struct {
		Data []widget `json:"data"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "w1", "name": "widget one"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env := Get[listing](context.Background(), c, "/widgets", nil)
	if err := env.Err(); err != nil {
		t.Fatalf("Err = %v, want nil", err)
	}
	if len(env.Data.Data) != 1 || env.Data.Data[0].ID != "w1" {
		t.Errorf("Data = %+v, want the whole body decoded as the payload", env.Data)
	}
}

func TestRetryDelayClampsLargeAttempts(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
		{6, 8 * time.Second},
		{40, 8 * time.Second},
		{100, 8 * time.Second},
	}
	for _, tt := range tests {
		got := retryDelay(tt.attempt)
		if got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
		if got <= 0 {
			t.Errorf("retryDelay(%d) = %v, must be positive", tt.attempt, got)
		}
	}
}
