package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"receipt-e2e/configs"
	"receipt-e2e/fixtures"
)

func newBridge(t *testing.T, root string) *Client {
	t.Helper()
	reg := NewRegistry()
	if err := Setup(&configs.Config{ProjectRoot: root}, reg); err != nil {
		t.Fatal(err)
	}
	reg.Register("slow", func(ctx context.Context, _ string) (string, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	srv := httptest.NewServer(NewHandler(reg))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestBridge_ReadPDF(t *testing.T) {
	root := t.TempDir()
	writeReceipt(t, root, fixtures.DefaultReceipt())
	client := newBridge(t, root)

	text, err := client.Invoke(context.Background(), ReadPDFTask, fixtures.ReceiptFilename)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(text, "Papito Shop") {
		t.Errorf("text = %q", text)
	}
}

func TestBridge_MissingFileFails(t *testing.T) {
	client := newBridge(t, t.TempDir())

	_, err := client.Invoke(context.Background(), ReadPDFTask, "downloads/recibo.pdf")
	if err == nil {
		t.Fatal("Invoke() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "no such file") {
		t.Errorf("error %q does not carry the task failure", err)
	}
}

func TestBridge_MalformedPDFFails(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bad.pdf"), []byte("%PDF-1.4 garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	client := newBridge(t, root)

	if _, err := client.Invoke(context.Background(), ReadPDFTask, "bad.pdf"); err == nil {
		t.Fatal("Invoke() expected error for malformed PDF")
	}
}

func TestBridge_UnknownTask(t *testing.T) {
	client := newBridge(t, t.TempDir())

	_, err := client.Invoke(context.Background(), "writePDF", "x")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Invoke() error = %v, want ErrTaskNotFound", err)
	}
}

func TestBridge_Timeout(t *testing.T) {
	client := newBridge(t, t.TempDir())
	client.httpClient.Timeout = 50 * time.Millisecond

	if _, err := client.Invoke(context.Background(), "slow", ""); err == nil {
		t.Fatal("Invoke() expected timeout error")
	}
}

func TestBridge_Health(t *testing.T) {
	client := newBridge(t, t.TempDir())
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}

	dead := NewClient("http://127.0.0.1:1", time.Second)
	if err := dead.Health(context.Background()); err == nil {
		t.Error("Health() expected error for unreachable server")
	}
}

func TestHandler_BadBody(t *testing.T) {
	h := NewHandler(NewRegistry())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/task/readPDF", strings.NewReader("{"))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_ListTasks(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ReadPDFTask, echo)
	h := NewHandler(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ReadPDFTask) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestClient_NonJSONErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad gateway", http.StatusBadGateway, "<html>upstream down</html>", "502 Bad Gateway"},
		{"method not allowed", http.StatusMethodNotAllowed, "Method Not Allowed\n", "405 Method Not Allowed"},
		{"task error", http.StatusInternalServerError, `{"error":"read pdf: boom"}`, "read pdf: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Invoke(context.Background(), ReadPDFTask, "x.pdf")
			if err == nil {
				t.Fatal("Invoke() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Invoke() error = %q, want it to contain %q", err, tt.want)
			}
			if strings.Contains(err.Error(), "decoding") {
				t.Errorf("Invoke() reported a decode failure instead of the status: %v", err)
			}
		})
	}
}
