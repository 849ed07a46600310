package fixtures

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"receipt-e2e/tasks"
)

func TestRenderReceipt(t *testing.T) {
	data, err := RenderReceipt(DefaultReceipt())
	if err != nil {
		t.Fatalf("RenderReceipt() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %q", data[:min(len(data), 16)])
	}
}

func TestRenderReceipt_ExtractedText(t *testing.T) {
	tests := []struct {
		name    string
		receipt Receipt
		want    []string
	}{
		{"default", DefaultReceipt(), []string{"Papito Shop", "Total24.000"}},
		{"other shop", Receipt{Shop: "Loja Azul", Total: "9.500"}, []string{"Loja Azul", "Total9.500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := RenderReceipt(tt.receipt)
			if err != nil {
				t.Fatalf("RenderReceipt() error = %v", err)
			}
			text, err := tasks.ExtractText(data)
			if err != nil {
				t.Fatalf("ExtractText() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("extracted text missing %q\ngot: %q", want, text)
				}
			}
		})
	}
}

func TestRenderReceipt_Empty(t *testing.T) {
	data, err := RenderReceipt(Receipt{})
	if err != nil {
		t.Fatalf("RenderReceipt() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a valid (blank) PDF")
	}
}

func TestApp_Index(t *testing.T) {
	app, err := NewApp(DefaultReceipt())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(app)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `data-cy="download"`) {
		t.Errorf("index is missing the download trigger:\n%s", body)
	}
	if !strings.Contains(string(body), "Papito Shop") {
		t.Errorf("index is missing the shop name:\n%s", body)
	}
}

func TestApp_WithoutTrigger(t *testing.T) {
	app, err := NewApp(DefaultReceipt(), WithoutTrigger())
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Contains(rec.Body.String(), `data-cy="download"`) {
		t.Error("download trigger rendered despite WithoutTrigger")
	}
}

func TestApp_Receipt(t *testing.T) {
	app, err := NewApp(DefaultReceipt())
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+ReceiptFilename, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), app.PDF()) {
		t.Error("served bytes differ from rendered receipt")
	}
}

func TestApp_NotFound(t *testing.T) {
	app, err := NewApp(DefaultReceipt())
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other.pdf", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
