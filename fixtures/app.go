package fixtures

import (
	"fmt"
	"html/template"
	"net/http"
)

// ReceiptFilename is the name the download trigger saves the receipt under
const ReceiptFilename = "recibo.pdf"

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{.Shop}}</title></head>
<body>
  <h1>{{.Shop}}</h1>
  {{if .Trigger}}<a data-cy="download" href="/{{.Filename}}" download="{{.Filename}}">Baixar recibo</a>{{end}}
</body>
</html>`))

// App serves the stand-in shop: an index page with a download trigger and the receipt PDF
type App struct {
	pdf     []byte
	shop    string
	trigger bool
}

// AppOption customises an App
type AppOption func(*App)

// WithoutTrigger serves the index page without the download element
func WithoutTrigger() AppOption {
	return func(a *App) { a.trigger = false }
}

// NewApp serves the given receipt
func NewApp(r Receipt, opts ...AppOption) (*App, error) {
	data, err := RenderReceipt(r)
	if err != nil {
		return nil, err
	}
	a := &App{pdf: data, shop: r.Shop, trigger: true}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// PDF returns the receipt bytes the app serves
func (a *App) PDF() []byte {
	return a.pdf
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		indexTmpl.Execute(w, map[string]any{
			"Shop":     a.shop,
			"Trigger":  a.trigger,
			"Filename": ReceiptFilename,
		})
	case "/" + ReceiptFilename:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ReceiptFilename))
		w.Write(a.pdf)
	default:
		http.NotFound(w, r)
	}
}
