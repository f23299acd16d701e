// Package web provides the embedded playground UI for the expression
// server.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/parcelui/expression/pkg/anyexpr"
	"github.com/parcelui/expression/pkg/expression"
	"github.com/parcelui/expression/pkg/store"
)

// Handler serves the playground pages.
type Handler struct {
	store *store.Store
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{store: s}
}

// Register adds the playground routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.playground)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

type playgroundContent struct {
	Source    string
	Canonical string
	Result    string
	Err       string
	Symbols   []string
	Saved     []*store.Expression
}

var playgroundTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Expression Playground</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
input[type=text] { width: 100%; font-family: monospace; padding: 0.4rem; }
.result { background: #eef7ee; padding: 0.6rem; margin-top: 1rem; }
.error { background: #f7eeee; padding: 0.6rem; margin-top: 1rem; }
table { border-collapse: collapse; margin-top: 1.5rem; }
td, th { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
</style>
</head>
<body>
<h1>Expression Playground</h1>
<form method="get" action="/ui">
  <input type="text" name="expr" value="{{.Source}}" placeholder="e.g. (width - 20) / 2" autofocus>
</form>
{{if .Err}}<div class="error">{{.Err}}</div>{{end}}
{{if .Result}}
<div class="result">
  <strong>{{.Result}}</strong><br>
  <small>{{.Canonical}}{{if .Symbols}} &mdash; symbols: {{range $i, $s := .Symbols}}{{if $i}}, {{end}}{{$s}}{{end}}{{end}}</small>
</div>
{{end}}
{{if .Saved}}
<table>
  <tr><th>ID</th><th>Source</th><th>Evals</th></tr>
  {{range .Saved}}<tr><td>{{.ID}}</td><td><code>{{.Source}}</code></td><td>{{.EvalCount}}</td></tr>{{end}}
</table>
{{end}}
</body>
</html>
`

func (h *Handler) playground(c *fiber.Ctx) error {
	content := playgroundContent{
		Source: c.Query("expr"),
		Saved:  h.store.List(),
	}
	sort.Slice(content.Saved, func(i, j int) bool {
		return content.Saved[i].CreateTime.Before(content.Saved[j].CreateTime)
	})

	if content.Source != "" {
		parsed := expression.Parse(content.Source)
		content.Canonical = parsed.String()
		content.Symbols = parsed.SymbolNames()

		result, err := anyexpr.NewParsed(parsed, nil).Evaluate()
		if err != nil {
			content.Err = err.Error()
		} else {
			content.Result = anyexpr.FormatValue(result)
			if content.Result == "" {
				content.Result = "nil"
			}
		}
	}

	return h.render(c, content)
}

func (h *Handler) render(c *fiber.Ctx, content playgroundContent) error {
	// Parsed fresh each time; the template is small and this keeps a broken
	// edit from taking down the server at startup.
	tmpl, err := template.New("playground").Parse(playgroundTemplate)
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, content); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}
