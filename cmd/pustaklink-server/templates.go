package main

import (
	htmltmpl "html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pustaklink/pustaklink/pkg/books"
)

// resultsPage is the data for the "results" template.
type resultsPage struct {
	Criteria books.FilterCriteria
	Books    []books.BookRecord
}

var resultshtml = `
<!DOCTYPE html>
{{define "ITEM"}}
			<div class="book">
				<h3>{{.Title}}</h3>
				<p>by {{.Author}} &middot; {{.Subject}} &middot; {{.Condition}} condition</p>
				<p>Lent by {{.LenderName}}, {{.LenderCollege}}, for up to {{.BorrowDuration}} days</p>
			</div>
{{end}}
{{define "DOCHEAD"}}
<html>
	<head>
		<title>PustakLink: Books to Borrow</title>
	</head>
	<body>
		<div class="container">
{{end}}
{{define "DOCTAIL"}}
		</div>
	</body>
</html>
{{end}}
{{template "DOCHEAD"}}
			<p class="count">{{len .Books}} books found{{with .Criteria.Search}} for &ldquo;{{.}}&rdquo;{{end}}</p>
{{range .Books}}{{template "ITEM" .}}{{else}}
			<p class="empty">No books match. Try clearing some filters.</p>
{{end}}{{template "DOCTAIL"}}
`

func (svc *service) loadTemplates() {
	t := htmltmpl.Must(htmltmpl.New("results").Parse(resultshtml))
	svc.HTMLTemplates = map[string]*htmltmpl.Template{
		"results": t,
	}
}

// Render implements the echo.Renderer interface so that we can render templates appropriately.
// The set of templates is fixed when the service is created.
func (svc *service) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := svc.HTMLTemplates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown format '"+name+"'")
	}
	return tmpl.Execute(w, data)
}
