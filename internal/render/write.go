package render

import (
	"encoding/json"
	"html/template"
	"io"
)

// Write encodes fig as a JSON document
func Write(w io.Writer, fig *Figure) error {
	if fig == nil {
		return ErrNoData
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(fig); err != nil {
		return &BackendError{Op: "json", Err: err}
	}
	return nil
}

// plotly.js is pulled from its CDN, so viewing the page needs a connection
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
</head>
<body style="background:#111">
<div id="chart"></div>
<script>
var fig = {{.Figure}};
Plotly.newPlot("chart", fig.data, fig.layout).then(function () {
	if (fig.frames) {
		Plotly.addFrames("chart", fig.frames);
	}
});
</script>
</body>
</html>
`))

// WriteHTML writes a standalone page that draws fig
func WriteHTML(w io.Writer, fig *Figure) error {
	if fig == nil {
		return ErrNoData
	}
	data, err := json.Marshal(fig)
	if err != nil {
		return &BackendError{Op: "json", Err: err}
	}
	err = pageTemplate.Execute(w, struct {
		Title  string
		Figure template.JS
	}{
		Title:  fig.Layout.Title,
		Figure: template.JS(data),
	})
	if err != nil {
		return &BackendError{Op: "html", Err: err}
	}
	return nil
}
