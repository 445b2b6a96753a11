package bridge

import (
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webview/internal/protocol"
)

const pageName = "page"

// PrimaryColors are the accent colours of the page chrome.
type PrimaryColors struct {
	Dark  string `json:"dark"`
	Light string `json:"light"`
}

// StartupOptions are handed to the bootstrap script of a route page.
type StartupOptions struct {
	Debug           bool            `json:"debug"`
	PrimaryColors   PrimaryColors   `json:"primaryColors"`
	URL             string          `json:"url"`
	RouteName       string          `json:"routeName"`
	State           json.RawMessage `json:"state"`
	LightOrDarkMode string          `json:"lightOrDarkMode"`
}

type pageData struct {
	Title      string
	URL        string
	Mode       string
	Colors     PrimaryColors
	TitlePanel bool
	Startup    template.JS
}

const pageSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style type="text/css">
:root { --primary-color: #2288ff; }
{{- if eq .Mode "system"}}
@media (prefers-color-scheme: light) { :root { --primary-color: {{.Colors.Light}}; } }
@media (prefers-color-scheme: dark) { :root { --primary-color: {{.Colors.Dark}}; } }
{{- else if eq .Mode "dark"}}
:root { --primary-color: {{.Colors.Dark}}; }
{{- else}}
:root { --primary-color: {{.Colors.Light}}; }
{{- end}}
</style>
<link rel="stylesheet" type="text/css" href="{{.URL}}/static/client.css">
{{- if not .TitlePanel}}
<style type="text/css">#title { display: none }</style>
{{- end}}
</head>
<body>
<div id="title">
  <div class="menu">
    <span class="button">&#9776;</span>
    <ul class="menu-list"></ul>
  </div>
  <h1>
    <img id="title-img" alt="">
    <span id="title-content">{{.Title}}</span>
  </h1>
  <a class="close">&times;</a>
</div>
<div id="reveal-cover" style="display: none;"></div>
<iframe id="main" frameborder="0"></iframe>
<script src="{{.URL}}/static/client.js"></script>
<script>window.startup({{.Startup}});</script>
</body>
</html>
`

func pageTemplate() (*template.Template, error) {
	tmpl, err := template.New(pageName).Parse(pageSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return tmpl, nil
}

// renderPage builds the template data for route. origin is the scheme
// and host the tab used to reach the bridge.
func (b *Bridge) renderPage(route Route, origin string, state json.RawMessage) (pageData, error) {
	page := b.opts.Page
	colors := PrimaryColors{Dark: page.PrimaryDark, Light: page.PrimaryLight}

	mode := page.ColorStrategy
	switch mode {
	case config.ColorDark, config.ColorLight:
	default:
		mode = config.ColorSystem
	}

	if len(state) == 0 {
		state = json.RawMessage("null")
	}
	startup, err := protocol.Marshal(StartupOptions{
		Debug:           b.opts.Debug,
		PrimaryColors:   colors,
		URL:             origin,
		RouteName:       route.Name,
		State:           state,
		LightOrDarkMode: mode,
	})
	if err != nil {
		return pageData{}, fmt.Errorf("failed to encode startup options: %w", err)
	}

	return pageData{
		Title:      route.Title,
		URL:        origin,
		Mode:       mode,
		Colors:     colors,
		TitlePanel: page.TitlePanel,
		Startup:    template.JS(startup),
	}, nil
}
