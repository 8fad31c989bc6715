package server

import (
	"html/template"
	"net/http"
)

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Profile.FullName}}</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; padding: 2rem 0; }
  .card { max-width: 680px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  a:hover { text-decoration: underline; }
  p { line-height: 1.6; white-space: pre-line; }
  form { display: flex; gap: 0.5rem; }
  input[type=text] { flex: 1; background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 0.75rem; color: #e2e8f0; font-size: 0.95rem; }
  button { background: #38bdf8; color: #0f172a; border: 0; border-radius: 8px; padding: 0 1.25rem; font-weight: 600; cursor: pointer; }
  .answer { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; margin-top: 1rem; }
  .error { border-color: #f87171; color: #fecaca; }
</style>
</head>
<body>
<div class="card">
  <h1>Hi, I'm {{.Profile.FullName}} 👋</h1>
  {{with .Profile.Intro}}<p class="subtitle">{{.}}</p>{{end}}

  {{with .Profile.About}}
  <div class="section">
    <div class="section-title">About</div>
    <p>{{.}}</p>
  </div>
  {{end}}

  <div class="section">
    <div class="section-title">Ask {{.Profile.AssistantName}}</div>
    <p class="subtitle">{{.Profile.AssistantName}} is an AI assistant that answers recruiters' questions about {{.Profile.Name}}.</p>
    <form method="post" action="/">
      <input type="text" name="question" value="{{.Question}}" placeholder="What are {{.Profile.Name}}'s main skills?" maxlength="{{.MaxQuestion}}" autofocus>
      <button type="submit">Ask</button>
    </form>
    {{if .Error}}<div class="answer error">{{.Error}}</div>{{end}}
    {{if .Answer}}<div class="answer"><p>{{.Answer}}</p></div>{{end}}
  </div>

  {{with .Profile.Email}}
  <div class="section">
    <div class="section-title">Contact</div>
    <p><a href="mailto:{{.}}">{{.}}</a></p>
  </div>
  {{end}}
</div>
</body>
</html>`

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	Profile     Profile
	Question    string
	Answer      string
	Error       string
	MaxQuestion int
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	data.Profile = s.profile
	data.MaxQuestion = maxQuestionChars

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}
