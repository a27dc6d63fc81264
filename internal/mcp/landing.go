package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pakistan Law MCP Server</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #052e16; color: #ecfdf5; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #14532d; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.45); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f0fdf4; }
  .subtitle { color: #a7f3d0; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #6ee7b7; margin-bottom: 0.5rem; }
  a { color: #fbbf24; text-decoration: none; }
  a:hover { text-decoration: underline; }
  ul { list-style: none; }
  li { margin-bottom: 0.35rem; }
  pre { background: #052e16; border: 1px solid #166534; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; color: #ecfdf5; }
  code { font-family: "SF Mono", "Fira Code", "Fira Mono", Menlo, monospace; }
  .status { display: inline-block; width: 8px; height: 8px; background: #4ade80; border-radius: 50%; margin-right: 0.5rem; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #fde68a; }
  .tool { font-family: "SF Mono", monospace; color: #f0fdf4; }
</style>
</head>
<body>
<div class="card">
  <h1>Pakistan Law MCP Server</h1>
  <p class="subtitle">Question answering, section lookup and semantic search over Pakistani statutes via the Model Context Protocol.</p>

  <div class="section">
    <div class="section-title">Tools</div>
    <ul>
      <li><span class="tool">ask_law</span> &mdash; answer a legal question with citations</li>
      <li><span class="tool">lookup_section</span> &mdash; full text of a section or article by number</li>
      <li><span class="tool">search_passages</span> &mdash; semantic search over all statutes</li>
      <li><span class="tool">index_status</span> &mdash; chunk counts and last indexing time</li>
    </ul>
  </div>

  <div class="section">
    <div class="section-title">Add to an MCP client</div>
    <pre><code>claude mcp add pakistan-law --transport streamable-http http://localhost:8080/mcp</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="status"></span><a href="/mcp" class="endpoint">/mcp</a> &mdash; MCP Streamable HTTP</p>
    <p><span class="status"></span><a href="/health" class="endpoint">/health</a> &mdash; Health check</p>
  </div>

  <div class="section">
    <div class="section-title">Sources</div>
    <p>Indexed from the official consolidated statutes at <a href="https://pakistancode.gov.pk">pakistancode.gov.pk</a>. Not legal advice.</p>
  </div>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
