package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>CT실 지식 베이스</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Apple SD Gothic Neo", "Malgun Gothic", sans-serif; background: #f1f5f9; color: #0f172a; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 620px; width: 90%; background: #ffffff; border-radius: 12px; padding: 2.5rem; box-shadow: 0 20px 40px rgba(15,23,42,0.12); }
  h1 { font-size: 1.6rem; margin-bottom: 0.5rem; }
  .subtitle { color: #475569; margin-bottom: 1.75rem; line-height: 1.6; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #0369a1; text-decoration: none; }
  a:hover { text-decoration: underline; }
  ul { list-style: none; line-height: 1.9; }
  code { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; color: #4338ca; }
  .status { display: inline-block; width: 8px; height: 8px; background: #22c55e; border-radius: 50%; margin-right: 0.5rem; }
</style>
</head>
<body>
<div class="card">
  <h1>🏥 CT실 지식 베이스</h1>
  <p class="subtitle">CT실 직원을 위한 프로토콜, 안전수칙, 장비운용, 응급상황 지식 검색 서버입니다. MCP 클라이언트에서 질문하고 검색할 수 있습니다.</p>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="status"></span><a href="/mcp"><code>/mcp</code></a> &mdash; MCP Streamable HTTP</p>
    <p><span class="status"></span><a href="/health"><code>/health</code></a> &mdash; Health check</p>
  </div>

  <div class="section">
    <div class="section-title">Tools</div>
    <ul>
      <li><code>search_knowledge</code> 지식 검색</li>
      <li><code>ask_question</code> 말하듯 질문하기</li>
      <li><code>list_knowledge</code> / <code>get_knowledge</code> 목록과 본문</li>
      <li><code>add_knowledge</code> / <code>update_knowledge</code> / <code>delete_knowledge</code> 편집 (보안 코드 필요)</li>
      <li><code>backup_knowledge</code> / <code>restore_knowledge</code> GitHub 백업과 복원</li>
    </ul>
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
