package auth

import (
	"html/template"
)

const loginHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
  <main>
    <h1>Sign in</h1>
    {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
    <form method="post" action="/.login">
      <input type="hidden" name="return_to" value="{{.ReturnTo}}">
      <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
      <label>Password <input type="password" name="password" required></label>
      <button type="submit">Sign in</button>
    </form>
  </main>
</body>
</html>`

const consentHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Authorize {{.ClientName}}</title></head>
<body>
  <main>
    <h1>Authorize {{.ClientName}}</h1>
    <p>{{.ClientName}} wants to access your site with these permissions:</p>
    <ul>{{range .Scopes}}<li>{{.}}</li>{{end}}</ul>
    <p>After approval you will be redirected to <code>{{.RedirectURI}}</code>.</p>
    {{if .Tokens}}
    <form method="post" action="/.oauth/authorize">
      <input type="hidden" name="client_id" value="{{.ClientID}}">
      <input type="hidden" name="redirect_uri" value="{{.RequestedRedirectURI}}">
      <input type="hidden" name="response_type" value="{{.ResponseType}}">
      <input type="hidden" name="scope" value="{{.Scope}}">
      <input type="hidden" name="state" value="{{.State}}">
      <input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
      <input type="hidden" name="code_challenge_method" value="{{.CodeChallengeMethod}}">
      <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
      <label>Token
        <select name="mcp_token_id">
          {{range .Tokens}}<option value="{{.ID}}">{{.Name}} (site {{.SiteID}})</option>{{end}}
        </select>
      </label>
      <button type="submit" name="action" value="approve">Approve</button>
      <button type="submit" name="action" value="deny">Deny</button>
    </form>
    {{else}}
    <p>You have no MCP tokens yet. Create one under <a href="/.admin/mcp-tokens">MCP tokens</a> and reload this page.</p>
    {{end}}
  </main>
</body>
</html>`

// Templates returns the HTML templates of the login and consent pages, for
// gin's SetHTMLTemplate.
func Templates() *template.Template {
	t := template.Must(template.New("login.html").Parse(loginHTML))
	template.Must(t.New("consent.html").Parse(consentHTML))
	return t
}
