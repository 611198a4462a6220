package server

import (
	"html/template"
	"log/slog"
	"net/http"
)

// landingData is rendered into the landing page script.
type landingData struct {
	AuthPath  string
	NPPath    string
	SharePath string
}

// landingPage keeps the opaque token in localStorage, starts
// authorization when there is none and otherwise hands off to /share.
var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>npbtn</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    background: #f5f5f5;
    color: #1a1a1a;
    display: flex;
    align-items: center;
    justify-content: center;
    min-height: 100vh;
  }
  .card {
    background: #fff;
    border: 1px solid #e0e0e0;
    border-radius: 8px;
    padding: 2.5rem 2rem;
    width: 100%;
    max-width: 380px;
    text-align: center;
  }
  h1 { font-size: 1.25rem; font-weight: 600; margin-bottom: 1rem; }
  #status { font-size: 0.875rem; color: #666; }
  .error { color: #c62828; }
</style>
</head>
<body>
<div class="card">
  <h1>npbtn</h1>
  <p id="status">Checking what you are listening to...</p>
</div>
<script>
(function () {
  const storageKey = "NPBTN_TOKEN";
  const authPath = {{.AuthPath}};
  const npPath = {{.NPPath}};
  const sharePath = {{.SharePath}};
  const status = document.getElementById("status");

  const params = new URLSearchParams(window.location.search);
  const fresh = params.get("token");
  if (fresh) {
    localStorage.setItem(storageKey, fresh);
    window.location.replace(window.location.pathname);
    return;
  }

  const token = localStorage.getItem(storageKey);
  if (!token) {
    window.location.href = authPath;
    return;
  }

  const q = "?token=" + encodeURIComponent(token);
  fetch(npPath + q)
    .then(function (res) {
      if (res.status === 400 || res.status === 401) {
        localStorage.removeItem(storageKey);
        window.location.href = authPath;
        return null;
      }
      if (!res.ok) {
        throw new Error("status " + res.status);
      }
      return res.json().then(function (np) {
        if (np === null) {
          status.textContent = "Nothing is playing right now.";
          return;
        }
        window.location.href = sharePath + q;
      });
    })
    .catch(function (err) {
      status.className = "error";
      status.textContent = "Could not reach Spotify: " + err.message;
    });
})();
</script>
</body>
</html>
`))

// HandleLanding serves the landing page. Render failures happen after the
// status line is sent, so they are only logged.
func HandleLanding(logger *slog.Logger) http.HandlerFunc {
	data := landingData{
		AuthPath:  PathAuth,
		NPPath:    PathNP,
		SharePath: PathShare,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := landingPage.Execute(w, data); err != nil {
			logger.Debug("landing page write failed",
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.String("error", err.Error()),
			)
		}
	}
}
