package api

// docsHTML shares its nav bar with the event stream page. Section links
// jump to the first operation of each tag in the Elements sidebar.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>REST API - lwcharts</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { margin: 0; height: 100vh; display: flex; flex-direction: column; background: #0d1117;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
    nav { background: #161b22; border-bottom: 1px solid #30363d; padding: 0 24px; height: 48px; flex: none;
      display: flex; align-items: center; gap: 20px; font-size: 13px; }
    nav .brand { font-weight: 600; font-size: 15px; color: #e6edf3; margin-right: 8px; }
    nav a { color: #58a6ff; text-decoration: none; }
    nav .sep { flex: 1; }
    elements-api { flex: 1; min-height: 0; }
  </style>
</head>
<body>
  <nav>
    <span class="brand">lwcharts</span>
    <a href="#/operations/list-charts">Charts</a>
    <a href="#/operations/list-drawings">Drawings</a>
    <a href="#/operations/get-toolbox">Toolbox</a>
    <a href="#/operations/take-snapshot">Snapshots</a>
    <span class="sep"></span>
    <a href="/view/" target="_blank">Chart view</a>
    <a href="/docs/events">Event stream</a>
    <a href="/openapi.json">openapi.json</a>
  </nav>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    hideExport
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`
