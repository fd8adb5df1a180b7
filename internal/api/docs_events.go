package api

const eventsDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Stream - lwcharts</title>
  <style>
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px; line-height: 1.65; background: #0d1117; color: #c9d1d9; }
    nav { background: #161b22; border-bottom: 1px solid #30363d; padding: 0 24px; height: 48px;
      display: flex; align-items: center; gap: 24px; }
    nav .brand { font-weight: 600; font-size: 15px; color: #e6edf3; }
    a { color: #58a6ff; text-decoration: none; }
    main { max-width: 880px; padding: 24px 32px; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 12.5px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px 16px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #30363d; padding: 6px 10px; text-align: left; }
    th { background: #161b22; }
  </style>
</head>
<body>
  <nav><span class="brand">lwcharts</span><a href="/docs">REST API</a></nav>
  <main>
    <h1>Event stream</h1>
    <p>Every message the chart view sends to the host is published on a server-sent event stream.
    Each event names its feed and carries one JSON record.</p>
    <pre>GET /api/v1/events?feeds=drawing,measure&amp;handlers=measure_</pre>
    <table>
      <tr><th>Query</th><th>Meaning</th></tr>
      <tr><td><code>feeds</code></td><td>Comma-separated feed names. Omit for all feeds.</td></tr>
      <tr><td><code>handlers</code></td><td>Comma-separated handler id prefixes. Omit for all handlers.</td></tr>
    </table>
    <h2>Default feeds</h2>
    <table>
      <tr><th>Feed</th><th>Handler ids</th><th>Payload</th></tr>
      <tr><td><code>drawing</code></td><td><code>drawing_*</code></td><td>Price for horizontal lines, otherwise <code>[{time,price}]</code></td></tr>
      <tr><td><code>measure</code></td><td><code>measure_*</code></td><td><code>&lt;type&gt;_~_&lt;points&gt;</code></td></tr>
      <tr><td><code>toolbox</code></td><td><code>save_drawings*</code></td><td>Full drawing set of the chart</td></tr>
      <tr><td><code>topbar</code></td><td><code>chart_*</code></td><td>New textbox value or selected switcher option</td></tr>
      <tr><td><code>bridge</code></td><td>anything else</td><td>Raw payload, including unhandled messages</td></tr>
    </table>
    <h2>Record</h2>
    <pre>event: drawing
data: {"feed":"drawing","handler_id":"drawing_3f2a","payload":"101.5","handled":true,"received":"2026-01-02T15:04:05Z"}</pre>
    <p>Slow clients lose events rather than stall the view. Feeds are configured with a YAML file
    passed to <code>lwcharts serve --relay-config</code>.</p>
  </main>
</body>
</html>`
