package server

// DashboardHTML is the embedded single-page dashboard for admit.
// It follows admissions over the WebSocket and polls /api/status for
// per-limit window occupancy.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>admit dashboard</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, monospace;
    background: #0d1117; color: #c9d1d9; padding: 20px;
  }
  h1 { color: #58a6ff; margin-bottom: 4px; font-size: 1.5em; }
  .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 0.9em; }
  .status-bar {
    display: flex; gap: 20px; margin-bottom: 20px; padding: 12px 16px;
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
  }
  .status-item { display: flex; flex-direction: column; }
  .status-label { font-size: 0.75em; color: #8b949e; text-transform: uppercase; }
  .status-value { font-size: 1.1em; font-weight: 600; }
  .status-value.connected { color: #3fb950; }
  .status-value.disconnected { color: #f85149; }
  .stats {
    display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
    gap: 12px; margin-bottom: 20px;
  }
  .stat-card {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    padding: 16px; text-align: center;
  }
  .stat-number { font-size: 2em; font-weight: 700; }
  .stat-number.ok { color: #3fb950; }
  .stat-number.failed { color: #f85149; }
  .stat-number.total { color: #58a6ff; }
  .stat-number.delayed { color: #d29922; }
  .stat-number.wait { color: #d2a8ff; }
  .stat-label { font-size: 0.8em; color: #8b949e; margin-top: 4px; }
  .event-log {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    max-height: 500px; overflow-y: auto;
  }
  .event-header {
    padding: 12px 16px; border-bottom: 1px solid #30363d;
    font-weight: 600; color: #58a6ff; position: sticky; top: 0;
    background: #161b22; display: flex; justify-content: space-between;
  }
  .event-row {
    display: grid; grid-template-columns: 180px 120px 1fr 80px 100px;
    padding: 8px 16px; border-bottom: 1px solid #21262d;
    font-size: 0.85em; align-items: center;
    animation: fadeIn 0.3s ease;
  }
  .event-row:hover { background: #1c2128; }
  .badge {
    display: inline-block; padding: 2px 8px; border-radius: 12px;
    font-size: 0.75em; font-weight: 600;
  }
  .badge.ok { background: #23312e; color: #3fb950; }
  .badge.error { background: #3d1f20; color: #f85149; }
  .badge.canceled { background: #2d2a1f; color: #d29922; }
  .limits { margin-bottom: 20px; }
  .limit-row {
    display: grid; grid-template-columns: 140px 1fr 120px 110px;
    gap: 12px; padding: 6px 16px; align-items: center; font-size: 0.85em;
  }
  .limit-bar {
    height: 8px; background: #21262d; border-radius: 4px; overflow: hidden;
  }
  .remaining-fill {
    height: 100%; border-radius: 3px; transition: width 0.3s;
  }
  .remaining-fill.high { background: #3fb950; }
  .remaining-fill.mid { background: #d29922; }
  .remaining-fill.low { background: #f85149; }
  .empty-state {
    text-align: center; padding: 60px 20px; color: #8b949e;
  }
  .empty-state .icon { font-size: 3em; margin-bottom: 10px; }
  .key-cell { color: #d2a8ff; }
  .binding-cell { color: #c9d1d9; }
  .time-cell { color: #8b949e; }
  #clear-btn {
    background: #21262d; color: #c9d1d9; border: 1px solid #30363d;
    padding: 4px 12px; border-radius: 4px; cursor: pointer; font-size: 0.8em;
  }
  #clear-btn:hover { background: #30363d; }
  @keyframes fadeIn { from { opacity: 0; transform: translateY(-4px); } to { opacity: 1; transform: translateY(0); } }
</style>
</head>
<body>
<h1>admit dashboard</h1>
<p class="subtitle">Live multi-window admission viewer</p>

<div class="status-bar">
  <div class="status-item">
    <span class="status-label">Connection</span>
    <span class="status-value disconnected" id="conn-status">Disconnected</span>
  </div>
  <div class="status-item">
    <span class="status-label">Admissions/sec</span>
    <span class="status-value" id="events-per-sec">0</span>
  </div>
  <div class="status-item">
    <span class="status-label">Coordinator</span>
    <span class="status-value" id="coordinator">-</span>
  </div>
</div>

<div class="stats">
  <div class="stat-card">
    <div class="stat-number total" id="stat-total">0</div>
    <div class="stat-label">Calls</div>
  </div>
  <div class="stat-card">
    <div class="stat-number ok" id="stat-ok">0</div>
    <div class="stat-label">Succeeded</div>
  </div>
  <div class="stat-card">
    <div class="stat-number failed" id="stat-failed">0</div>
    <div class="stat-label">Failed / Canceled</div>
  </div>
  <div class="stat-card">
    <div class="stat-number delayed" id="stat-delayed">0</div>
    <div class="stat-label">Delayed</div>
  </div>
  <div class="stat-card">
    <div class="stat-number wait" id="stat-wait">0ms</div>
    <div class="stat-label">Max Wait</div>
  </div>
</div>

<div class="event-log limits">
  <div class="event-header"><span>Windows</span></div>
  <div id="limits"></div>
</div>

<div class="event-log">
  <div class="event-header">
    <span>Live Admissions</span>
    <button id="clear-btn" onclick="clearEvents()">Clear</button>
  </div>
  <div id="events">
    <div class="empty-state">
      <div class="icon">&#9201;</div>
      <p>Waiting for admissions...</p>
      <p style="margin-top:8px;font-size:0.85em">Send requests to /api/execute/{arg} to see them here</p>
    </div>
  </div>
</div>

<script>
let total = 0, ok = 0, failed = 0, delayed = 0, maxWait = 0;
let recentTimestamps = [];
const eventsDiv = document.getElementById('events');
const limitsDiv = document.getElementById('limits');
const MAX_EVENTS = 200;

function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws');

  ws.onopen = () => {
    document.getElementById('conn-status').textContent = 'Connected';
    document.getElementById('conn-status').className = 'status-value connected';
  };

  ws.onclose = () => {
    document.getElementById('conn-status').textContent = 'Disconnected';
    document.getElementById('conn-status').className = 'status-value disconnected';
    setTimeout(connect, 2000);
  };

  ws.onmessage = (e) => {
    addEvent(JSON.parse(e.data));
  };
}

function addEvent(rec) {
  const empty = eventsDiv.querySelector('.empty-state');
  if (empty) empty.remove();

  const waitMs = rec.wait / 1e6;
  total++;
  if (rec.outcome === 'ok') ok++;
  else failed++;
  if (rec.binding) delayed++;
  if (waitMs > maxWait) maxWait = waitMs;

  const now = Date.now();
  if (rec.outcome !== 'canceled') recentTimestamps.push(now);
  recentTimestamps = recentTimestamps.filter(t => now - t < 1000);

  updateStats();

  const row = document.createElement('div');
  row.className = 'event-row';

  const at = rec.admitted_at || rec.requested_at;
  const time = new Date(at).toLocaleTimeString('en-US', {hour12: false, hour:'2-digit', minute:'2-digit', second:'2-digit', fractionalSecondDigits: 3});
  const badge = '<span class="badge ' + rec.outcome + '">' + rec.outcome.toUpperCase() + '</span>';

  row.innerHTML =
    '<span class="time-cell">' + time + '</span>' +
    '<span class="key-cell">' + escHtml(rec.arg || '') + '</span>' +
    '<span class="binding-cell">' + (rec.binding ? 'held by ' + escHtml(rec.binding) : 'immediate') + '</span>' +
    '<span>' + badge + '</span>' +
    '<span>' + waitMs.toFixed(1) + 'ms / ' + rec.rounds + 'r</span>';

  eventsDiv.insertBefore(row, eventsDiv.firstChild);

  while (eventsDiv.children.length > MAX_EVENTS) {
    eventsDiv.removeChild(eventsDiv.lastChild);
  }
}

function updateStats() {
  document.getElementById('stat-total').textContent = total;
  document.getElementById('stat-ok').textContent = ok;
  document.getElementById('stat-failed').textContent = failed;
  document.getElementById('stat-delayed').textContent = delayed;
  document.getElementById('stat-wait').textContent = maxWait.toFixed(0) + 'ms';
  document.getElementById('events-per-sec').textContent = recentTimestamps.length;
}

async function pollStatus() {
  try {
    const resp = await fetch('/api/status');
    const status = await resp.json();
    document.getElementById('coordinator').textContent = status.coordinator || '-';
    limitsDiv.innerHTML = '';
    for (const l of status.limits) {
      const pct = l.max > 0 ? (l.in_window / l.max) * 100 : 0;
      const fillClass = pct < 50 ? 'high' : pct < 80 ? 'mid' : 'low';
      const row = document.createElement('div');
      row.className = 'limit-row';
      row.innerHTML =
        '<span class="key-cell">' + escHtml(l.limit) + '</span>' +
        '<span class="limit-bar"><span class="remaining-fill ' + fillClass + '" style="display:block;width:' + pct + '%"></span></span>' +
        '<span>' + l.in_window + ' / ' + l.max + '</span>' +
        '<span class="time-cell">' + (l.delay_ms > 0 ? 'next in ' + l.delay_ms.toFixed(0) + 'ms' : 'open') + '</span>';
      limitsDiv.appendChild(row);
    }
  } catch (e) {
    // Server restarting; try again on the next tick.
  }
}

function clearEvents() {
  total = 0; ok = 0; failed = 0; delayed = 0; maxWait = 0; recentTimestamps = [];
  eventsDiv.innerHTML = '<div class="empty-state"><div class="icon">&#9201;</div><p>Waiting for admissions...</p></div>';
  updateStats();
}

function escHtml(s) {
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

connect();
pollStatus();
setInterval(pollStatus, 1000);
</script>
</body>
</html>`
