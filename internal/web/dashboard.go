// Package web provides embedded dashboard HTML/CSS/JS
package web

import "github.com/gofiber/fiber/v2"

// handleDashboard serves the main dashboard HTML
func (s *Server) handleDashboard(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(dashboardHTML)
}

// handleDashboardJS serves the dashboard JavaScript
func (s *Server) handleDashboardJS(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript; charset=utf-8")
	return c.SendString(dashboardJS)
}

// handleDashboardCSS serves the dashboard CSS
func (s *Server) handleDashboardCSS(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	return c.SendString(dashboardCSS)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>⚔️ BotArena Dashboard</title>
    <link rel="stylesheet" href="/dashboard.css">
    <link href="https://fonts.googleapis.com/css2?family=JetBrains+Mono:wght@400;500;700&family=Inter:wght@400;500;600;700&display=swap" rel="stylesheet">
</head>
<body>
    <div class="app">
        <header class="header">
            <div class="logo">
                <span class="logo-icon">⚔️</span>
                <span class="logo-text">BotArena</span>
            </div>
            <span class="status-indicator" id="status-indicator">
                <span class="status-dot"></span>
                <span class="status-text">Idle</span>
            </span>
        </header>

        <main class="main">
            <section class="glass-card">
                <h2 class="section-title">Scoreboard</h2>
                <div class="stats-grid">
                    <div class="stat-card red">
                        <div class="stat-value" id="red-wins">0</div>
                        <div class="stat-label">Red Wins</div>
                    </div>
                    <div class="stat-card blue">
                        <div class="stat-value" id="blue-wins">0</div>
                        <div class="stat-label">Blue Wins</div>
                    </div>
                    <div class="stat-card">
                        <div class="stat-value" id="draws">0</div>
                        <div class="stat-label">Draws</div>
                    </div>
                    <div class="stat-card">
                        <div class="stat-value" id="fight-number">-</div>
                        <div class="stat-label">Fight</div>
                    </div>
                </div>
            </section>

            <section class="glass-card">
                <h2 class="section-title">Latest Round</h2>
                <div class="stats-grid">
                    <div class="stat-card">
                        <div class="stat-value" id="extraction">-</div>
                        <div class="stat-label">Bot Extraction</div>
                    </div>
                    <div class="stat-card">
                        <div class="stat-value" id="suppression">-</div>
                        <div class="stat-label">Bot Suppression</div>
                    </div>
                    <div class="stat-card">
                        <div class="stat-value" id="fpr">-</div>
                        <div class="stat-label">False Positives</div>
                    </div>
                    <div class="stat-card">
                        <div class="stat-value" id="human-success">-</div>
                        <div class="stat-label">Human Success</div>
                    </div>
                </div>
            </section>

            <section class="glass-card">
                <h2 class="section-title">Event Feed</h2>
                <ul class="event-feed" id="event-feed"></ul>
            </section>
        </main>
    </div>
    <script src="/dashboard.js"></script>
</body>
</html>`

const dashboardJS = `(function () {
    const feed = document.getElementById('event-feed');
    const statusText = document.querySelector('.status-text');
    const statusDot = document.querySelector('.status-dot');

    const tally = { red: 0, blue: 0, draw: 0 };

    function pct(v) {
        return (v * 100).toFixed(1) + '%';
    }

    function setText(id, text) {
        document.getElementById(id).textContent = text;
    }

    function addEvent(text, cls) {
        const li = document.createElement('li');
        li.textContent = text;
        if (cls) li.classList.add(cls);
        feed.prepend(li);
        while (feed.children.length > 50) feed.removeChild(feed.lastChild);
    }

    function applyMetrics(m) {
        setText('extraction', pct(m.botExtractionRate));
        setText('suppression', pct(m.botSuppressionRate));
        setText('fpr', pct(m.falsePositiveRate));
        setText('human-success', pct(m.humanSuccessRate));
    }

    function applyTally() {
        setText('red-wins', tally.red);
        setText('blue-wins', tally.blue);
        setText('draws', tally.draw);
    }

    function applyState(state) {
        setText('fight-number', state.currentFightNumber || '-');
        tally.red = 0; tally.blue = 0; tally.draw = 0;
        (state.reports || []).forEach(function (r) {
            tally[r.verdict.winner] = (tally[r.verdict.winner] || 0) + 1;
        });
        applyTally();
        const last = (state.reports || []).slice(-1)[0];
        if (last) applyMetrics(last.metrics);
    }

    function handle(msg) {
        switch (msg.type) {
            case 'state':
                applyState(msg.data);
                break;
            case 'fight_start':
                setText('fight-number', msg.data.fight);
                statusText.textContent = 'Running';
                statusDot.classList.add('live');
                addEvent('fight ' + msg.data.fight + ' started (' + msg.data.rounds + ' rounds)');
                break;
            case 'round_start':
                addEvent('round ' + msg.data.round + ' started');
                break;
            case 'verdict':
                tally[msg.data.winner] = (tally[msg.data.winner] || 0) + 1;
                applyTally();
                addEvent('winner: ' + msg.data.winner + ' — ' + msg.data.reason, msg.data.winner);
                break;
            case 'validation':
                addEvent(msg.data.side + ' proposal ' +
                    (msg.data.accepted ? 'accepted' : 'rejected') + ': ' + msg.data.reason,
                    msg.data.accepted ? 'accepted' : 'rejected');
                break;
            case 'round_done':
                applyMetrics(msg.data.metrics);
                break;
            case 'fight_done':
                statusText.textContent = 'Idle';
                statusDot.classList.remove('live');
                addEvent('fight ' + msg.data.fight + ' finished');
                break;
        }
    }

    function connect() {
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/ws');
        ws.onmessage = function (ev) {
            try { handle(JSON.parse(ev.data)); } catch (e) { /* ignore */ }
        };
        ws.onclose = function () {
            statusText.textContent = 'Disconnected';
            statusDot.classList.remove('live');
            setTimeout(connect, 2000);
        };
    }

    fetch('/api/state').then(function (r) { return r.json(); }).then(applyState);
    connect();
})();`

const dashboardCSS = `:root {
    --bg-dark: #0D0D0D;
    --bg-panel: #1A1A2E;
    --bg-header: #16213E;
    --text-primary: #E0E0E0;
    --text-dim: #666666;
    --cyan: #00FFFF;
    --green: #00FF00;
    --yellow: #FFFF00;
    --red: #FF0055;
    --blue: #3388FF;
}

* { margin: 0; padding: 0; box-sizing: border-box; }

body {
    font-family: 'Inter', 'Segoe UI', sans-serif;
    background: var(--bg-dark);
    color: var(--text-primary);
    min-height: 100vh;
}

.app { max-width: 1100px; margin: 0 auto; padding: 20px; }

.header {
    display: flex;
    justify-content: space-between;
    align-items: center;
    background: var(--bg-header);
    border: 1px solid var(--cyan);
    border-radius: 10px;
    padding: 16px 24px;
    margin-bottom: 20px;
}

.logo-text {
    font-size: 1.4em;
    font-weight: 700;
    color: var(--cyan);
    margin-left: 8px;
}

.status-indicator { display: flex; align-items: center; gap: 8px; color: var(--text-dim); }

.status-dot {
    width: 10px; height: 10px;
    border-radius: 50%;
    background: var(--text-dim);
}

.status-dot.live { background: var(--green); box-shadow: 0 0 8px var(--green); }

.glass-card {
    background: var(--bg-panel);
    border: 1px solid rgba(0, 255, 255, 0.25);
    border-radius: 10px;
    padding: 20px;
    margin-bottom: 20px;
}

.section-title { color: var(--cyan); font-size: 1.1em; margin-bottom: 16px; }

.stats-grid {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
    gap: 16px;
}

.stat-card {
    background: var(--bg-header);
    border: 1px solid rgba(0, 255, 255, 0.25);
    border-radius: 8px;
    padding: 16px;
    text-align: center;
}

.stat-card.red { border-color: var(--red); }
.stat-card.blue { border-color: var(--blue); }

.stat-value {
    font-family: 'JetBrains Mono', monospace;
    font-size: 1.8em;
    font-weight: 700;
    color: var(--cyan);
}

.stat-card.red .stat-value { color: var(--red); }
.stat-card.blue .stat-value { color: var(--blue); }

.stat-label { color: var(--text-dim); font-size: 0.85em; margin-top: 4px; }

.event-feed {
    list-style: none;
    font-family: 'JetBrains Mono', monospace;
    font-size: 0.85em;
    max-height: 320px;
    overflow-y: auto;
}

.event-feed li {
    padding: 6px 10px;
    border-left: 3px solid var(--text-dim);
    margin-bottom: 6px;
    background: rgba(0, 0, 0, 0.3);
}

.event-feed li.red { border-left-color: var(--red); }
.event-feed li.blue { border-left-color: var(--blue); }
.event-feed li.draw { border-left-color: var(--yellow); }
.event-feed li.accepted { border-left-color: var(--green); }
.event-feed li.rejected { border-left-color: var(--red); }`
