package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pixiboo/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"pressed": func(p bool) string {
		if p {
			return "pressed"
		}
		return "released"
	},
	"hex": func(a uint8) string { return fmt.Sprintf("0x%02x", a) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Pixiboo</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.pressed { color: green; font-weight: bold; }
.released { color: #888; }
.missing { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Pixiboo</h1>

<h2>Buttons</h2>
<table>
<tr><th>Left</th><td class="{{pressed (index .Buttons.Pressed 0)}}">{{pressed (index .Buttons.Pressed 0)}}</td></tr>
<tr><th>Center</th><td class="{{pressed (index .Buttons.Pressed 1)}}">{{pressed (index .Buttons.Pressed 1)}}</td></tr>
<tr><th>Right</th><td class="{{pressed (index .Buttons.Pressed 2)}}">{{pressed (index .Buttons.Pressed 2)}}</td></tr>
<tr><th>Delivery</th><td>{{if .Buttons.Interrupts}}interrupt{{else}}polled{{end}}</td></tr>
</table>

<h2>IMU</h2>
<table>
{{if .IMU.Present}}<tr><th>Device</th><td>{{.IMU.Kind}} at {{hex .IMU.Addr}}</td></tr>
<tr><th>Bus</th><td>{{.IMU.Bus}}</td></tr>
<tr><th>Shake threshold</th><td>{{.Config.ShakeThresholdMg}}mg</td></tr>
{{else}}<tr><th>Device</th><td class="missing">not present</td></tr>
{{if .IMU.Error}}<tr><th>Reason</th><td>{{.IMU.Error}}</td></tr>{{end}}
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Left</th><td>{{.Counts.Left}}</td></tr>
<tr><th>Center</th><td>{{.Counts.Center}}</td></tr>
<tr><th>Right</th><td>{{.Counts.Right}}</td></tr>
<tr><th>Shakes</th><td>{{.Counts.Shakes}}</td></tr>
{{if .Last}}<tr><th>Last</th><td>{{.Last.Type}}{{if .Last.Button}} {{.Last.Button}}{{end}} at {{.Last.Timestamp.UTC.Format "15:04:05"}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime method; the template needs a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
