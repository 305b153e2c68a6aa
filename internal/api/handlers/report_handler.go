package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/services"
	"github.com/yoockh/screencopilot/internal/utils"
)

var reportTmpl = template.Must(template.New("report").Parse(`<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<h2>Metadata</h2>
<pre>{{.Meta}}</pre>
{{range .Sections}}<h2>{{.Title}}</h2>
<ul>
{{range .Entries}}<li><strong>{{.Role}}</strong> [{{.When}}]: {{.Text}}</li>
{{else}}<li>(empty)</li>
{{end}}</ul>
{{end}}</body>
</html>
`))

type reportEntry struct {
	Role string
	When string
	Text string
}

type reportSection struct {
	Title   string
	Entries []reportEntry
}

type reportPage struct {
	Title    string
	Meta     string
	Sections []reportSection
}

func renderReport(p reportPage) (string, error) {
	var b bytes.Buffer
	if err := reportTmpl.Execute(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

func stampMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

type ReportHandler struct {
	sessions  *SessionHandler
	convos    services.ConversationService
	snapshots services.SnapshotService
}

// NewReportHandler accepts nil services; the session page then only
// renders what is available.
func NewReportHandler(sessions *SessionHandler, convos services.ConversationService, snapshots services.SnapshotService) *ReportHandler {
	return &ReportHandler{sessions: sessions, convos: convos, snapshots: snapshots}
}

type ReportLine struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts,omitempty"`
}

type SessionReportRequest struct {
	Transcript []ReportLine    `json:"transcript"`
	Chat       []ReportLine    `json:"chat"`
	Meta       json.RawMessage `json:"meta"`
}

// Build renders a client-supplied transcript and chat log as HTML.
func (h *ReportHandler) Build(c *gin.Context) {
	const op = "ReportHandler.Build"

	var req SessionReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	toEntries := func(lines []ReportLine) []reportEntry {
		out := make([]reportEntry, len(lines))
		for i, l := range lines {
			out[i] = reportEntry{Role: l.Role, When: stampMillis(l.TS), Text: l.Text}
		}
		return out
	}

	html, err := renderReport(reportPage{
		Title: "Realtime Copilot Session",
		Meta:  prettyJSON(req.Meta),
		Sections: []reportSection{
			{Title: "Transcript (system / worker)", Entries: toEntries(req.Transcript)},
			{Title: "User Chat", Entries: toEntries(req.Chat)},
		},
	})
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to render report", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": html})
}

// Session renders the stored journal and archived snapshots of a session.
func (h *ReportHandler) Session(c *gin.Context) {
	const op = "ReportHandler.Session"

	sess, ok := h.sessions.authorized(c, op)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	meta, _ := json.Marshal(sess)
	page := reportPage{Title: "Copilot session " + sess.SessionID, Meta: prettyJSON(meta)}

	if h.convos != nil {
		rows, err := h.convos.ListBySession(ctx, sess.SessionID, 1000)
		if err != nil {
			writeError(c, err)
			return
		}
		sec := reportSection{Title: "Conversation"}
		for _, r := range rows {
			sec.Entries = append(sec.Entries, reportEntry{
				Role: r.Role + " / " + r.Kind,
				When: r.Timestamp.UTC().Format(time.RFC3339),
				Text: r.Content,
			})
		}
		page.Sections = append(page.Sections, sec)
	}

	if h.snapshots != nil {
		rows, err := h.snapshots.ListBySession(ctx, sess.SessionID, 100)
		if err != nil {
			writeError(c, err)
			return
		}
		sec := reportSection{Title: "Snapshots"}
		for _, s := range rows {
			text := s.Summary
			if len(s.KeyItems) > 0 {
				text += " (" + strings.Join(s.KeyItems, "; ") + ")"
			}
			sec.Entries = append(sec.Entries, reportEntry{
				Role: s.ObjectPath,
				When: s.CapturedAt.UTC().Format(time.RFC3339),
				Text: text,
			})
		}
		page.Sections = append(page.Sections, sec)
	}

	html, err := renderReport(page)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to render report", err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func prettyJSON(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	var b bytes.Buffer
	if err := json.Indent(&b, raw, "", "  "); err != nil {
		return string(raw)
	}
	return b.String()
}
