// Package a2a exposes report generation as an A2A agent over JSON-RPC.
package a2a

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/logging"
	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/score"
)

//go:embed agent.json
var agentCard []byte

// Analyzer produces a report for an input.
type Analyzer interface {
	Analyze(ctx context.Context, in models.AnalysisInput) (*models.ReachReport, error)
}

type Handler struct {
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(analyzer Analyzer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{analyzer: analyzer, logger: logger, now: time.Now}
}

// ServeAgentCard serves the embedded agent card.
func (h *Handler) ServeAgentCard(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", agentCard)
}

// Handle processes one JSON-RPC call. Protocol errors are JSON-RPC errors;
// analysis failures are failed tasks.
func (h *Handler) Handle(c *gin.Context) {
	log := logging.For(c.Request.Context(), h.logger)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("a2a: unparseable request", zap.Error(err))
		h.sendError(c, nil, CodeParseError, "Parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, CodeInvalidRequest, "Invalid JSON-RPC version")
		return
	}

	switch req.Method {
	case "message/send", "agent/task":
	default:
		h.sendError(c, req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
		return
	}

	var params MessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.sendError(c, req.ID, CodeInvalidParams, "Invalid parameters")
		return
	}

	taskID := params.Message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	in, ok := ExtractInput(params.Message)
	if !ok {
		h.sendResult(c, req.ID, h.failedTask(taskID, params.Message.ContextID,
			"Send a product URL, optionally followed by a short description, e.g. \"https://example.com invoicing for freelancers\"."))
		return
	}

	log.Info("a2a: analyzing", zap.String("url", in.URL), zap.String("method", req.Method))
	report, err := h.analyzer.Analyze(c.Request.Context(), in)
	if err != nil {
		log.Warn("a2a: analysis failed", zap.String("url", in.URL), zap.Error(err))
		h.sendResult(c, req.ID, h.failedTask(taskID, params.Message.ContextID, "Analysis failed: "+err.Error()))
		return
	}
	h.sendResult(c, req.ID, h.completedTask(taskID, params.Message.ContextID, in, report))
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractInput takes the first URL in the message text as the product URL
// and the remaining text as its description. Text parts win; when there are
// none the most recent user text in a data part (conversation history) is
// used.
func ExtractInput(msg A2AMessage) (models.AnalysisInput, bool) {
	text := messageText(msg)
	loc := urlPattern.FindStringIndex(text)
	if loc == nil {
		return models.AnalysisInput{}, false
	}
	url := strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)")
	desc := strings.Join(strings.Fields(text[:loc[0]]+" "+text[loc[1]:]), " ")
	return models.AnalysisInput{URL: url, Description: desc}, true
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func messageText(msg A2AMessage) string {
	var texts []string
	for _, p := range msg.Parts {
		if p.Kind == "text" && strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) > 0 {
		return strings.TrimSpace(tagPattern.ReplaceAllString(strings.Join(texts, " "), " "))
	}

	for _, p := range msg.Parts {
		if p.Kind != "data" || p.Data == nil {
			continue
		}
		raw, err := json.Marshal(p.Data)
		if err != nil {
			continue
		}
		var history []MessagePart
		if err := json.Unmarshal(raw, &history); err != nil {
			continue
		}
		for i := len(history) - 1; i >= 0; i-- {
			t := strings.TrimSpace(tagPattern.ReplaceAllString(history[i].Text, " "))
			if history[i].Kind == "text" && urlPattern.MatchString(t) {
				return t
			}
		}
	}
	return ""
}

func (h *Handler) completedTask(taskID, contextID string, in models.AnalysisInput, report *models.ReachReport) TaskResult {
	summary := FormatReport(in, report)
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(h.now()),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(summary)},
			},
		},
		Artifacts: []Artifact{
			{ArtifactID: uuid.NewString(), Name: "Reach report summary", Parts: []MessagePart{TextPart(summary)}},
			{ArtifactID: uuid.NewString(), Name: "Reach report", Parts: []MessagePart{DataPart(report)}},
		},
	}
}

func (h *Handler) failedTask(taskID, contextID, msg string) TaskResult {
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateFailed,
			Timestamp: Timestamp(h.now()),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(msg)},
			},
		},
	}
}

// FormatReport renders the markdown summary sent back to the calling agent.
func FormatReport(in models.AnalysisInput, r *models.ReachReport) string {
	var b strings.Builder
	ps := score.Compute(r)

	fmt.Fprintf(&b, "# Reach report for %s\n\n", in.URL)
	fmt.Fprintf(&b, "**Precision score:** %d/100 (%s)\n\n", ps.Score, ps.Tier)

	p := r.Persona
	if p.Title != "" {
		fmt.Fprintf(&b, "## Persona: %s\n", p.Title)
		if p.Description != "" {
			fmt.Fprintf(&b, "%s\n", p.Description)
		}
		if len(p.PainPoints) > 0 {
			b.WriteString("\n**Pain points:**\n")
			for _, pp := range p.PainPoints {
				fmt.Fprintf(&b, "- %s\n", pp)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Platforms) > 0 {
		b.WriteString("## Where to find them\n")
		for i, pl := range r.Platforms {
			names := make([]string, 0, len(pl.Communities))
			for _, cm := range pl.Communities {
				names = append(names, cm.Name)
			}
			fmt.Fprintf(&b, "%d. **%s** (intent: %s)", i+1, pl.Name, orDash(string(pl.ConversionIntent)))
			if len(names) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(names, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if kc := r.Advanced.KeywordClusters; len(kc) > 0 {
		fmt.Fprintf(&b, "**Keywords:** %s\n", strings.Join(kc, ", "))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (h *Handler) sendResult(c *gin.Context, id any, result TaskResult) {
	c.JSON(http.StatusOK, JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

// JSON-RPC errors are sent with 200 OK.
func (h *Handler) sendError(c *gin.Context, id any, code int, message string) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
