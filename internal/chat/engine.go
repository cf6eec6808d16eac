// Package chat implements the per-session conversation engine: one reply per
// utterance, pending-prompt handling, and conversation stack bookkeeping.
package chat

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/garyellow/school-records-go/internal/conversation"
	"github.com/garyellow/school-records-go/internal/ctxutil"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/intent"
	"github.com/garyellow/school-records-go/internal/logger"
	"github.com/garyellow/school-records-go/internal/metrics"
	"github.com/garyellow/school-records-go/internal/modules/alumnos"
	"github.com/garyellow/school-records-go/internal/preview"
	"github.com/garyellow/school-records-go/internal/ratelimit"
	"github.com/garyellow/school-records-go/internal/sentry"
	"github.com/garyellow/school-records-go/internal/sqltemplate"
	"github.com/garyellow/school-records-go/internal/storage"
	"github.com/garyellow/school-records-go/internal/stringutil"
)

// DefaultStackCapacity is the number of turns a session remembers.
const DefaultStackCapacity = 10

// Response is the single reply to one utterance.
type Response struct {
	Text               string      `json:"text"`
	Data               storage.Row `json:"data,omitempty"`
	Action             string      `json:"action,omitempty"`
	FilePath           string      `json:"file_path,omitempty"`
	NeedsConfirmation  bool        `json:"needs_confirmation,omitempty"`
	ConfirmationPrompt string      `json:"confirmation_prompt,omitempty"`
}

// Detector classifies an utterance against the conversation stack.
type Detector interface {
	Detect(ctx context.Context, utterance string, stack *conversation.Stack) *intent.Intent
}

// Router serves student intents and resumes selections.
type Router interface {
	DispatchIntent(ctx context.Context, in *intent.Intent, env alumnos.Env) alumnos.Outcome
	Select(ctx context.Context, sel *alumnos.Selection, row storage.Row) alumnos.Outcome
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Detector      Detector
	Router        Router
	Preview       *preview.Machine
	Quota         *ratelimit.Quota      // Optional
	Registry      *sqltemplate.Registry // Used for help replies
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	StackCapacity int
}

// Engine is one chat session. Turns are serialized: a second ProcessMessage
// waits for the first to return.
type Engine struct {
	mu sync.Mutex

	id       string
	detector Detector
	router   Router
	preview  *preview.Machine
	quota    *ratelimit.Quota
	registry *sqltemplate.Registry
	logger   *logger.Logger
	metrics  *metrics.Metrics
	stack    *conversation.Stack

	// At most one prompt is open between turns: one of these or a pending
	// preview in the machine.
	pendingFileOpen  string
	pendingSelection *alumnos.Selection
	selectionPrompt  string

	loadedPDF string
}

// NewEngine creates a session engine.
func NewEngine(id string, deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.StackCapacity <= 0 {
		deps.StackCapacity = DefaultStackCapacity
	}
	return &Engine{
		id:       id,
		detector: deps.Detector,
		router:   deps.Router,
		preview:  deps.Preview,
		quota:    deps.Quota,
		registry: deps.Registry,
		logger:   deps.Logger.WithModule("chat"),
		metrics:  deps.Metrics,
		stack:    conversation.NewStack(deps.StackCapacity),
	}
}

// ID returns the session id.
func (e *Engine) ID() string {
	return e.id
}

// Stack returns a snapshot of the conversation turns, oldest first.
func (e *Engine) Stack() []conversation.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.Top(0)
}

// turn collects what one ProcessMessage call produced.
type turn struct {
	kind   string
	status string
}

// ProcessMessage handles one utterance. It never panics and always returns
// exactly one Response; at most one turn is pushed onto the stack.
func (e *Engine) ProcessMessage(ctx context.Context, text string) (resp Response) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = ctxutil.WithSessionID(ctx, e.id)
	start := time.Now()
	t := &turn{kind: "unknown", status: "success"}

	defer func() {
		if r := recover(); r != nil {
			sentry.CapturePanic(ctx, r)
			e.logger.ErrorContext(ctx, "panic while processing message", slog.Any("panic", r))
			resp = Response{Text: domerrors.DefaultMessage(domerrors.KindInternal)}
			t.status = "panic"
		}
		e.metrics.RecordChatTurn(t.kind, t.status, time.Since(start).Seconds())
	}()

	text = stringutil.NormalizeWhitespace(text)
	if text == "" {
		t.kind, t.status = "empty", "rejected"
		return Response{Text: domerrors.DefaultMessage(domerrors.KindInvalidInput)}
	}

	if r, ok := e.handlePending(ctx, text, t); ok {
		return r
	}

	if e.quota != nil && !e.quota.Allow(e.id) {
		t.kind, t.status = "rate_limited", "rejected"
		return Response{Text: domerrors.DefaultMessage(domerrors.KindRateLimited)}
	}

	in := e.detector.Detect(ctx, text, e.stack)
	t.kind = string(in.Kind)
	return e.route(ctx, text, in, t)
}

func (e *Engine) route(ctx context.Context, text string, in *intent.Intent, t *turn) Response {
	switch in.Kind {
	case intent.KindAclaracion:
		t.status = "clarification"
		return Response{Text: in.ClarificationQuestion, Action: "aclaracion"}

	case intent.KindConversacionGeneral:
		if in.Failure != "" {
			t.status = "failed"
			return Response{Text: in.Reply}
		}
		e.push(text, nil, conversation.AwaitingNone)
		return Response{Text: generalReply(in.SubKind), Action: string(in.SubKind)}

	case intent.KindAyudaSistema:
		e.push(text, nil, conversation.AwaitingNone)
		return Response{Text: helpReply(in.SubKind, e.registry), Action: string(in.SubKind)}

	case intent.KindConsultaAlumnos, intent.KindTransformacionPDF:
		out := e.router.DispatchIntent(ctx, in, alumnos.Env{Utterance: text, LoadedPDF: e.loadedPDF})
		return e.apply(ctx, text, out, t)

	default:
		t.status = "failed"
		return Response{Text: intent.DefaultClarification}
	}
}

// apply turns a router outcome into a Response, opening any slot it asks for.
// Failed outcomes are never pushed.
func (e *Engine) apply(ctx context.Context, text string, out alumnos.Outcome, t *turn) Response {
	if out.Failure != "" {
		t.status = "failed"
		e.logger.DebugContext(ctx, "router failure", slog.String("kind", string(out.Failure)))
		return Response{Text: out.Text, Action: out.Action}
	}

	resp := Response{Text: out.Text, Data: out.Data, Action: out.Action, FilePath: out.FilePath}
	switch {
	case out.Preview != nil:
		if err := e.preview.Begin(*out.Preview); err != nil {
			t.status = "failed"
			return Response{Text: domerrors.UserMessage(err)}
		}
		resp.NeedsConfirmation = true
		resp.ConfirmationPrompt = preview.PromptText
	case out.Selection != nil:
		e.pendingSelection = out.Selection
		e.selectionPrompt = out.Text
		resp.NeedsConfirmation = true
		resp.ConfirmationPrompt = out.Text
	}

	e.push(text, out.Rows, out.Awaiting)
	return resp
}

// handlePending interprets text as a reply to an open prompt. ok is false
// when no prompt is open.
func (e *Engine) handlePending(ctx context.Context, text string, t *turn) (Response, bool) {
	switch {
	case e.hasPreview():
		t.kind = "preview_reply"
		return e.previewReply(ctx, text, t), true
	case e.pendingFileOpen != "":
		t.kind = "file_open_reply"
		return e.fileOpenReply(ctx, text, t), true
	case e.pendingSelection != nil:
		t.kind = "selection_reply"
		return e.selectionReply(ctx, text, t), true
	}
	return Response{}, false
}

func (e *Engine) hasPreview() bool {
	if e.preview == nil {
		return false
	}
	_, ok := e.preview.Pending()
	return ok
}

func (e *Engine) previewReply(ctx context.Context, text string, t *turn) Response {
	opt, ok := preview.ParseOption(text)
	if !ok {
		t.status = "reprompt"
		return Response{
			Text:               "Elige una opción del 1 al 4.\n\n" + preview.PromptText,
			NeedsConfirmation:  true,
			ConfirmationPrompt: preview.PromptText,
		}
	}

	out, err := e.preview.Decide(ctx, opt)
	action := "constancia_" + opt.String()
	if err != nil {
		t.status = "failed"
		e.logger.WithError(err).WarnContext(ctx, "preview decision failed", slog.String("option", opt.String()))
		msg := out.Text
		if msg == "" {
			msg = domerrors.UserMessage(err)
		}
		return Response{Text: msg, Action: action}
	}

	var rows []storage.Row
	if _, ok := out.Data.ID(); ok {
		rows = []storage.Row{out.Data}
	}
	resp := Response{Text: out.Text, Data: out.Data, Action: action, FilePath: out.FilePath}
	awaiting := conversation.AwaitingNone
	if out.AskOpen {
		e.pendingFileOpen = out.FilePath
		awaiting = conversation.AwaitingConfirmation
		resp.NeedsConfirmation = true
		resp.ConfirmationPrompt = "¿Deseas abrir la constancia guardada? (sí/no)"
	}
	e.push(text, rows, awaiting)
	return resp
}

func (e *Engine) fileOpenReply(ctx context.Context, text string, t *turn) Response {
	yes, ok := preview.ParseConfirmation(text)
	if !ok {
		t.status = "reprompt"
		prompt := "¿Deseas abrir la constancia guardada? (sí/no)"
		return Response{Text: "Responde sí o no. " + prompt, NeedsConfirmation: true, ConfirmationPrompt: prompt}
	}

	path := e.pendingFileOpen
	e.pendingFileOpen = ""
	if !yes {
		e.push(text, nil, conversation.AwaitingNone)
		return Response{Text: "De acuerdo. La constancia quedó guardada en " + path + ".", FilePath: path, Action: "constancia_guardada"}
	}
	if err := e.preview.OpenFile(ctx, path); err != nil {
		t.status = "failed"
		return Response{Text: domerrors.UserMessage(err), FilePath: path}
	}
	e.push(text, nil, conversation.AwaitingNone)
	return Response{Text: "Abrí la constancia guardada.", FilePath: path, Action: "constancia_abierta"}
}

func (e *Engine) selectionReply(ctx context.Context, text string, t *turn) Response {
	sel := e.pendingSelection
	if alumnos.IsCancel(text) {
		e.clearSelection()
		t.status = "cancelled"
		return Response{Text: "De acuerdo, cancelé la selección.", Action: "seleccion_cancelada"}
	}

	row, ok := sel.Choose(text)
	if !ok {
		t.status = "reprompt"
		return Response{
			Text:               "No identifiqué a cuál alumno te refieres.\n\n" + e.selectionPrompt,
			NeedsConfirmation:  true,
			ConfirmationPrompt: e.selectionPrompt,
		}
	}

	e.clearSelection()
	return e.apply(ctx, text, e.router.Select(ctx, sel, row), t)
}

func (e *Engine) clearSelection() {
	e.pendingSelection = nil
	e.selectionPrompt = ""
}

func (e *Engine) push(text string, rows []storage.Row, awaiting conversation.Awaiting) {
	e.stack.Push(conversation.NewTurn(text, rows, awaiting))
}

// LoadPDF makes path the session's loaded PDF for transformacion_pdf.
func (e *Engine) LoadPDF(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domerrors.Wrap(err, domerrors.KindInvalidInput, "load_pdf", "No encontré el archivo "+path+".")
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return domerrors.New(domerrors.KindInvalidInput, "load_pdf", "El archivo debe ser un PDF.")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadedPDF = path
	e.logger.Info("pdf loaded", slog.String("session_id", e.id), slog.String("path", path))
	return nil
}

// LoadedPDF returns the loaded PDF path, if any.
func (e *Engine) LoadedPDF() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedPDF
}

// Close ends the session: pending prompts are dropped and every temporary
// preview file is deleted.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.preview != nil {
		e.preview.Close()
	}
	if e.quota != nil {
		e.quota.Forget(e.id)
	}
	e.pendingFileOpen = ""
	e.clearSelection()
	e.stack.Clear()
	e.logger.Debug("session closed", slog.String("session_id", e.id))
}
