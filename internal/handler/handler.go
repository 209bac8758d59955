// Package handler runs the instance and bucket passes as one invocation and
// turns the outcome into an HTTP-style response.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/warden/internal/emitter"
	awsprovider "github.com/yairfalse/warden/internal/provider/aws"
	"github.com/yairfalse/warden/internal/telemetry"
	"github.com/yairfalse/warden/pkg/resource"
)

const errorPrefix = "Unexpected error has occurred. "

// ErrPanic marks an error recovered from a panicking pass.
var ErrPanic = errors.New("panic")

// Pass is one unit of work in an invocation.
type Pass interface {
	Name() string
	Run(ctx context.Context) (resource.PassResult, error)
}

// Response is the invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Lambda converts the response to its API Gateway form.
func (r Response) Lambda() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Body:       r.Body,
	}
}

// Handler runs passes in order.
type Handler struct {
	passes  []Pass
	emitter emitter.Emitter
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithEmitter sets where pass results are sent.
func WithEmitter(e emitter.Emitter) Option {
	return func(h *Handler) { h.emitter = e }
}

// WithTracer sets the tracer used for invocation and pass spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler running passes in the given order.
func New(passes []Pass, opts ...Option) *Handler {
	h := &Handler{
		passes:  passes,
		emitter: emitter.Nop{},
		tracer:  otel.Tracer("github.com/yairfalse/warden/internal/handler"),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs every pass. A pass error or panic stops the invocation and
// yields a 500 whose body carries the error. Exactly one final line is
// logged per call.
func (h *Handler) Handle(ctx context.Context) (resp Response) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "warden.invoke")

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			resp = failure(err)
		}
		h.finish(ctx, resp, err, time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	statuses := make([]string, 0, len(h.passes))
	for _, p := range h.passes {
		var result resource.PassResult
		result, err = h.run(ctx, p)
		if err != nil {
			return failure(err)
		}
		statuses = append(statuses, result.Status)
	}

	return success(strings.Join(statuses, " "))
}

// HandleLambda is the Lambda entry point. The event payload is ignored and
// the error is always nil; failures are reported in the response.
func (h *Handler) HandleLambda(ctx context.Context, _ json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return h.Handle(ctx).Lambda(), nil
}

func (h *Handler) run(ctx context.Context, p Pass) (result resource.PassResult, err error) {
	ctx, span := h.tracer.Start(ctx, "warden.pass", trace.WithAttributes(attribute.String("pass", p.Name())))
	defer func() { telemetry.EndSpan(span, err) }()

	result, err = p.Run(ctx)
	if result.Pass == "" {
		result.Pass = p.Name()
	}
	result.Error = err

	span.SetAttributes(
		attribute.Int("outcomes", len(result.Outcomes)),
		attribute.String("status", result.Status),
	)

	if emitErr := h.emitter.Emit(ctx, result); emitErr != nil {
		h.logger.Warn().Ctx(ctx).Err(emitErr).Str("pass", p.Name()).Msg("failed to emit pass result")
	}

	return result, err
}

func (h *Handler) finish(ctx context.Context, resp Response, err error, d time.Duration) {
	if err != nil {
		kind := awsprovider.KindOf(err)
		if errors.Is(err, ErrPanic) {
			kind = "panic"
		}
		h.logger.Error().
			Ctx(ctx).
			Err(err).
			Str("error.kind", kind).
			Int("status_code", resp.StatusCode).
			Dur("duration", d).
			Msg("invocation failed")
		return
	}

	h.logger.Info().
		Ctx(ctx).
		Int("status_code", resp.StatusCode).
		Str("body", resp.Body).
		Dur("duration", d).
		Msg("invocation finished")
}

func success(message string) Response {
	return Response{StatusCode: http.StatusOK, Body: encode(message)}
}

func failure(err error) Response {
	return Response{StatusCode: http.StatusInternalServerError, Body: encode(errorPrefix + err.Error())}
}

func encode(message string) string {
	// a string always marshals
	b, _ := json.Marshal(message)
	return string(b)
}

// disabledPass reports a fixed status and calls nothing.
type disabledPass struct {
	name   string
	status string
}

// Disabled returns a pass that only reports status.
func Disabled(name, status string) Pass {
	return disabledPass{name: name, status: status}
}

func (p disabledPass) Name() string { return p.name }

func (p disabledPass) Run(context.Context) (resource.PassResult, error) {
	return resource.PassResult{Pass: p.name, Status: p.status}, nil
}
