// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch issues HTTP requests with bounded retries.
//
// A failure is retried when the attempt timed out or the server answered 500,
// 502 or 503. Connectivity failures (connection lost, host unreachable, DNS,
// no connectivity, resource unavailable) are retried only under an extended
// policy. A 401 and a missing connection without the extended policy are
// surfaced at once with a distinguished reason. Only the final failure leaves
// the dispatcher, as an *Error.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/metrics"
	"github.com/ManuGH/placecore/internal/resilience"
	"github.com/ManuGH/placecore/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Kind selects how the session id is obtained.
type Kind string

const (
	KindLayout      Kind = "layout"
	KindEvent       Kind = "event"
	KindDiagnostics Kind = "diagnostics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// SessionSource is the part of the session manager the dispatcher needs.
type SessionSource interface {
	SessionIDForRequest(ctx context.Context) (string, bool, error)
	SessionIDWithoutExpiring(ctx context.Context) (string, bool, error)
	UpdateSessionID(ctx context.Context, id *string) error
	SetSessionDuration(ctx context.Context, d time.Duration) error
	MarkFetchSucceeded(ctx context.Context) error
}

// Request is one logical request. Policy nil selects the dispatcher default.
type Request struct {
	URL    string
	Method string
	Body   []byte
	Header http.Header
	Kind   Kind
	Policy *RetryPolicy
}

// Response is a successful (2xx) answer.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Attempts int
}

// Options configures a Dispatcher.
type Options struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	// Policy nil selects DefaultRetryPolicy.
	Policy         *RetryPolicy
	RateLimit      rate.Limit
	RateLimitBurst int
	Headers        HeaderConfig
	Session        SessionSource

	// BreakerThreshold > 0 enables a circuit breaker that opens after that
	// many consecutive logical requests ended in an upstream failure. An open
	// breaker rejects new requests; retries of an admitted request are never
	// cut short.
	BreakerThreshold    int
	BreakerResetTimeout time.Duration

	Logger *zerolog.Logger
}

// Dispatcher sends requests. It is safe for concurrent use.
type Dispatcher struct {
	client  *http.Client
	policy  RetryPolicy
	limiter *rate.Limiter
	headers HeaderConfig
	locale  string
	session SessionSource
	breaker *resilience.CircuitBreaker
	jitter  *jitter
	maxBody int64
	logger  zerolog.Logger
}

// New builds a Dispatcher. Without an HTTPClient, one with an otelhttp
// transport and the configured timeout is created.
func New(opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		}
	}

	limit := opts.RateLimit
	burst := opts.RateLimitBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	policy := DefaultRetryPolicy()
	if opts.Policy != nil {
		policy = opts.Policy.normalized()
	}

	d := &Dispatcher{
		client:  client,
		policy:  policy,
		limiter: rate.NewLimiter(limit, burst),
		headers: opts.Headers,
		locale:  CanonicalLocale(opts.Headers.Locale),
		session: opts.Session,
		jitter:  newJitter(),
		maxBody: maxBodyBytes,
	}
	if opts.Logger != nil {
		d.logger = *opts.Logger
	} else {
		d.logger = xglog.WithComponent("dispatch")
	}
	if opts.BreakerThreshold > 0 {
		d.breaker = resilience.NewCircuitBreaker("dispatch", opts.BreakerThreshold, opts.BreakerResetTimeout,
			resilience.WithFailureFilter(func(err error) bool { return errors.Is(err, errUpstream) }))
	}
	return d
}

var errUpstream = errors.New("upstream failure")

// Close releases idle connections.
func (d *Dispatcher) Close() {
	d.client.CloseIdleConnections()
}

// Breaker returns the circuit breaker, or nil when disabled.
func (d *Dispatcher) Breaker() *resilience.CircuitBreaker { return d.breaker }

// PerformRequest is the collaborator-facing entry point for non-layout calls.
func (d *Dispatcher) PerformRequest(ctx context.Context, rawURL, method string, body []byte, header http.Header, policy *RetryPolicy) (*Response, error) {
	return d.Do(ctx, Request{URL: rawURL, Method: method, Body: body, Header: header, Kind: KindEvent, Policy: policy})
}

// Do runs req with retries. The session id and request id are resolved once
// and reused by every attempt.
func (d *Dispatcher) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Kind == "" {
		req.Kind = KindLayout
	}
	policy := d.policy
	if req.Policy != nil {
		policy = req.Policy.normalized()
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, &Error{Kind: FailureStatus, Err: fmt.Errorf("invalid url: %w", err)}
	}

	kind := string(req.Kind)
	route, urlLabel := traceLabels(req.URL)
	tracer := telemetry.Tracer("placecore.dispatch")
	ctx, span := tracer.Start(ctx, "placecore.dispatch.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(telemetry.HTTPAttributes(req.Method, route, urlLabel, 0)...)

	// Rejected requests never reach the session, so they consume no usage.
	if d.breaker != nil {
		if err := d.breaker.Allow(); err != nil {
			metrics.RecordDispatchOutcome(kind, "rejected")
			span.RecordError(err)
			span.SetStatus(codes.Error, string(FailureCircuitOpen))
			d.logger.Warn().Err(err).Str(xglog.FieldKind, kind).Str(xglog.FieldURL, urlLabel).Msg("request rejected by circuit breaker")
			return nil, &Error{Kind: FailureCircuitOpen, Err: err}
		}
	}

	sessionID, err := d.sessionFor(ctx, req.Kind, span)
	if err != nil {
		// A broken session record must not block the request.
		d.logger.Warn().Err(err).Str(xglog.FieldKind, kind).Msg("session lookup failed, sending without session id")
	}
	requestID := xglog.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = xglog.ContextWithRequestID(ctx, requestID)
	}
	if sessionID != "" {
		ctx = xglog.ContextWithSessionID(ctx, sessionID)
	}
	header := d.headers.sharedHeaders(d.locale, requestID, sessionID, req.Header)
	logger := xglog.WithContext(ctx, d.logger).With().Str(xglog.FieldKind, kind).Logger()

	maxAttempts := policy.MaxAttempts()
	var last attemptResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = d.attempt(ctx, tracer, req, header, policy, attempt, maxAttempts)
		if last.failure == FailureNone {
			span.SetAttributes(telemetry.HTTPAttributes(req.Method, route, urlLabel, last.status)...)
			span.SetStatus(codes.Ok, "")
			metrics.RecordDispatchOutcome(kind, "success")
			d.recordBreaker(last.failure)
			resp := &Response{Status: last.status, Header: last.header, Body: last.body, Attempts: attempt}
			d.afterSuccess(ctx, req.Kind, resp, logger)
			return resp, nil
		}
		if !last.retry {
			break
		}
		logger.Debug().
			Int(xglog.FieldAttempt, attempt).
			Int(xglog.FieldStatusCode, last.status).
			Str("failure", string(last.failure)).
			Msg("retrying request")
		if err := sleepWithContext(ctx, policy.backoffFor(attempt-1, d.jitter)); err != nil {
			last = attemptResult{failure: FailureCanceled, err: err, attempts: attempt}
			break
		}
	}

	d.recordBreaker(last.failure)
	final := d.finalError(last, policy)
	outcome := "terminal"
	switch {
	case final.Kind == FailureCanceled:
		outcome = "canceled"
	case final.Exhausted:
		outcome = "exhausted"
	}
	metrics.RecordDispatchOutcome(kind, outcome)
	span.SetAttributes(telemetry.ErrorAttributes(outcome, final.Reason)...)
	if final.Status > 0 {
		span.SetAttributes(telemetry.HTTPAttributes(req.Method, route, urlLabel, final.Status)...)
	}
	span.RecordError(final)
	span.SetStatus(codes.Error, string(final.Kind))
	if final.Kind != FailureCanceled {
		logger.Warn().
			Int(xglog.FieldAttempt, final.Attempts).
			Int(xglog.FieldStatusCode, final.Status).
			Str(xglog.FieldReason, final.Reason).
			Str("failure", string(final.Kind)).
			Str(xglog.FieldURL, urlLabel).
			Msg("request failed")
	}
	return nil, final
}

type attemptResult struct {
	status   int
	header   http.Header
	body     []byte
	err      error
	failure  Failure
	retry    bool
	attempts int
}

func (d *Dispatcher) attempt(ctx context.Context, tracer trace.Tracer, req Request, header http.Header, policy RetryPolicy, attempt, maxAttempts int) attemptResult {
	kind := string(req.Kind)
	attemptCtx, span := tracer.Start(ctx, "placecore.dispatch.attempt", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(telemetry.AttemptAttributes(kind, attempt, policy.Extended)...)

	res := attemptResult{attempts: attempt}
	if err := d.limiter.Wait(attemptCtx); err != nil {
		res.err, res.failure = err, FailureCanceled
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		res.err, res.failure = err, FailureStatus
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res
	}
	httpReq.Header = header.Clone()
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err == nil {
		res.status = resp.StatusCode
		res.header = resp.Header
		res.body, err = io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
		_ = resp.Body.Close()
		if err == nil && int64(len(res.body)) > d.maxBody {
			res.body = nil
			err = fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, d.maxBody)
		}
	}
	duration := time.Since(start)
	res.err = err
	res.failure = classify(ctx, res.status, err)
	res.retry = res.failure.Retryable(policy.Extended) && attempt < maxAttempts
	metrics.RecordDispatchAttempt(kind, res.status, duration, err, res.retry)

	span.SetAttributes(telemetry.HTTPAttributes(req.Method, "", "", res.status)...)
	if err != nil {
		span.RecordError(err)
	}
	if res.failure != FailureNone {
		span.SetStatus(codes.Error, string(res.failure))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return res
}

// recordBreaker feeds the outcome of a whole logical request to the breaker.
// Cancellation says nothing about the upstream and is not recorded.
func (d *Dispatcher) recordBreaker(f Failure) {
	if d.breaker == nil || f == FailureCanceled {
		return
	}
	if f.upstream() {
		d.breaker.Record(errUpstream)
		return
	}
	d.breaker.Record(nil)
}

func (d *Dispatcher) finalError(last attemptResult, policy RetryPolicy) *Error {
	e := &Error{
		Kind:      last.failure,
		Status:    last.status,
		Body:      string(last.body),
		Reason:    reasonFor(last.failure, policy.Extended),
		Attempts:  last.attempts,
		Exhausted: last.failure.Retryable(policy.Extended),
		Err:       last.err,
	}
	if e.Err == nil && e.Status > 0 {
		e.Err = fmt.Errorf("unexpected status %d", e.Status)
	}
	return e
}

func (d *Dispatcher) sessionFor(ctx context.Context, kind Kind, span trace.Span) (string, error) {
	if d.session == nil {
		return "", nil
	}
	var (
		id       string
		ok       bool
		err      error
		accessor = "non_expiring"
	)
	if kind == KindLayout {
		accessor = "expiring"
		id, ok, err = d.session.SessionIDForRequest(ctx)
	} else {
		id, ok, err = d.session.SessionIDWithoutExpiring(ctx)
	}
	span.SetAttributes(telemetry.SessionAttributes(accessor, ok)...)
	if err != nil || !ok {
		return "", err
	}
	return id, nil
}

// afterSuccess refreshes the session after a layout fetch and adopts a
// session id and duration issued by the server.
func (d *Dispatcher) afterSuccess(ctx context.Context, kind Kind, resp *Response, logger zerolog.Logger) {
	if d.session == nil || kind != KindLayout {
		return
	}
	if issued := resp.Header.Get(HeaderSessionID); issued != "" {
		if err := d.session.UpdateSessionID(ctx, &issued); err != nil {
			logger.Warn().Err(err).Msg("failed to store issued session id")
		}
	}
	if raw := resp.Header.Get(HeaderSessionDuration); raw != "" {
		d.adoptSessionDuration(ctx, raw, logger)
	}
	if err := d.session.MarkFetchSucceeded(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh session activity")
	}
}

// adoptSessionDuration stores a server-issued session duration given in whole
// seconds. Malformed or non-positive values are ignored.
func (d *Dispatcher) adoptSessionDuration(ctx context.Context, raw string, logger zerolog.Logger) {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		logger.Debug().Str("value", raw).Msg("ignoring invalid session duration header")
		return
	}
	if err := d.session.SetSessionDuration(ctx, time.Duration(secs)*time.Second); err != nil {
		logger.Warn().Err(err).Msg("failed to store issued session duration")
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func traceLabels(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, rawURL
	}
	route := u.Path
	if route == "" {
		route = "/"
	}
	urlLabel := u.Host + route
	if u.RawQuery != "" {
		urlLabel += "?"
	}
	return route, urlLabel
}
