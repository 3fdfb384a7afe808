// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Failure classifies the outcome of one attempt.
type Failure string

const (
	FailureNone                Failure = ""
	FailureTimeout             Failure = "timeout"
	FailureServerStatus        Failure = "server_status"
	FailureConnectionLost      Failure = "connection_lost"
	FailureHostUnreachable     Failure = "host_unreachable"
	FailureDNS                 Failure = "dns"
	FailureNotConnected        Failure = "not_connected"
	FailureResourceUnavailable Failure = "resource_unavailable"
	FailureUnauthorized        Failure = "unauthorized"
	FailureStatus              Failure = "status"
	FailureTransport           Failure = "transport"
	FailureCanceled            Failure = "canceled"
	FailureCircuitOpen         Failure = "circuit_open"
	FailureBodyTooLarge        Failure = "body_too_large"
)

// Reasons attached to failures surfaced without retry.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonNotConnected = "not connected to internet"
)

// connectivity reports whether f is one of the connectivity classes that are
// only retried under the extended policy.
func (f Failure) connectivity() bool {
	switch f {
	case FailureConnectionLost, FailureHostUnreachable, FailureDNS, FailureNotConnected, FailureResourceUnavailable:
		return true
	}
	return false
}

// Retryable reports whether another attempt may succeed.
func (f Failure) Retryable(extended bool) bool {
	switch {
	case f == FailureTimeout, f == FailureServerStatus:
		return true
	case f.connectivity():
		return extended
	}
	return false
}

// upstream reports failures that say the remote side is unhealthy.
func (f Failure) upstream() bool {
	return f == FailureTimeout || f == FailureServerStatus || f.connectivity()
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// classify maps an attempt result to a Failure. ctx is the logical request
// context; once it is done nothing is retried.
func classify(ctx context.Context, status int, err error) Failure {
	if err == nil {
		switch {
		case status >= 200 && status < 300:
			return FailureNone
		case status == http.StatusUnauthorized:
			return FailureUnauthorized
		case retryableStatus(status):
			return FailureServerStatus
		default:
			return FailureStatus
		}
	}

	if ctx.Err() != nil {
		return FailureCanceled
	}
	if errors.Is(err, ErrBodyTooLarge) {
		return FailureBodyTooLarge
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return FailureDNS
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.ENETDOWN):
		return FailureNotConnected
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ECONNREFUSED):
		return FailureHostUnreachable
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNABORTED), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return FailureConnectionLost
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ENOBUFS):
		return FailureResourceUnavailable
	}
	return FailureTransport
}
