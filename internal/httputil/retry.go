// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP transport shared by the provider backends.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// rate-limit responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps a server-supplied Retry-After so a misbehaving
// provider cannot stall the process for minutes.
const maxRetryAfter = 60 * time.Second

const defaultMaxRetries = 3

// StatusOverloaded is the non-standard status Anthropic returns when the
// API is temporarily overloaded.
const StatusOverloaded = 529

// retryable reports whether the provider asked us to slow down.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == StatusOverloaded
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 and 529
// with exponential backoff starting at RetryBaseDelay. A numeric
// Retry-After header replaces the computed delay for that attempt.
//
// When maxRetries is 0 the default (3) is used; a negative value disables
// retries. Any other status, and any transport error, is returned to the
// caller immediately. After exhausting retries the last rate-limit response
// is returned so the caller can report it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// backoff returns the delay before the next attempt.
func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	return time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
}
