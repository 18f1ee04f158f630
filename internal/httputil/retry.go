// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components.
package httputil

import (
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// retryable reports whether a response status warrants another attempt:
// HTTP 429 and all 5xx responses.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request and retries transport errors,
// HTTP 429, and 5xx responses with exponential backoff. The delay starts
// at RetryBaseDelay and doubles each attempt.
//
// When maxRetries is 0 the default (3) is used. Before each retry the
// previous response body, if any, is drained and closed. If the request
// context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting retries the last response or transport
// error is returned so the caller can inspect it.
func DoWithRetry(client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))

		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries — surface the last outcome as-is.
		if attempt >= maxRetries {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
