// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the simulator service.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	RequestID ──► assign or propagate X-Request-ID
//	   │
//	   ▼
//	Chaos (optional) ──► random delay / simulated error on workload routes
//	   │
//	   ▼
//	Handler
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the gin context key for the request correlation id. The
// handlers package reads the same key when building response envelopes.
const requestIDKey = "faultline_request_id"

// requestIDHeader is the wire header carrying the correlation id.
const requestIDHeader = "X-Request-ID"

// GetRequestID retrieves the request correlation id from the gin context.
// Returns empty string when the RequestID middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestID assigns a correlation id to every request.
//
// An inbound X-Request-ID header is propagated unchanged so callers can
// stitch their own traces together; otherwise a fresh UUID is minted. The
// id is stored in the gin context and echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
