// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the addon container over HTTP.
//
// # Endpoints
//
// System endpoints are served without rate limiting:
//
//	GET /health   liveness, always 200 while the process serves
//	GET /ready    200 once the container has completed a reconciliation tick, 503 before
//	GET /metrics  Prometheus metrics
//
// API endpoints run behind the middleware chain (metrics, API version
// negotiation, request ids, panic recovery, rate limiting, logging):
//
//	GET /            server name, version and routes
//	GET /v1/addons   registry snapshot; filter with ?status=FAILED or ?name=core
//
// # Usage
//
//	s := server.New(
//	    server.WithName("addond"),
//	    server.WithReadiness(c.Ready),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/addons": server.AddonsHandler(c.Registry()),
//	    }),
//	)
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//
// # Errors
//
// Errors share one JSON shape carrying the request id:
//
//	{
//	  "code": "INVALID_REQUEST",
//	  "message": "invalid status filter",
//	  "details": {"status": "RUNNING"},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2025-12-22T12:00:00Z",
//	  "retryable": false
//	}
//
// Clients may send X-Request-Id (UUID); otherwise one is generated and
// returned in the response header.
package server
