// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package main provides the Aegis IAM HTTP server
//
// Aegis evaluates access-control decisions by combining hierarchical
// roles, attribute-based policies and a tamper-evident audit log.
//
// @title Aegis IAM API
// @version 1.0
// @description Identity and access management decision engine
// @description
// @description ## Features
// @description
// @description - **Decision API**: Permission checks combining hierarchical roles with attribute policies
// @description - **Role Hierarchy**: Roles inherit permissions from parents with cycle detection
// @description - **Attribute Policies**: Condition trees over subject, resource and environment attributes
// @description - **Subject Simulation**: Evaluate what another subject would be allowed to do
// @description - **Hash-Chained Audit Log**: Every decision is recorded in a tamper-evident DuckDB log
// @description - **Live Audit Stream**: WebSocket feed of audit events as they are sealed
// @description - **Sessions and MFA**: Refresh-token rotation, TOTP enrollment with backup codes
// @description - **OIDC Federation**: Log in against an external identity provider
// @description
// @description ## Authentication
// @description
// @description Most endpoints require a JWT bearer token.
// @description Use `/api/v1/auth/login` to obtain an access/refresh token pair, then send
// @description `Authorization: Bearer <access_token>` on subsequent requests.
// @description
// @description Administrative endpoints additionally require `iam` permissions such as
// @description `roles.write` or `audit.read`. A role holding the `("iam", "*")` permission
// @description covers all of them.
// @description
// @description ## Rate Limiting
// @description
// @description Authentication endpoints are rate limited per IP (default 10 requests per minute).
// @description Limit headers are included in responses: `X-RateLimit-Limit`, `X-RateLimit-Remaining`.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {},
// @description     "request_id": "a1b2c3d4"
// @description   },
// @description   "meta": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/aegis/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8089
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token prefixed with "Bearer ". Obtain via /api/v1/auth/login.
//
// @tag.name Health
// @tag.description Liveness and readiness endpoints
//
// @tag.name Authz
// @tag.description Access decision evaluation and subject simulation
//
// @tag.name Auth
// @tag.description Login, token refresh, sessions, password management, MFA and OIDC
//
// @tag.name Roles
// @tag.description Role administration and hierarchy management
//
// @tag.name Permissions
// @tag.description Permission catalog administration
//
// @tag.name Policies
// @tag.description Attribute-based policy administration and change history
//
// @tag.name Attributes
// @tag.description Attribute definition administration
//
// @tag.name Users
// @tag.description User administration, status control and session revocation
//
// @tag.name Audit
// @tag.description Audit log queries, chain verification and the live event stream
package main
