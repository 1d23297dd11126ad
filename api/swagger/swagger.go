package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Feedback API",
        "description": "Anonymous token-gated teacher feedback collection and reporting",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Survey", "description": "Teacher, subject and question catalog"},
        {"name": "Tokens", "description": "Single-use token checks"},
        {"name": "Feedback", "description": "Anonymous feedback submission"},
        {"name": "Admin", "description": "Session-protected reporting and token management"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/survey": {
            "get": {
                "tags": ["Survey"],
                "summary": "Survey catalog",
                "description": "Teachers, subjects, allowed combinations, the ten questions and the academic period",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tokens/verify": {
            "post": {
                "tags": ["Tokens"],
                "summary": "Verify token",
                "description": "Reports whether a token is issued and unused. The token is not consumed.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/feedback": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Submit feedback",
                "description": "Spends a single-use token and records anonymous ratings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitFeedbackRequest"}}
                ],
                "responses": {
                    "201": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid or used token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/login": {
            "post": {
                "tags": ["Admin"],
                "summary": "Admin login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Wrong password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/logout": {
            "post": {
                "tags": ["Admin"],
                "summary": "Admin logout",
                "description": "Revokes the bearer or cookie session until it expires",
                "responses": {
                    "204": {"description": "Session revoked and cookie cleared"}
                }
            }
        },
        "/api/v1/admin/summary": {
            "get": {
                "tags": ["Admin"],
                "summary": "Feedback summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/feedback": {
            "get": {
                "tags": ["Admin"],
                "summary": "List feedback",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "teacher", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown teacher or subject", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export feedback",
                "security": [{"BearerAuth": []}],
                "produces": [
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {"name": "scope", "in": "query", "type": "string", "enum": ["all", "teacher", "subject"]},
                    {"name": "name", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["xlsx", "csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Bad scope or format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown teacher or subject", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/tokens/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Token usage",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/tokens": {
            "post": {
                "tags": ["Admin"],
                "summary": "Generate tokens",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTokensRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/reset": {
            "post": {
                "tags": ["Admin"],
                "summary": "Reset store",
                "description": "Deletes every token and feedback entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing confirmation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "VerifyTokenRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            },
            "required": ["token"]
        },
        "SubmitFeedbackRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "teacher": {"type": "string"},
                "subject": {"type": "string"},
                "ratings": {
                    "type": "array",
                    "minItems": 10,
                    "maxItems": 10,
                    "items": {"type": "integer", "minimum": 1, "maximum": 10}
                },
                "comment": {"type": "string"}
            },
            "required": ["token", "teacher", "subject", "ratings"]
        },
        "SubmissionResult": {
            "type": "object",
            "properties": {
                "accepted": {"type": "boolean"},
                "reason": {"type": "string", "enum": ["InvalidOrUsedToken", "ValidationError"]},
                "fields": {"type": "array", "items": {"type": "string"}}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"}
            },
            "required": ["password"]
        },
        "GenerateTokensRequest": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "minimum": 1},
                "length": {"type": "integer", "minimum": 4, "maximum": 32}
            },
            "required": ["count"]
        },
        "ResetRequest": {
            "type": "object",
            "properties": {
                "confirm": {"type": "string", "enum": ["RESET"]}
            },
            "required": ["confirm"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
