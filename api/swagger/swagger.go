package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OpenBallot API",
        "description": "Moderated community edits for the OpenBallot election guide",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Edits", "description": "Community edit proposals"},
        {"name": "Moderation", "description": "Review queue and workload tooling"},
        {"name": "Users", "description": "Contributor history"},
        {"name": "Auth", "description": "Session helpers"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/csrf": {
            "get": {
                "tags": ["Auth"],
                "summary": "Issue a CSRF token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/edits": {
            "get": {
                "tags": ["Edits"],
                "summary": "List edits",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "entity_type", "in": "query", "type": "string"},
                    {"name": "entity_id", "in": "query", "type": "string"},
                    {"name": "user", "in": "query", "type": "string", "description": "Submitter public id"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Edits"],
                "summary": "Propose an edit to a published record",
                "parameters": [
                    {"name": "X-CSRF-Token", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEditRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate pending edit"},
                    "429": {"description": "Pending edit limit reached"}
                }
            }
        },
        "/edits/{id}": {
            "get": {
                "tags": ["Edits"],
                "summary": "Get edit detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/moderation/edits": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List edits awaiting review",
                "parameters": [
                    {"name": "entity_type", "in": "query", "type": "string"},
                    {"name": "entity_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/edits/{id}": {
            "patch": {
                "tags": ["Moderation"],
                "summary": "Approve or reject a pending edit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-CSRF-Token", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewEditRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found or already reviewed"}
                }
            }
        },
        "/moderation/dashboard": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Moderation workload dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/edits/export": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Export the edit audit trail",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "description": "csv or pdf"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "entity_type", "in": "query", "type": "string"}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "File download"},
                    "403": {"description": "Admin access required"}
                }
            }
        },
        "/users/{publicId}/edits": {
            "get": {
                "tags": ["Users"],
                "summary": "A contributor's edit history",
                "parameters": [
                    {"name": "publicId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown user"}
                }
            }
        }
    },
    "definitions": {
        "CreateEditRequest": {
            "type": "object",
            "required": ["entity_type", "entity_id", "field", "new_value", "rationale"],
            "properties": {
                "entity_type": {"type": "string", "enum": ["CANDIDATE", "RACE", "OFFICE", "GUIDE"]},
                "entity_id": {"type": "string"},
                "field": {"type": "string"},
                "new_value": {"type": "object"},
                "rationale": {"type": "string"}
            }
        },
        "ReviewEditRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "note": {"type": "string"}
            }
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
                "status": {"type": "integer"}
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
