package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Records API",
        "description": "json-server compatible REST backend for the records console",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Records", "description": "Students, courses, instructors and employees"},
        {"name": "Operations", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/{resource}": {
            "get": {
                "tags": ["Records"],
                "summary": "List records of a collection",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"name": "q", "in": "query", "type": "string", "description": "Case-insensitive search over all fields"},
                    {"name": "_page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "_limit", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "_sort", "in": "query", "type": "string"},
                    {"name": "_order", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {"X-Total-Count": {"type": "integer", "description": "Filtered total"}},
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/Record"}}
                    },
                    "400": {"description": "Bad query", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "Unknown collection", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "post": {
                "tags": ["Records"],
                "summary": "Create record",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Record"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Record"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "Unique field taken", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/{resource}/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Get record",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Record"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "put": {
                "tags": ["Records"],
                "summary": "Replace record",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Record"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Record"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "Unique field taken", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Records"],
                "summary": "Delete record",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"}
                ],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"type": "object"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "resource": {"name": "resource", "in": "path", "required": true, "type": "string", "enum": ["students", "courses", "instructors", "employees"]},
        "id": {"name": "id", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "Record": {
            "type": "object",
            "description": "Free-form document; id is assigned by the server",
            "properties": {
                "id": {"type": "string"}
            },
            "additionalProperties": true
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/APIError"}
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
