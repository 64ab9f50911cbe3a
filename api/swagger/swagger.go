package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Taller Agenda API",
        "description": "Scheduling backend for an art workshop: seats, non-working days, make-up credits and the agenda.",
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
        {"name": "Enrollments", "description": "Dated class occurrences"},
        {"name": "Seats", "description": "Seat map and reservations"},
        {"name": "NonWorkingDays", "description": "Holidays and their credit cascade"},
        {"name": "Credits", "description": "Make-up credits"},
        {"name": "Agenda", "description": "Admin and family agendas"},
        {"name": "Placements", "description": "Placement appointments"}
    ],
    "paths": {
        "/health": {"get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}},
        "/ready": {"get": {"summary": "Readiness check of postgres and redis", "responses": {"200": {"description": "Ready"}, "503": {"description": "Degraded"}}}},
        "/metrics": {"get": {"summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/enrollments/{id}/occurrences": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Expand an enrollment into dated occurrences",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/seats": {
            "get": {
                "tags": ["Seats"],
                "summary": "Occupied seats of a (day, time range) slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "day", "in": "query", "required": true, "type": "string"},
                    {"name": "timeRange", "in": "query", "required": true, "type": "string"},
                    {"name": "workshopId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/seats/reservations": {
            "post": {
                "tags": ["Seats"],
                "summary": "Reserve a seat by creating an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReserveSeatRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Seat taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/non-working-days": {
            "get": {
                "tags": ["NonWorkingDays"],
                "summary": "List declared non-working days",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["NonWorkingDays"],
                "summary": "Declare a non-working day",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeclareNonWorkingDayRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/non-working-days/{date}": {
            "delete": {
                "tags": ["NonWorkingDays"],
                "summary": "Turn a non-working day back into a working day",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/students/{id}/credits": {
            "get": {
                "tags": ["Credits"],
                "summary": "Unused make-up credits of a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/students/{id}/credits/history": {
            "get": {
                "tags": ["Credits"],
                "summary": "Used make-up credits of a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/students/{id}/credits/{creditId}/schedule": {
            "post": {
                "tags": ["Credits"],
                "summary": "Redeem a credit into a make-up session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "creditId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleCreditRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No workshop matches the date or block", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/agenda": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Agenda of every class and pending placement appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "days", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/agenda/export": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Download the admin agenda",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/api/v1/me/agenda": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Agenda of the caller's students",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "days", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/placements": {
            "post": {
                "tags": ["Placements"],
                "summary": "Request a placement appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestPlacementRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/placements/{id}": {
            "put": {
                "tags": ["Placements"],
                "summary": "Move a pending placement appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReschedulePlacementRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Placements"],
                "summary": "Cancel a pending placement appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "ReserveSeatRequest": {
            "type": "object",
            "required": ["studentId", "workshopId", "days", "timeRange", "phase"],
            "properties": {
                "studentId": {"type": "string"},
                "workshopId": {"type": "string"},
                "days": {"type": "array", "items": {"type": "string"}},
                "timeRange": {"type": "string", "example": "16:00-17:20"},
                "seat": {"type": "integer"},
                "phase": {"type": "string", "example": "Regular"},
                "modality": {"type": "string"},
                "frequency": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "notes": {"type": "string"}
            }
        },
        "DeclareNonWorkingDayRequest": {
            "type": "object",
            "required": ["date", "reason"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "reason": {"type": "string"},
                "sendEmail": {"type": "boolean"},
                "addCredit": {"type": "boolean"},
                "transferTo": {"type": "string", "format": "date"}
            }
        },
        "ScheduleCreditRequest": {
            "type": "object",
            "required": ["date", "timeBlock"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "timeBlock": {"type": "string", "example": "16:00-17:20"}
            }
        },
        "RequestPlacementRequest": {
            "type": "object",
            "required": ["studentId", "scheduledAt"],
            "properties": {
                "studentId": {"type": "string"},
                "scheduledAt": {"type": "string", "example": "2026-01-07T15:00"},
                "note": {"type": "string"}
            }
        },
        "ReschedulePlacementRequest": {
            "type": "object",
            "required": ["scheduledAt"],
            "properties": {"scheduledAt": {"type": "string", "example": "2026-01-09T15:00"}}
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
