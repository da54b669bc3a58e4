package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Registry Registration API",
        "description": "Registration requests, department clearances and enrollment completion.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Registrations", "description": "Registration requests and enrollment completion"},
        {"name": "Eligibility", "description": "Eligible modules and semester status"},
        {"name": "Clearances", "description": "Department verdicts and queues"},
        {"name": "Audit", "description": "Mutation ledger"}
    ],
    "paths": {
        "/registrations": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Submit a registration request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRegistrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request already exists for the term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get a registration with modules, clearances and aggregate status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Registrations"],
                "summary": "Update a pending registration request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRegistrationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Registration already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/complete": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Complete enrollment for a cleared registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CompleteRegistrationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not cleared or already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{stdNo}/registration": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get a student's registration for a term",
                "parameters": [
                    {"name": "stdNo", "in": "path", "required": true, "type": "integer"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{stdNo}/eligible-modules": {
            "get": {
                "tags": ["Eligibility"],
                "summary": "List modules a student may register for",
                "parameters": [
                    {"name": "stdNo", "in": "path", "required": true, "type": "integer"},
                    {"name": "override", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Student must remain in semester", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{stdNo}/semester-status": {
            "post": {
                "tags": ["Eligibility"],
                "summary": "Derive semester number and status for a module selection",
                "parameters": [
                    {"name": "stdNo", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SemesterStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearances/queue": {
            "get": {
                "tags": ["Clearances"],
                "summary": "List a department's clearance queue",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string", "enum": ["finance", "library", "academic"]},
                    {"name": "termId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected", "partial", "registered"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearances/queue/count": {
            "get": {
                "tags": ["Clearances"],
                "summary": "Count a department's clearance queue",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/clearances/{id}": {
            "put": {
                "tags": ["Clearances"],
                "summary": "Record a department verdict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondClearanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Clearance belongs to another department", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Registration already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/clearances/{id}/history": {
            "get": {
                "tags": ["Clearances"],
                "summary": "List status transitions of a clearance",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries of a record",
                "parameters": [
                    {"name": "table", "in": "query", "required": true, "type": "string"},
                    {"name": "recordId", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "ModuleSelection": {
            "type": "object",
            "properties": {
                "semesterModuleId": {"type": "string"},
                "moduleStatus": {"type": "string", "example": "Compulsory"}
            },
            "required": ["semesterModuleId", "moduleStatus"]
        },
        "Sponsorship": {
            "type": "object",
            "properties": {
                "sponsorId": {"type": "string"},
                "borrowerNo": {"type": "string"},
                "bankName": {"type": "string"},
                "accountNumber": {"type": "string"}
            },
            "required": ["sponsorId"]
        },
        "CreateRegistrationRequest": {
            "type": "object",
            "properties": {
                "stdNo": {"type": "integer"},
                "termId": {"type": "string"},
                "semesterNumber": {"type": "string", "example": "02"},
                "semesterStatus": {"type": "string", "enum": ["Active", "Repeat"]},
                "sponsorship": {"$ref": "#/definitions/Sponsorship"},
                "modules": {"type": "array", "items": {"$ref": "#/definitions/ModuleSelection"}},
                "message": {"type": "string"}
            },
            "required": ["stdNo", "termId", "semesterNumber", "semesterStatus", "modules"]
        },
        "UpdateRegistrationRequest": {
            "type": "object",
            "properties": {
                "modules": {"type": "array", "items": {"$ref": "#/definitions/ModuleSelection"}},
                "semesterNumber": {"type": "string"},
                "semesterStatus": {"type": "string", "enum": ["Active", "Repeat"]},
                "termId": {"type": "string"},
                "sponsorship": {"$ref": "#/definitions/Sponsorship"},
                "message": {"type": "string"}
            },
            "required": ["modules"]
        },
        "CompleteRegistrationRequest": {
            "type": "object",
            "properties": {
                "semesterModuleIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SemesterStatusRequest": {
            "type": "object",
            "properties": {
                "modules": {"type": "array", "items": {"$ref": "#/definitions/ModuleSelection"}}
            },
            "required": ["modules"]
        },
        "RespondClearanceRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
                "message": {"type": "string"},
                "modules": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["status"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
