// Package docs holds the OpenAPI document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/messages/queue": {
            "post": {
                "description": "Adds the text to the user's debounce queue. The enrichment pipeline\nruns once the user stops writing for the debounce window.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Buffer an inbound message",
                "operationId": "enqueueMessage",
                "parameters": [
                    {"type": "string", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Message", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.EnqueueMessageRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.EnqueueMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown user", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/messages/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Get a message",
                "operationId": "getMessage",
                "parameters": [{"type": "string", "format": "uuid", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Appends the answer to the message text and marks the message complete.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Answer clarification questions",
                "operationId": "clarifyMessage",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Message ID", "name": "id", "in": "path", "required": true},
                    {"description": "Answer", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ClarifyMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Message"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Messages"],
                "summary": "Delete a message",
                "operationId": "deleteMessage",
                "parameters": [{"type": "string", "format": "uuid", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/questions/{telegram_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Questions"],
                "summary": "Pending clarification questions",
                "operationId": "getQuestions",
                "parameters": [{"type": "integer", "description": "Telegram user id", "name": "telegram_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.QuestionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Questions"],
                "summary": "Remove pending clarification questions and return them",
                "operationId": "takeQuestions",
                "parameters": [{"type": "integer", "description": "Telegram user id", "name": "telegram_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.QuestionsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requirements": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Requirements"],
                "summary": "List requirements",
                "operationId": "listRequirements",
                "parameters": [
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListRequirementsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requirements/{id}": {
            "put": {
                "description": "Field names must be attribute names (quantity, time, location, ...).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Requirements"],
                "summary": "Fill in a requirement",
                "operationId": "updateRequirement",
                "parameters": [
                    {"type": "integer", "description": "Requirement ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields and questions", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateRequirementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Requirement"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/topics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Topics"],
                "summary": "List topics with their keywords",
                "operationId": "listTopics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListTopicsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users",
                "operationId": "listUsers",
                "parameters": [
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListUsersResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Creates the user for a telegram id, or returns the existing one.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register a chat user",
                "operationId": "registerUser",
                "parameters": [{"description": "User", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterUserRequest"}}],
                "responses": {
                    "200": {"description": "Already registered", "schema": {"$ref": "#/definitions/domain.User"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Get a user",
                "operationId": "getUser",
                "parameters": [{"type": "string", "format": "uuid", "description": "User ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/{id}/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List a user's messages",
                "operationId": "listUserMessages",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "ETag from a previous response", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMessagesResponse"}},
                    "304": {"description": "Not modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Entity": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "conditions": {"type": "string"},
                "created_at": {"type": "string"},
                "date": {"type": "string"},
                "duration": {"type": "string"},
                "location": {"type": "string"},
                "message_id": {"type": "string"},
                "object": {"type": "string"},
                "quantity": {"type": "string"},
                "requirement_id": {"type": "integer"},
                "size": {"type": "string"},
                "specific_object": {"type": "string"},
                "time": {"type": "string"},
                "topic_id": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "external_id": {"type": "integer"},
                "id": {"type": "string"},
                "is_complete": {"type": "boolean"},
                "is_processed": {"type": "boolean"},
                "sent_at": {"type": "string"},
                "text": {"type": "string"},
                "token_usage": {"type": "integer"},
                "topic": {"type": "string"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "domain.Requirement": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "object": {"type": "string"},
                "questions": {"type": "object", "additionalProperties": {"type": "string"}},
                "required_fields": {"type": "array", "items": {"type": "string"}},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Keyword": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "topic_id": {"type": "integer"},
                "word": {"type": "string"}
            }
        },
        "domain.Topic": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "keywords": {"type": "array", "items": {"$ref": "#/definitions/domain.Keyword"}},
                "name": {"type": "string"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "is_active": {"type": "boolean"},
                "telegram_id": {"type": "integer"},
                "updated_at": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "handlers.ClarifyMessageRequest": {
            "type": "object",
            "required": ["answer"],
            "properties": {"answer": {"type": "string", "example": "две чашки"}}
        },
        "handlers.EnqueueMessageRequest": {
            "type": "object",
            "required": ["telegram_id", "text"],
            "properties": {
                "message_id": {"type": "integer", "example": 42},
                "sent_at": {"description": "SentAt defaults to the time of receipt.", "type": "string"},
                "telegram_id": {"type": "integer", "example": 123456789},
                "text": {"type": "string", "example": "выпил 2 чашки кофе"}
            }
        },
        "handlers.EnqueueMessageResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "queued"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "Stable, machine-readable code (see errors.go constants)", "type": "string", "example": "not_found"},
                "message": {"description": "Human-readable message (safe to show to users)", "type": "string", "example": "resource not found"},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ListMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListRequirementsResponse": {
            "type": "object",
            "properties": {
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "requirements": {"type": "array", "items": {"$ref": "#/definitions/domain.Requirement"}}
            }
        },
        "handlers.ListTopicsResponse": {
            "type": "object",
            "properties": {
                "topics": {"type": "array", "items": {"$ref": "#/definitions/domain.Topic"}}
            }
        },
        "handlers.ListUsersResponse": {
            "type": "object",
            "properties": {
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "users": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "entity": {"$ref": "#/definitions/domain.Entity"},
                "message": {"$ref": "#/definitions/domain.Message"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.QuestionsResponse": {
            "type": "object",
            "properties": {
                "expires_in": {"type": "integer", "example": 3540},
                "queued": {"type": "integer", "example": 2},
                "questions": {"type": "object", "additionalProperties": {"type": "string"}},
                "telegram_id": {"type": "integer", "example": 123456789},
                "text": {"type": "string", "example": "Сколько кофе?"}
            }
        },
        "handlers.RegisterUserRequest": {
            "type": "object",
            "required": ["telegram_id"],
            "properties": {
                "telegram_id": {"type": "integer", "example": 123456789},
                "username": {"type": "string", "maxLength": 255, "example": "anna"}
            }
        },
        "handlers.UpdateRequirementRequest": {
            "type": "object",
            "properties": {
                "questions": {"type": "object", "additionalProperties": {"type": "string"}},
                "required_fields": {"type": "array", "items": {"type": "string"}, "example": ["quantity", "time"]}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Diary Bot API",
	Description:      "Boundary API of the diary bot: users, the inbound debounce queue, enriched messages, clarification questions, requirements and topics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
