// Package docs holds the OpenAPI description served by the swagger UI.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "PlaylistTransfer API Support"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the health status of the API",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/api/v1/playlists": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the playlists of a user on the specified streaming provider.",
                "produces": ["application/json"],
                "tags": ["playlists"],
                "summary": "List user playlists",
                "parameters": [
                    {"enum": ["spotify", "youtube"], "type": "string", "description": "Streaming provider", "name": "provider", "in": "query", "required": true},
                    {"type": "string", "description": "Platform user or channel ID", "name": "user_id", "in": "query"},
                    {"type": "string", "description": "Bearer token for the streaming provider", "name": "Authorization", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.PlaylistRef"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/transfers": {
            "post": {
                "description": "Starts a background transfer. Poll GET /api/v1/transfers/{id} or stream /events for progress.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transfers"],
                "summary": "Start transfer",
                "parameters": [
                    {"description": "Source and destination providers, tokens and playlist", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.StartRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.TransferJob"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/transfers/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["transfers"],
                "summary": "Get transfer",
                "parameters": [{"type": "string", "description": "Transfer job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TransferJob"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/transfers/{id}/cancel": {
            "post": {
                "description": "Requests cooperative cancellation. Cancelling a finished transfer has no effect.",
                "produces": ["application/json"],
                "tags": ["transfers"],
                "summary": "Cancel transfer",
                "parameters": [{"type": "string", "description": "Transfer job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.TransferJob"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/transfers/{id}/events": {
            "get": {
                "description": "Emits a progress event per snapshot and a final done event carrying the finished job.",
                "produces": ["text/event-stream"],
                "tags": ["transfers"],
                "summary": "Stream transfer progress",
                "parameters": [{"type": "string", "description": "Transfer job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Progress"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Transfer history",
                "parameters": [{"type": "string", "description": "User ID", "name": "user_id", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.HistoryRecord"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.PlaylistRef": {
            "type": "object",
            "properties": {
                "platform": {"type": "string"},
                "id": {"type": "string"},
                "display_name": {"type": "string"},
                "track_count": {"type": "integer"}
            }
        },
        "domain.StartRequest": {
            "type": "object",
            "required": ["user_id", "source_provider", "source_token", "playlist_id", "dest_provider", "dest_token"],
            "properties": {
                "user_id": {"type": "string"},
                "source_provider": {"type": "string", "enum": ["spotify", "youtube"]},
                "source_token": {"type": "string"},
                "playlist_id": {"type": "string"},
                "dest_provider": {"type": "string", "enum": ["spotify", "youtube"]},
                "dest_token": {"type": "string"},
                "dest_playlist_id": {"type": "string"}
            }
        },
        "domain.ErrorInfo": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["source_fetch_failed", "match_lookup_failed", "destination_create_failed", "batch_write_failed", "cancelled"]},
                "message": {"type": "string"}
            }
        },
        "domain.TransferJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "source": {"$ref": "#/definitions/domain.PlaylistRef"},
                "target_platform": {"type": "string"},
                "target": {"$ref": "#/definitions/domain.PlaylistRef"},
                "state": {"type": "string", "enum": ["created", "fetching", "matching", "writing", "completed", "failed"]},
                "total_tracks": {"type": "integer"},
                "processed_count": {"type": "integer"},
                "matched_count": {"type": "integer"},
                "written_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "error": {"$ref": "#/definitions/domain.ErrorInfo"}
            }
        },
        "domain.Progress": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "state": {"type": "string"},
                "processed_count": {"type": "integer"},
                "matched_count": {"type": "integer"},
                "written_count": {"type": "integer"},
                "total_tracks": {"type": "integer"}
            }
        },
        "domain.HistoryRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "source_platform": {"type": "string"},
                "target_platform": {"type": "string"},
                "source_playlist_id": {"type": "string"},
                "target_playlist_id": {"type": "string"},
                "songs_transferred": {"type": "integer"},
                "status": {"type": "string", "enum": ["completed", "failed", "in-progress"]},
                "error_kind": {"type": "string"},
                "created_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token for the streaming provider (e.g. \"Bearer your_token_here\")",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PlaylistTransfer API",
	Description:      "API for transferring playlists between streaming services (Spotify, YouTube Music).\nTracks are matched concurrently and written to the destination in batches.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
