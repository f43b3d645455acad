// Package delivery registers the delivery service OpenAPI document under the
// "delivery" swag instance. Regenerate with:
//
//	swag init -g docs/swagger_delivery.go --instanceName delivery -o docs/delivery
package delivery

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/deliveries/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Deliveries"],
                "summary": "Get delivery",
                "parameters": [
                    {"type": "string", "description": "Delivery ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DeliveryProjection"}},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/deliveries/{id}/update-location": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Deliveries"],
                "summary": "Update driver location",
                "parameters": [
                    {"type": "string", "description": "Delivery ID", "name": "id", "in": "path", "required": true},
                    {"description": "Driver position", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateLocationReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LocationReceipt"}},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"},
                    "422": {"description": "Unprocessable Entity"}
                }
            }
        },
        "/deliveries/{id}/update-status": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Deliveries"],
                "summary": "Update delivery status",
                "parameters": [
                    {"type": "string", "description": "Delivery ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target status", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateStatusReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DeliveryProjection"}},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "422": {"description": "Unprocessable Entity"}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws/deliveries/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Deliveries"],
                "summary": "Live delivery tracking",
                "parameters": [
                    {"type": "string", "description": "Delivery ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    },
    "definitions": {
        "dto.LocationReq": {
            "type": "object",
            "required": ["accuracy", "latitude", "longitude", "timestamp"],
            "properties": {
                "accuracy": {"type": "number"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "timestamp": {"type": "string"}
            }
        },
        "dto.UpdateLocationReq": {
            "type": "object",
            "required": ["location"],
            "properties": {"location": {"$ref": "#/definitions/dto.LocationReq"}}
        },
        "dto.UpdateStatusReq": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "maxLength": 64}}
        },
        "models.DeliveryProjection": {
            "type": "object",
            "properties": {
                "delivery_id": {"type": "string"},
                "last_known_driver_location": {"$ref": "#/definitions/models.Position"},
                "status": {"type": "string", "enum": ["pending", "driver_assigned", "out_for_delivery", "delivered", "cancelled"]},
                "updated_at": {"type": "string"}
            }
        },
        "models.LocationReceipt": {
            "type": "object",
            "properties": {
                "delivery_id": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Position": {
            "type": "object",
            "properties": {
                "accuracy": {"type": "number"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfodelivery holds exported Swagger Info so clients can modify it
var SwaggerInfodelivery = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Delivery Tracking Service API",
	Description:      "Accepts driver location and status updates for deliveries and streams them to subscribers over WebSocket.",
	InfoInstanceName: "delivery",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfodelivery.InstanceName(), SwaggerInfodelivery)
}
