// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "DroneHub Engineering",
            "email": "dev@dronehub.example.com"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "tags": ["catalog"],
                "summary": "List active products",
                "parameters": [
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "brand", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "boolean", "name": "featured", "in": "query"},
                    {"type": "boolean", "name": "in_stock", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/products/{product}": {
            "get": {
                "tags": ["catalog"],
                "summary": "Product detail by slug",
                "parameters": [{"type": "string", "name": "product", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "PRODUCT_NOT_FOUND"}}
            }
        },
        "/checkout": {
            "post": {
                "tags": ["checkout"],
                "summary": "Place an order and open a hosted payment session",
                "responses": {
                    "201": {"description": "Order created, redirect_url set for online payments"},
                    "400": {"description": "EMPTY_CART, INVALID_ADDRESS, LOCKER_ID_REQUIRED"},
                    "409": {"description": "INSUFFICIENT_STOCK"},
                    "502": {"description": "PAYMENT_SESSION_FAILED"}
                }
            }
        },
        "/orders/track/{number}": {
            "get": {
                "tags": ["orders"],
                "summary": "Guest order tracking",
                "parameters": [
                    {"type": "integer", "name": "number", "in": "path", "required": true},
                    {"type": "string", "name": "email", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "ORDER_NOT_FOUND"}}
            }
        },
        "/webhooks/stripe": {
            "post": {
                "tags": ["payments"],
                "summary": "Stripe webhook receiver",
                "parameters": [{"type": "string", "name": "Stripe-Signature", "in": "header", "required": true}],
                "responses": {"200": {"description": "Processed or duplicate"}, "400": {"description": "INVALID_SIGNATURE"}}
            }
        },
        "/vat/validate": {
            "post": {
                "tags": ["tax"],
                "summary": "Validate an EU VAT number against VIES",
                "responses": {"200": {"description": "OK"}, "503": {"description": "VIES_UNAVAILABLE"}}
            }
        },
        "/currency/rates": {
            "get": {
                "tags": ["currency"],
                "summary": "Display exchange rates from PLN",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/orders/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Change order status, optionally forced with a reason",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "INVALID_STATUS_TRANSITION"}}
            }
        },
        "/admin/orders/{id}/shipments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Create a carrier shipment for a paid order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "502": {"description": "CARRIER_REJECTED, CARRIER_UNAVAILABLE"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "DroneHub API",
	Description:      "Drone parts store backend: catalog, checkout, payments, shipping and back office.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
