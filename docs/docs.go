// Package docs registers the OpenAPI description of the ledger API with swag.
// It is served by gin-swagger at /swagger/index.html.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "servers": [{"url": "/api/v1"}],
    "security": [{"bearerAuth": []}],
    "components": {
        "securitySchemes": {
            "bearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}
        },
        "schemas": {
            "Error": {
                "type": "object",
                "properties": {
                    "error": {"type": "string", "example": "NOT_BALANCED"},
                    "message": {"type": "string"},
                    "details": {"type": "object"}
                }
            },
            "Entry": {
                "type": "object",
                "required": ["account"],
                "properties": {
                    "account": {"type": "string"},
                    "description": {"type": "string"},
                    "debit": {"type": "string", "example": "100.00"},
                    "credit": {"type": "string", "example": "0"},
                    "currency": {"type": "string"},
                    "fx_rate": {"type": "string"},
                    "foreign_debit": {"type": "string"},
                    "foreign_credit": {"type": "string"},
                    "dimensions": {"type": "object", "additionalProperties": {"type": "string"}}
                }
            },
            "CreateVoucher": {
                "type": "object",
                "required": ["voucher", "entries"],
                "properties": {
                    "voucher": {
                        "type": "object",
                        "required": ["date"],
                        "properties": {
                            "date": {"type": "string", "format": "date"},
                            "entry_type": {"type": "string", "enum": ["normal", "adjustment"]},
                            "description": {"type": "string"}
                        }
                    },
                    "entries": {"type": "array", "items": {"$ref": "#/components/schemas/Entry"}},
                    "status": {"type": "string", "enum": ["draft", "reviewed", "confirmed"]},
                    "auto_confirm": {"type": "boolean"}
                }
            }
        },
        "parameters": {
            "VoucherID": {"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}},
            "Period": {"name": "period", "in": "path", "required": true, "schema": {"type": "string", "example": "2024-01"}}
        },
        "responses": {
            "Error": {"description": "Domain error", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}}
        }
    },
    "paths": {
        "/auth/token": {
            "post": {"tags": ["auth"], "summary": "Issue a scoped access token", "security": [], "responses": {"200": {"description": "Token"}, "429": {"$ref": "#/components/responses/Error"}}}
        },
        "/auth/revoke": {
            "post": {"tags": ["auth"], "summary": "Revoke the presented token", "responses": {"204": {"description": "Revoked"}}}
        },
        "/vouchers": {
            "get": {
                "tags": ["vouchers"], "summary": "List vouchers",
                "parameters": [
                    {"name": "period", "in": "query", "schema": {"type": "string"}},
                    {"name": "status", "in": "query", "schema": {"type": "string"}},
                    {"name": "page", "in": "query", "schema": {"type": "integer"}},
                    {"name": "page_size", "in": "query", "schema": {"type": "integer"}},
                    {"name": "order_by", "in": "query", "schema": {"type": "string"}},
                    {"name": "order_dir", "in": "query", "schema": {"type": "string", "enum": ["asc", "desc"]}}
                ],
                "responses": {"200": {"description": "Page of vouchers"}}
            },
            "post": {
                "tags": ["vouchers"], "summary": "Create a voucher",
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/CreateVoucher"}}}},
                "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/components/responses/Error"}, "422": {"$ref": "#/components/responses/Error"}}
            }
        },
        "/vouchers/archive": {
            "post": {"tags": ["vouchers"], "summary": "Archive confirmed vouchers of earlier periods", "responses": {"200": {"description": "Archived"}}}
        },
        "/vouchers/{id}": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "get": {"tags": ["vouchers"], "summary": "Get a voucher", "responses": {"200": {"description": "Voucher"}, "404": {"$ref": "#/components/responses/Error"}}},
            "delete": {"tags": ["vouchers"], "summary": "Delete a draft voucher", "responses": {"204": {"description": "Deleted"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/vouchers/{id}/review": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "post": {"tags": ["vouchers"], "summary": "Review a draft", "responses": {"200": {"description": "Reviewed"}}}
        },
        "/vouchers/{id}/revert": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "post": {"tags": ["vouchers"], "summary": "Return a reviewed voucher to draft", "responses": {"200": {"description": "Draft"}}}
        },
        "/vouchers/{id}/confirm": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "post": {"tags": ["vouchers"], "summary": "Confirm and post a reviewed voucher", "responses": {"200": {"description": "Confirmed"}}}
        },
        "/vouchers/{id}/void": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "post": {"tags": ["vouchers"], "summary": "Void a confirmed voucher with a mirror voucher", "responses": {"200": {"description": "Voided"}}}
        },
        "/vouchers/{id}/approval": {
            "parameters": [{"$ref": "#/components/parameters/VoucherID"}],
            "post": {"tags": ["vouchers"], "summary": "Approve or reject a pending voucher", "responses": {"200": {"description": "Decided"}}}
        },
        "/periods/{period}/close": {
            "parameters": [{"$ref": "#/components/parameters/Period"}],
            "post": {"tags": ["periods"], "summary": "Close a period", "responses": {"200": {"description": "Closed"}, "422": {"$ref": "#/components/responses/Error"}}}
        },
        "/periods/{period}/reopen": {
            "parameters": [{"$ref": "#/components/parameters/Period"}],
            "post": {"tags": ["periods"], "summary": "Reopen a closed period", "responses": {"200": {"description": "Open"}}}
        },
        "/periods/{period}/adjustment": {
            "parameters": [{"$ref": "#/components/parameters/Period"}],
            "post": {"tags": ["periods"], "summary": "Toggle adjustment-only mode", "responses": {"200": {"description": "Updated"}}}
        },
        "/periods/{period}/adjustments": {
            "parameters": [{"$ref": "#/components/parameters/Period"}],
            "post": {"tags": ["periods"], "summary": "Post an adjustment voucher", "responses": {"201": {"description": "Posted or carried forward"}}}
        },
        "/balances": {
            "get": {"tags": ["reports"], "summary": "Account balances of a period", "parameters": [{"name": "period", "in": "query", "required": true, "schema": {"type": "string"}}], "responses": {"200": {"description": "Balances"}}}
        },
        "/reports/trial-balance": {
            "get": {"tags": ["reports"], "summary": "Trial balance of a period", "parameters": [{"name": "period", "in": "query", "required": true, "schema": {"type": "string"}}], "responses": {"200": {"description": "Trial balance"}}}
        },
        "/reports/template": {
            "post": {"tags": ["reports"], "summary": "Evaluate a report template", "responses": {"200": {"description": "Report"}}}
        },
        "/fx/rates": {
            "post": {"tags": ["fx"], "summary": "Record an exchange rate", "responses": {"201": {"description": "Recorded"}}}
        },
        "/fx/revalue": {
            "post": {"tags": ["fx"], "summary": "Revalue foreign-currency balances", "responses": {"200": {"description": "Revalued"}}}
        },
        "/consolidations": {
            "post": {"tags": ["consolidation"], "summary": "Consolidate subsidiaries", "responses": {"200": {"description": "Consolidated statement"}}}
        },
        "/allocations": {
            "post": {"tags": ["allocation"], "summary": "Allocate department costs", "responses": {"200": {"description": "Allocation"}}}
        },
        "/accounts": {
            "get": {"tags": ["registry"], "summary": "List the chart of accounts", "responses": {"200": {"description": "Accounts"}}},
            "post": {"tags": ["registry"], "summary": "Add an account", "responses": {"201": {"description": "Added"}}}
        },
        "/accounts/{code}/disable": {
            "parameters": [{"name": "code", "in": "path", "required": true, "schema": {"type": "string"}}],
            "post": {"tags": ["registry"], "summary": "Disable an account", "responses": {"200": {"description": "Disabled"}}}
        },
        "/dimensions": {
            "post": {"tags": ["registry"], "summary": "Add a dimension", "responses": {"201": {"description": "Added"}}}
        },
        "/budgets": {
            "put": {"tags": ["registry"], "summary": "Set a budget", "responses": {"200": {"description": "Saved"}}}
        },
        "/audit-rules": {
            "put": {"tags": ["registry"], "summary": "Save an audit rule", "responses": {"200": {"description": "Saved"}}}
        },
        "/companies": {
            "put": {"tags": ["registry"], "summary": "Register a company", "responses": {"200": {"description": "Saved"}}}
        },
        "/consolidation-rules": {
            "put": {"tags": ["registry"], "summary": "Save a consolidation rule", "responses": {"200": {"description": "Saved"}}}
        },
        "/report-templates": {
            "put": {"tags": ["registry"], "summary": "Save a report template", "responses": {"200": {"description": "Saved"}}}
        }
    }
}`

// SwaggerInfo holds the exported API info so callers can adjust it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Title:            "Ledger API",
	Description:      "Multi-tenant double-entry bookkeeping.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
