package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"

	"github.com/tallyhq/tally-backend/docs"
)

// openAPI3Spec is the OpenAPI 3.0 document served at /openapi.json. It
// is converted on the fly from the Swagger 2.0 doc swag generates.
type openAPI3Spec struct {
	OpenAPI    string         `json:"openapi"`
	Info       map[string]any `json:"info"`
	Servers    []specServer   `json:"servers"`
	Paths      map[string]any `json:"paths"`
	Components map[string]any `json:"components,omitempty"`
}

type specServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// ServeOpenAPI3Spec serves the generated API spec as OpenAPI 3.0
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read API spec")
	}

	var swagger2 map[string]any
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return NewInternalError(c, "Failed to parse API spec")
	}

	info, _ := swagger2["info"].(map[string]any)
	paths, _ := swagger2["paths"].(map[string]any)

	// Swagger 2.0 keeps schemas under definitions and auth under
	// securityDefinitions; OpenAPI 3 folds both into components.
	components := map[string]any{}
	if schemes, ok := swagger2["securityDefinitions"].(map[string]any); ok {
		components["securitySchemes"] = schemes
	}
	if definitions, ok := swagger2["definitions"].(map[string]any); ok {
		components["schemas"] = convertNode(definitions)
	}

	spec := openAPI3Spec{
		OpenAPI: "3.0.3",
		Info:    info,
		Servers: []specServer{
			{URL: "http://localhost:8080/api/v1", Description: "Local Development"},
			{URL: "https://api.tally.app/api/v1", Description: "Production"},
		},
		Paths:      convertNode(paths).(map[string]any),
		Components: components,
	}

	return c.JSON(http.StatusOK, spec)
}

// convertNode walks a Swagger 2.0 fragment, repointing $ref targets to
// components/schemas and lifting parameter type fields into schema
// objects the OpenAPI 3 way.
func convertNode(node any) any {
	switch v := node.(type) {
	case map[string]any:
		if isParameter(v) {
			return convertParameter(v)
		}
		out := make(map[string]any, len(v))
		for key, value := range v {
			if key == "$ref" {
				if ref, ok := value.(string); ok {
					out[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
					continue
				}
			}
			out[key] = convertNode(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = convertNode(item)
		}
		return out
	default:
		return node
	}
}

func isParameter(m map[string]any) bool {
	_, hasIn := m["in"]
	_, hasName := m["name"]
	return hasIn && hasName
}

// convertParameter rewrites a non-body Swagger 2.0 parameter. Body
// parameters map to requestBody in OpenAPI 3 and are passed through
// untouched.
func convertParameter(param map[string]any) map[string]any {
	if param["in"] == "body" {
		return param
	}

	out := map[string]any{}
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			out[field] = val
		}
	}

	schema := map[string]any{}
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			if field == "items" {
				schema[field] = convertNode(val)
			} else {
				schema[field] = val
			}
		}
	}
	if len(schema) > 0 {
		out["schema"] = schema
	}

	return out
}
