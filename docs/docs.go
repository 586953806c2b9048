// Package docs registers the OpenAPI document served under /swagger.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag/v2"
)

//go:embed openapi.json
var openAPI string

type document struct{}

// ReadDoc returns the OpenAPI document
func (document) ReadDoc() string {
	return openAPI
}

func init() {
	swag.Register(swag.Name, document{})
}
