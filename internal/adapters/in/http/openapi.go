package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/labstack/echo/v4"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// APIPrefix is the path prefix of every documented route.
const APIPrefix = "/api/v1"

// LoadOpenAPI parses and validates the embedded API document.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

// OpenAPIDocument returns the raw embedded document, served at /openapi.yaml.
func OpenAPIDocument() []byte {
	return openAPIDocument
}

// requestValidator rejects API requests that do not match the document
// before any handler runs. Paths outside the API are passed through.
func requestValidator(doc *openapi3.T) (echo.MiddlewareFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, APIPrefix) {
				return next(c)
			}

			route, pathParams, err := router.FindRoute(req)
			switch {
			case errors.Is(err, routers.ErrPathNotFound):
				return next(c)
			case errors.Is(err, routers.ErrMethodNotAllowed):
				return c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
					Code:    codeMethodNotAllowed,
					Message: fmt.Sprintf("%s is not allowed on %s", req.Method, req.URL.Path),
				})
			case err != nil:
				return c.JSON(http.StatusBadRequest, ErrorResponse{Code: codeValidation, Message: err.Error()})
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					MultiError:         true,
				},
			}
			if err = openapi3filter.ValidateRequest(req.Context(), input); err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Code: codeValidation, Message: err.Error()})
			}
			return next(c)
		}
	}, nil
}
