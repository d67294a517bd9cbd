package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

// apiContract describes the request side of the public API. Responses are
// produced by this package and are not validated.
const apiContract = `
openapi: 3.0.3
info:
  title: Campus Notice Assistant API
  version: 1.0.0
paths:
  /v1/chat:
    post:
      operationId: chat
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              additionalProperties: false
              required: [question]
              properties:
                question:
                  type: string
                  minLength: 3
                  maxLength: 400
                user_id:
                  type: string
                  nullable: true
                  maxLength: 128
                department:
                  type: string
                  nullable: true
                  maxLength: 64
                grade:
                  type: string
                  nullable: true
                  maxLength: 16
      responses:
        "200":
          description: Grounded answer or refusal.
        "503":
          description: Notice store unavailable.
  /v1/notices/{notice_id}/index:
    post:
      operationId: requestNoticeIndex
      parameters:
        - name: notice_id
          in: path
          required: true
          schema:
            type: string
            minLength: 1
            maxLength: 128
      responses:
        "202":
          description: Indexing scheduled.
        "404":
          description: Unknown notice.
`

var loadAPIRouter = sync.OnceValues(func() (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(apiContract))
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate api contract: %w", err)
	}
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}
	return router, nil
})

// requestValidationMiddleware rejects requests that break the API contract.
// Paths outside the contract fall through to the mux.
func requestValidationMiddleware(router routers.Router, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				MultiError: false,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":  errCodeInvalidRequest,
				"detail": validationDetail(err),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validationDetail(err error) string {
	var requestErr *openapi3filter.RequestError
	if errors.As(err, &requestErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(requestErr.Err, &schemaErr) {
			return schemaErr.Reason
		}
		if requestErr.Reason != "" {
			return requestErr.Reason
		}
	}
	return "request does not match the api contract"
}
