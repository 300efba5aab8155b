package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/gaspardpetit/promptrelay/internal/logx"
)

// Document describes the public HTTP surface. Both relay paths share one
// operation.
func Document(version string) *openapi3.T {
	chatReq := openapi3.NewObjectSchema().WithProperty("prompt", openapi3.NewStringSchema().WithMinLength(1))
	chatReq.Required = []string{"prompt"}
	chatResp := openapi3.NewObjectSchema().WithProperty("response", openapi3.NewStringSchema())
	errResp := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())

	chat := openapi3.NewOperation()
	chat.OperationID = "postChat"
	chat.Summary = "Relay a prompt to the text generation provider"
	chat.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(chatReq)}
	chat.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, jsonResponse("Generated text", chatResp)),
		openapi3.WithStatus(http.StatusBadRequest, textResponse("No prompt received")),
		openapi3.WithStatus(http.StatusUnauthorized, jsonResponse("Missing or invalid client key", errResp)),
		openapi3.WithStatus(http.StatusMethodNotAllowed, textResponse("Only POST is accepted")),
		openapi3.WithStatus(http.StatusInternalServerError, jsonResponse("Any other failure; the message never varies", errResp)),
	)

	alias := *chat
	alias.OperationID = "postChatFunction"

	health := openapi3.NewOperation()
	health.OperationID = "getHealthz"
	health.Summary = "Liveness and drain status"
	health.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, textResponse("Serving")),
		openapi3.WithStatus(http.StatusServiceUnavailable, textResponse("Draining")),
	)

	stateResp := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("draining", openapi3.NewBoolSchema()).
		WithProperty("inflight", openapi3.NewInt64Schema())
	state := openapi3.NewOperation()
	state.OperationID = "getState"
	state.Summary = "Server lifecycle state"
	state.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, jsonResponse("Current state", stateResp)),
	)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "promptrelay API", Version: version},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/chat", &openapi3.PathItem{Post: chat}),
			openapi3.WithPath("/.netlify/functions/chat", &openapi3.PathItem{Post: &alias}),
			openapi3.WithPath("/healthz", &openapi3.PathItem{Get: health}),
			openapi3.WithPath("/api/state", &openapi3.PathItem{Get: state}),
		),
	}
}

func jsonResponse(desc string, s *openapi3.Schema) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(desc).WithJSONSchema(s)}
}

func textResponse(desc string) *openapi3.ResponseRef {
	content := openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"})
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(desc).WithContent(content)}
}

// OpenAPIHandler serves the OpenAPI document as JSON.
func OpenAPIHandler(version string) http.HandlerFunc {
	b, err := Document(version).MarshalJSON()
	if err != nil {
		panic(err)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(b); err != nil {
			logx.Log.Error().Err(err).Msg("write openapi")
		}
	}
}

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <title>promptrelay API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
  window.onload = () => {
    SwaggerUIBundle({
      url: '/api/openapi.json',
      dom_id: '#swagger-ui'
    });
  };
  </script>
</body>
</html>`

// SwaggerHandler serves a minimal Swagger UI for the document.
func SwaggerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(swaggerPage)); err != nil {
			logx.Log.Error().Err(err).Msg("write swagger page")
		}
	}
}
