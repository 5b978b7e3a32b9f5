package api

import (
	"github.com/JaimeStill/mathlens/internal/config"
	"github.com/JaimeStill/mathlens/pkg/openapi"
)

// buildSpec generates the OpenAPI document for the pipeline and capture
// history endpoints.
func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"ProcessRequest": {
			Type:     "object",
			Required: []string{"image"},
			Properties: map[string]*openapi.Schema{
				"image":  {Type: "string", Format: "byte", Description: "Base64-encoded PNG or JPEG image"},
				"source": {Type: "string", Enum: []any{"camera", "file-upload"}, Default: "camera"},
			},
		},
		"ManualRequest": {
			Type:     "object",
			Required: []string{"expression"},
			Properties: map[string]*openapi.Schema{
				"expression": {Type: "string", Example: "2 + 3 * 4"},
			},
		},
		"Result": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"expression":      {Type: "string", Description: "Validated expression"},
				"confidence":      {Type: "number", Description: "Recognition confidence in [0.0, 1.0]"},
				"value":           {Type: "number", Description: "Evaluated result"},
				"complexity":      {Type: "string"},
				"processing_time": {Type: "integer", Description: "Nanoseconds"},
				"retry_count":     {Type: "integer"},
				"source":          {Type: "string"},
				"warning":         {Type: "string", Description: "Low-confidence warning, when surfaced"},
				"completed_at":    {Type: "string", Format: "date-time"},
			},
		},
		"Fault": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"class":            {Type: "string"},
				"kind":             {Type: "string"},
				"message":          {Type: "string"},
				"stage":            {Type: "string"},
				"recoverable":      {Type: "boolean"},
				"retryable":        {Type: "boolean"},
				"suggested_action": {Type: "string"},
				"timestamp":        {Type: "string", Format: "date-time"},
			},
		},
		"ProcessingState": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"stage":       {Type: "string"},
				"progress":    {Type: "number"},
				"message":     {Type: "string"},
				"retry_count": {Type: "integer"},
				"started_at":  {Type: "string", Format: "date-time"},
				"updated_at":  {Type: "string", Format: "date-time"},
				"error":       openapi.SchemaRef("Fault"),
			},
		},
		"Capture": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"expression":  {Type: "string"},
				"confidence":  {Type: "number"},
				"value":       {Type: "number"},
				"source":      {Type: "string"},
				"retry_count": {Type: "integer"},
				"duration_ms": {Type: "integer"},
				"storage_key": {Type: "string"},
				"captured_at": {Type: "string", Format: "date-time"},
			},
		},
	})

	spec.Paths["/pipeline"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Process a captured image",
			Tags:        []string{"pipeline"},
			RequestBody: openapi.RequestBodyJSON("ProcessRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Validated, calculable expression", "Result"),
				422: openapi.ResponseJSON("Image, parsing, or validation fault", "Fault"),
				502: openapi.ResponseJSON("Recognition service fault", "Fault"),
			},
		},
	}
	spec.Paths["/pipeline/manual"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Evaluate a manually entered expression",
			Tags:        []string{"pipeline"},
			RequestBody: openapi.RequestBodyJSON("ManualRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Validated, calculable expression", "Result"),
				422: openapi.ResponseJSON("Validation fault", "Fault"),
			},
		},
	}
	spec.Paths["/pipeline/batch"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Process multiple images concurrently",
			Tags:    []string{"pipeline"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Per-item results and faults, in submission order"},
			},
		},
	}
	spec.Paths["/pipeline/state"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Current processing state",
			Tags:    []string{"pipeline"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Stage, progress, and retry count", "ProcessingState"),
			},
		},
	}
	spec.Paths["/pipeline/cancel"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Cancel the active capture",
			Tags:    []string{"pipeline"},
			Responses: map[int]*openapi.Response{
				204: {Description: "Cancellation requested"},
			},
		},
	}
	spec.Paths["/pipeline/fallbacks"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Resolve fallback strategy for a fault",
			Tags:    []string{"pipeline"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Ranked fallback options filtered by platform capabilities"},
			},
		},
	}
	spec.Paths["/pipeline/fallbacks/execute"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Execute a fallback option",
			Tags:    []string{"pipeline"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Fallback outcome"},
			},
		},
	}

	spec.Paths["/captures"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List capture history",
			Tags:    []string{"captures"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Expression search", false),
				openapi.QueryParam("source", "string", "Filter by capture source", false),
				openapi.QueryParam("min_confidence", "number", "Minimum recognition confidence", false),
			},
			Responses: map[int]*openapi.Response{
				200: {Description: "Paged capture history"},
			},
		},
		Delete: &openapi.Operation{
			Summary: "Clear capture history",
			Tags:    []string{"captures"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Count of removed captures"},
			},
		},
	}
	spec.Paths["/captures/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a capture",
			Tags:       []string{"captures"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Capture identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Capture record", "Capture"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary:    "Delete a capture",
			Tags:       []string{"captures"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Capture identifier")},
			Responses: map[int]*openapi.Response{
				204: {Description: "Capture deleted"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/captures/{id}/image"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Download the source image for a capture",
			Tags:       []string{"captures"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Capture identifier")},
			Responses: map[int]*openapi.Response{
				200: {Description: "PNG image bytes"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/storage"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List stored blobs",
			Tags:    []string{"storage"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("prefix", "string", "Key prefix filter", false),
				openapi.QueryParam("marker", "string", "Continuation marker from a previous page", false),
				openapi.QueryParam("max_results", "integer", "Page size", false),
			},
			Responses: map[int]*openapi.Response{
				200: {Description: "One page of blob metadata"},
			},
		},
	}
	spec.Paths["/storage/{key}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Blob metadata",
			Tags:    []string{"storage"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Blob metadata"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/storage/download/{key}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Download a blob",
			Tags:    []string{"storage"},
			Responses: map[int]*openapi.Response{
				200: {Description: "Blob content"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	return spec
}
