package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// relayRequestSchema describes the POST /api payload. Every field is a
// string and all five are required; extra fields are ignored.
const relayRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["url", "method", "headers", "body", "request"],
  "properties": {
    "url":     {"type": "string", "minLength": 1},
    "method":  {"type": "string"},
    "headers": {"type": "string"},
    "body":    {"type": "string"},
    "request": {"type": "string"}
  }
}`

// graphqlRequestSchema describes the POST /graphql payload. The body may be
// a JSON value or a string holding one.
const graphqlRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["url", "method", "headers"],
  "properties": {
    "url":         {"type": "string", "minLength": 1},
    "method":      {"type": "string"},
    "headers":     {"type": "string"},
    "contentType": {"type": "string"}
  }
}`

// flowRunSchema describes the POST /flow payload.
const flowRunSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id":   {"type": "string", "minLength": 1},
          "type": {"type": "string"}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"}
        }
      }
    },
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key", "value"],
        "properties": {
          "key":   {"type": "string"},
          "value": {"type": "string"}
        }
      }
    }
  }
}`

var (
	relayRequestSchemaLoader   = gojsonschema.NewStringLoader(relayRequestSchema)
	graphqlRequestSchemaLoader = gojsonschema.NewStringLoader(graphqlRequestSchema)
	flowRunSchemaLoader        = gojsonschema.NewStringLoader(flowRunSchema)
)

func validateAgainst(schema gojsonschema.JSONLoader, data []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid request payload: %v", err)
	}

	if result.Valid() {
		return nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return fmt.Errorf("invalid request payload: %s", strings.Join(errors, "; "))
}
