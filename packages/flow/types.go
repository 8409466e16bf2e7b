package flow

import (
	"encoding/json"

	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
)

// Run is the inbound payload of POST /flow.
type Run struct {
	Nodes     []Node     `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	Variables []Variable `json:"variables"`
}

// Node is one block of the flow graph. Only nodes of type RequestBlock that
// carry request data send anything.
type Node struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data *NodeData `json:"data,omitempty"`
}

// RequestBlock is the node type that sends a request
const RequestBlock = "requestBlock"

type NodeData struct {
	BlockName   string       `json:"blockName"`
	RequestData *RequestData `json:"requestData,omitempty"`
}

// Edge connects Source to Target. Execution follows edges from StartNodeID.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Variable is an environment variable substituted for {{Key}}. Unchecked
// variables and those with a blank key or value are ignored.
type Variable struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// KeyValue is a header, query parameter or form field. Only checked entries
// are sent.
type KeyValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// RequestData describes the request of one node.
type RequestData struct {
	Name                    string       `json:"name"`
	Method                  string       `json:"method"`
	URL                     string       `json:"url"`
	Headers                 []KeyValue   `json:"headers,omitempty"`
	QueryParams             []KeyValue   `json:"queryParams,omitempty"`
	Body                    *RequestBody `json:"body,omitempty"`
	SelectedRequestBodyType string       `json:"selectedRequestBodyType,omitempty"`
	SelectedRequestAuthType string       `json:"selectedRequestAuthType,omitempty"`
	Auth                    *Auth        `json:"auth,omitempty"`
}

type RequestBody struct {
	Raw        string     `json:"raw,omitempty"`
	URLEncoded []KeyValue `json:"urlencoded,omitempty"`
	FormData   *FormData  `json:"formdata,omitempty"`
}

type FormData struct {
	Text []KeyValue  `json:"text,omitempty"`
	File []FileField `json:"file,omitempty"`
}

// FileField is a multipart file part. Base is a data: URL.
type FileField struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Base    string `json:"base,omitempty"`
	Checked *bool  `json:"checked,omitempty"`
}

// Auth modes
const (
	AuthNone   = "No Auth"
	AuthBearer = "Bearer Token"
	AuthBasic  = "Basic Auth"
	AuthAPIKey = "API Key"
)

// API key placements
const (
	AddToHeader = "Header"
	AddToQuery  = "Query Parameter"
)

type Auth struct {
	BearerToken string     `json:"bearerToken,omitempty"`
	BasicAuth   *BasicAuth `json:"basicAuth,omitempty"`
	APIKey      *APIKey    `json:"apiKey,omitempty"`
}

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type APIKey struct {
	AuthKey   string `json:"authKey"`
	AuthValue string `json:"authValue"`
	AddTo     string `json:"addTo"`
}

// Run outcomes
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// StatusError is reported for a node that produced no HTTP response
const StatusError = "ERROR"

// Result is the outcome of a flow run.
type Result struct {
	History History                    `json:"history"`
	Chain   map[string]json.RawMessage `json:"requestChainResponse"`
	Nodes   []NodeResult               `json:"nodes"`
}

// History summarizes the run.
type History struct {
	Status          string           `json:"status"`
	SuccessRequests int              `json:"successRequests"`
	FailedRequests  int              `json:"failedRequests"`
	TotalTime       string           `json:"totalTime"`
	TotalTimeMs     int64            `json:"totalTimeMs"`
	Requests        []RequestSummary `json:"requests"`
}

// RequestSummary is one history line. ErrorMessage and Error come from the
// "message" and "error" fields of a failed response's JSON body, or from the
// relay error when there was no response.
type RequestSummary struct {
	Method       string `json:"method"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Time         string `json:"time"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NodeResult is what one executed node sent and received.
type NodeResult struct {
	ID       string       `json:"id"`
	Response NodeResponse `json:"response"`
	Request  *RequestData `json:"request"`
}

type NodeResponse struct {
	Body        string              `json:"body"`
	Headers     []relay.HeaderEntry `json:"headers"`
	Status      string              `json:"status"`
	TimeMs      int64               `json:"time"`
	SizeKB      float64             `json:"size"`
	ContentType string              `json:"responseContentType,omitempty"`
}
