// Package relay turns a serialized request description into one outbound
// HTTP call and the remote response into a normalized envelope.
//
// The pipeline is:
//
//	ParseHeaders -> Dispatcher (method fallback, body encoder, send)
//	    -> DecodeResponse -> Envelope.Encode
//
// Unknown methods are sent as GET and unknown content-type tags send no
// body. Neither is reported as an error.
package relay
