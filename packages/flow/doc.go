// Package flow runs a graph of requests through the relay. Execution starts
// at node "1" and follows edges depth first. Each request node may use
// {{variable}} placeholders and reach into the requests and responses of
// nodes that ran before it:
//
//	{{$$login.response.body.token}}
//	[*$[ $$login.response.body.user ]$*]
//
// The part after the block name is a gjson path.
package flow
