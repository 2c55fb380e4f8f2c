// Package detapi is the client for the remote batch detection service.
//
// It owns the wire shapes of the two consumed endpoints (task submission
// and task status), parses responses into typed values exactly once at
// this boundary, and defines the transport-level error taxonomy. The
// client is stateless: task identity and status live on the Task entity,
// not here.
package detapi
