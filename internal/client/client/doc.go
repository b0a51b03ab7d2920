// Package client is a thin gRPC client for the DocAnchor service. Results
// are returned as plain maps decoded from the structpb responses.
package client
