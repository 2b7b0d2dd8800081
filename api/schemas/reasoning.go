// File: api/schemas/reasoning.go
package schemas

import "context"

// FileHandle references an artifact that has been handed to a reasoning
// service. Name is provider specific and is what Release needs; URI is what
// a generation request refers to.
type FileHandle struct {
	Name     string
	URI      string
	MIMEType string
}

// ReasoningService is an external vision+text model endpoint.
type ReasoningService interface {
	// Upload makes the file at path available to subsequent Generate calls.
	Upload(ctx context.Context, path string) (FileHandle, error)
	// Generate asks model to answer instruction about the uploaded file.
	Generate(ctx context.Context, model, instruction string, file FileHandle) (string, error)
	// Release frees any remote resources held for file. Providers that keep
	// nothing remotely return nil.
	Release(ctx context.Context, file FileHandle) error
}
