// Package observability provides structured logging for insight-rag.
//
// Loggers are zap-based; request IDs travel in the context and are attached
// to every log line written while serving that request.
package observability
