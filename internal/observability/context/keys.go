package context

import "context"

type contextKey string

const (
	requestIDKey     contextKey = "observability_request_id"
	correlationIDKey contextKey = "observability_correlation_id"
	resourceIDKey    contextKey = "observability_resource_external_id"
	resourceTypeKey  contextKey = "observability_resource_type"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil || correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(correlationIDKey).(string)
	return value
}

// WithResource tags the context with the resource currently being projected.
func WithResource(ctx context.Context, resourceType, externalID string) context.Context {
	if ctx == nil {
		return ctx
	}
	if resourceType != "" {
		ctx = context.WithValue(ctx, resourceTypeKey, resourceType)
	}
	if externalID != "" {
		ctx = context.WithValue(ctx, resourceIDKey, externalID)
	}
	return ctx
}

func ResourceFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	resourceType, _ := ctx.Value(resourceTypeKey).(string)
	externalID, _ := ctx.Value(resourceIDKey).(string)
	return resourceType, externalID
}
