package utils

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

func GetTraceID(c echo.Context) string {
	if span := sentryecho.GetSpanFromContext(c); span != nil {
		return span.TraceID.String()
	}
	return GetTraceIDFromHTTPRequest(c.Request())
}

// GetTraceIDFromHTTPRequest returns the trace ID of the span carried by the request context, if any.
func GetTraceIDFromHTTPRequest(r *http.Request) string {
	if span := sentry.SpanFromContext(r.Context()); span != nil {
		return span.TraceID.String()
	}
	return ""
}
