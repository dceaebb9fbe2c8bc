package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestTiming holds the connection timings of one exchange.
type RequestTiming struct {
	DNSLookup        time.Duration `json:"dns_lookup"`
	TCPHandshake     time.Duration `json:"tcp_handshake"`
	TLSHandshake     time.Duration `json:"tls_handshake"`
	ServerTime       time.Duration `json:"server_time"`
	TotalDuration    time.Duration `json:"total_duration"`
	ConnectionReused bool          `json:"connection_reused"`
	StatusCode       int           `json:"status_code"`
	Protocol         string        `json:"protocol"`
}

func timingOf(res *resty.Response) RequestTiming {
	info := res.Request.TraceInfo()
	timing := RequestTiming{
		DNSLookup:        info.DNSLookup,
		TCPHandshake:     info.TCPConnTime,
		TLSHandshake:     info.TLSHandshake,
		ServerTime:       info.ServerTime,
		TotalDuration:    info.TotalTime,
		ConnectionReused: info.IsConnReused,
		StatusCode:       res.StatusCode(),
	}
	if res.RawResponse != nil {
		timing.Protocol = res.RawResponse.Proto
	}
	return timing
}

// instrument logs every exchange at debug level and wraps it in a span.
func instrument(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
		req.SetContext(ctx)
		slog.DebugContext(ctx, "start request", "method", req.Method, "url", req.URL)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()

		timing := timingOf(res)
		span.SetAttributes(
			attribute.String("http.method", res.Request.Method),
			attribute.String("http.url", res.Request.URL),
			attribute.Int("http.status_code", timing.StatusCode),
		)
		if timing.StatusCode >= 400 {
			span.SetStatus(codes.Error, res.Status())
		}
		slog.DebugContext(
			ctx, "request done",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", timing.StatusCode,
			"proto", timing.Protocol,
			"total", timing.TotalDuration,
			"server", timing.ServerTime,
			"reused", timing.ConnectionReused,
		)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		ctx := req.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()

		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		slog.ErrorContext(ctx, "request failed", "method", req.Method, "url", req.URL, "err", err)
	})
}
