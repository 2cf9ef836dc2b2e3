package metrics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor records count, latency and in-flight gauge per method.
func (p *Prom) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		p.InFlight.WithLabelValues(info.FullMethod).Inc()
		defer p.InFlight.WithLabelValues(info.FullMethod).Dec()

		resp, err := handler(ctx, req)

		p.observe(info.FullMethod, err, start)
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
// It also counts every message the handler sends.
func (p *Prom) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		p.InFlight.WithLabelValues(info.FullMethod).Inc()
		defer p.InFlight.WithLabelValues(info.FullMethod).Dec()

		err := handler(srv, &countingStream{ServerStream: ss, sent: p.StreamMessages.WithLabelValues(info.FullMethod)})

		p.observe(info.FullMethod, err, start)
		return err
	}
}

func (p *Prom) observe(method string, err error, start time.Time) {
	code := status.Code(err).String()
	p.RequestsTotal.WithLabelValues(method, code).Inc()
	p.RequestsDuration.WithLabelValues(method, code).Observe(time.Since(start).Seconds())
}

type counter interface {
	Inc()
}

type countingStream struct {
	grpc.ServerStream
	sent counter
}

func (s *countingStream) SendMsg(m any) error {
	if err := s.ServerStream.SendMsg(m); err != nil {
		return err
	}
	s.sent.Inc()
	return nil
}
