package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name of the HTTP API.
const ServiceName = "estatedesk.api"

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ops is the gRPC operations server.
type Ops struct {
	Server *grpc.Server
	health *health.Server
	db     Pinger
	log    *zap.Logger
}

// New builds the ops server. Health starts NOT_SERVING until the first successful ping.
func New(db Pinger, log *zap.Logger, dev bool, opts ...grpc.ServerOption) *Ops {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if dev {
		reflection.Register(s)
	}
	o := &Ops{Server: s, health: hs, db: db, log: log}
	o.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return o
}

func (o *Ops) set(st healthpb.HealthCheckResponse_ServingStatus) {
	o.health.SetServingStatus("", st)
	o.health.SetServingStatus(ServiceName, st)
}

// Check pings the database once and publishes the result.
func (o *Ops) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := o.db.Ping(ctx); err != nil {
		o.log.Warn("health: database unreachable", zap.Error(err))
		o.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	o.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Watch re-checks every interval until ctx is done, then marks everything NOT_SERVING.
func (o *Ops) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	o.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			o.health.Shutdown()
			return
		case <-t.C:
			o.Check(ctx)
		}
	}
}
