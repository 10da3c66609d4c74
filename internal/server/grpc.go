// Package server hosts the optional gRPC endpoint of the keepalive process.
package server

import (
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	healthhandler "supabase-keepalive/internal/health/handler"
)

// Deps holds the services exposed over gRPC.
type Deps struct {
	// Health reports keepalive status. If nil, a fresh health server (keepalive NOT_SERVING) is registered.
	Health *healthhandler.Server
}

// NewServer returns a gRPC server instrumented with otelgrpc using the global tracer and meter providers.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	return grpc.NewServer(opts...)
}

// RegisterServices registers all gRPC services with the given server.
//
//   - grpc.health.v1.Health → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	health := deps.Health
	if health == nil {
		health = healthhandler.NewServer()
	}
	health.Register(s)
}

// Running is a started gRPC server.
type Running struct {
	server *grpc.Server
	lis    net.Listener
}

// Start listens on addr and serves the registered services in a goroutine.
func Start(addr string, deps Deps) (*Running, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := NewServer()
	RegisterServices(s, deps)
	go func() {
		log.Printf("server: gRPC health listening on %s", lis.Addr())
		if err := s.Serve(lis); err != nil {
			log.Printf("server: serve: %v", err)
		}
	}()
	return &Running{server: s, lis: lis}, nil
}

// Addr returns the listening address.
func (r *Running) Addr() net.Addr { return r.lis.Addr() }

// Stop gracefully stops the server.
func (r *Running) Stop() {
	if r == nil {
		return
	}
	r.server.GracefulStop()
	log.Println("server: gRPC health stopped")
}
