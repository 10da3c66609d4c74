package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"supabase-keepalive/internal/keepalive/scheduler"
)

// ServiceName is the health service reporting whether the last keepalive ping reached the database.
// The empty service name reports process liveness.
const ServiceName = "keepalive"

// Server implements grpc.health.v1.Health and scheduler.Observer.
// "keepalive" starts NOT_SERVING and follows each ping outcome; "" is SERVING until the scheduler stops.
type Server struct {
	health *health.Server
}

// NewServer returns a health server with "keepalive" NOT_SERVING until the first successful ping.
func NewServer() *Server {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{health: hs}
}

// Register adds the Health service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.health)
}

// PingResult marks the keepalive service SERVING after a successful ping and NOT_SERVING otherwise.
func (s *Server) PingResult(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// StateChanged flips every service to NOT_SERVING once the scheduler stops.
func (s *Server) StateChanged(state scheduler.State) {
	if state == scheduler.StateStopped {
		s.health.Shutdown()
	}
}

// Shutdown sets all services NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}
