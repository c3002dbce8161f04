package server

import "go.uber.org/zap"

// ServerOption configures a Server
type ServerOption func(*Server)

// WithWorkers sets the maximum number of connections served at once
func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		s.workers = n
	}
}

// WithLogger sets the server logger
func WithLogger(logger *zap.SugaredLogger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}
