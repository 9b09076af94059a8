package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	ginhandler "user-onboarding-service/internal/adapter/gin/handler"
	ginrouter "user-onboarding-service/internal/adapter/gin/router"
	"user-onboarding-service/internal/adapter/grpc/middleware"
	"user-onboarding-service/internal/config"
	"user-onboarding-service/internal/usecase/user"
)

// Server runs the gRPC and REST transports side by side.
type Server struct {
	Logger *zap.Logger
	GRPC   *grpc.Server
	Gin    *http.Server

	grpcAddr string
}

// New builds both transports over userUC.
func New(
	cfg *config.Config,
	l *zap.Logger,
	userUC user.Usecase,
	rateLimiter *middleware.RateLimiter,
	handler *ginhandler.UserHandler,
	routerOpts ginrouter.Options,
) *Server {
	return &Server{
		Logger:   l,
		GRPC:     SetupGRPC(userUC, l, rateLimiter),
		Gin:      SetupGinServer(handler, routerOpts, cfg.App.Env, ":"+cfg.App.HTTPPort, l),
		grpcAddr: ":" + cfg.App.GRPCPort,
	}
}

// Start listens on both ports and serves until either server fails or both
// are shut down.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	grpcLis, err := lc.Listen(ctx, "tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.grpcAddr, err)
	}
	httpLis, err := lc.Listen(ctx, "tcp", s.Gin.Addr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.Gin.Addr, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.Logger.Info("Gin server running", zap.String("address", httpLis.Addr().String()))
		if err := s.Gin.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires, after which gRPC connections are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.Logger.Info("shutting down Gin server...")
	if err := s.Gin.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
	}

	s.Logger.Info("shutting down gRPC server...")
	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.GRPC.Stop()
		errs = append(errs, fmt.Errorf("gRPC graceful stop: %w", ctx.Err()))
	}

	return errors.Join(errs...)
}
