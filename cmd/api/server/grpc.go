package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcadapter "user-onboarding-service/internal/adapter/grpc"
	"user-onboarding-service/internal/adapter/grpc/middleware"
	"user-onboarding-service/internal/usecase/user"
	"user-onboarding-service/pkg/logger"
)

// SetupGRPC creates the gRPC server with request ID and rate limit interceptors
func SetupGRPC(userUC user.Usecase, l *zap.Logger, rateLimiter *middleware.RateLimiter) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	grpcadapter.RegisterUserServiceServer(grpcServer, grpcadapter.NewUserService(userUC, l))

	return grpcServer
}
