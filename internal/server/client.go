package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// CheckConfig configures a health probe against a running server.
type CheckConfig struct {
	Address    string
	Service    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultCheckConfig returns a probe configuration for address.
func DefaultCheckConfig(address string) CheckConfig {
	return CheckConfig{
		Address:    address,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
	}
}

// CheckHealth asks the gRPC health service at cfg.Address for the status of
// cfg.Service and fails unless it is SERVING.
func CheckHealth(ctx context.Context, cfg CheckConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(retryInterceptor(cfg.MaxRetries, cfg.RetryDelay, logger)),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}
	defer conn.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: cfg.Service})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", cfg.Service, resp.Status)
	}
	return nil
}

// retryInterceptor retries unary calls that failed with a transient code.
func retryInterceptor(maxRetries int, retryDelay time.Duration, logger *zap.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var err error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			err = invoker(ctx, method, req, reply, cc, opts...)
			if err == nil || !isRetryableError(err) {
				return err
			}

			if attempt < maxRetries {
				logger.Warn("Retrying gRPC call",
					zap.String("method", method),
					zap.Int("attempt", attempt+1),
					zap.Int("max_retries", maxRetries),
					zap.Error(err))

				select {
				case <-time.After(retryDelay * time.Duration(attempt+1)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return err
	}
}

func isRetryableError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
