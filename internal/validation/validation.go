// Package validation checks that required backing services are reachable
// before the server starts taking traffic.
package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/database"
	"github.com/pinlens/backend/internal/logger"
)

// ServiceValidator handles validation of required backing services
type ServiceValidator struct {
	requiredServices []string
}

// NewServiceValidator creates a new service validator
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(),
	}
}

// ValidateServices validates all configured services
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	services := sv.getServiceChecks()

	for _, serviceName := range sv.requiredServices {
		serviceChecker, ok := services[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation",
				zap.String("service", serviceName),
			)
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := serviceChecker(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", serviceName),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q validation failed: %w", serviceName, err)
		}

		logger.Log.Info("✅ Service validated",
			zap.String("service", serviceName),
		)
	}

	return nil
}

func (sv *ServiceValidator) getServiceChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"postgres": validatePostgres,
		"redis":    validateRedis,
	}
}

func validatePostgres(_ context.Context) error {
	return database.Health()
}

func validateRedis(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s",
		getEnvOrDefault("REDIS_HOST", "localhost"),
		getEnvOrDefault("REDIS_PORT", "6379"),
	)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer client.Close()

	return client.Ping(ctx).Err()
}

// parseRequiredServices reads REQUIRED_SERVICES, a comma-separated list.
// Empty means no validation; production deployments set "postgres,redis".
func parseRequiredServices() []string {
	raw := os.Getenv("REQUIRED_SERVICES")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	services := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			services = append(services, p)
		}
	}
	return services
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
