package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/auth"
)

var ErrBadCheck = errors.New("unknown security check")

type checkFunc func(userID string, in CheckInput) bool

var checks = map[string]checkFunc{
	CheckLogin: func(userID string, in CheckInput) bool {
		return userID != "" && in.LoginVerified
	},
	CheckIPAddress: func(_ string, in CheckInput) bool {
		return in.IPAddress != ""
	},
	// no second factor exists yet
	CheckDualFactor: func(string, CheckInput) bool {
		return true
	},
}

// Guard answers whether a user may perform an operation on a feature
type Guard struct {
	records map[string]map[string]Protection
	logger  *zap.Logger
}

// NewGuard builds a guard over records. Later records for the same feature
// replace earlier ones.
func NewGuard(records []FeatureRecord, logger *zap.Logger) *Guard {
	g := &Guard{
		records: make(map[string]map[string]Protection, len(records)),
		logger:  logger,
	}
	for _, r := range records {
		g.records[r.Feature] = r.Operations
	}
	return g
}

// LoadGuard builds a guard from the defaults overlaid with stored records
func LoadGuard(ctx context.Context, store Store, defaults []FeatureRecord, logger *zap.Logger) (*Guard, error) {
	stored, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded security records", zap.Int("stored", len(stored)), zap.Int("defaults", len(defaults)))
	return NewGuard(append(append([]FeatureRecord{}, defaults...), stored...), logger), nil
}

// IsPermitted reports whether userID may perform operation on feature.
// Features and operations without a record are open.
func (g *Guard) IsPermitted(feature, operation, userID string, in CheckInput) (bool, error) {
	ops, ok := g.records[feature]
	if !ok {
		return true, nil
	}
	prot, ok := ops[operation]
	if !ok {
		return true, nil
	}
	if len(prot.UserList) > 0 && !slices.Contains(prot.UserList, userID) {
		return false, nil
	}

	for name, enabled := range prot.Checks {
		check, ok := checks[name]
		if !ok {
			return false, fmt.Errorf("%w: %q on %s/%s", ErrBadCheck, name, feature, operation)
		}
		if enabled && !check(userID, in) {
			return false, nil
		}
	}
	return true, nil
}

// Require aborts requests the caller is not permitted to make
func (g *Guard) Require(feature, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CallerEmail(c)
		ok, err := g.IsPermitted(feature, operation, userID, CheckInput{
			LoginVerified: userID != "",
			IPAddress:     c.ClientIP(),
		})
		if err != nil {
			g.logger.Error("Security check failed",
				zap.String("feature", feature),
				zap.String("operation", operation),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			status := http.StatusForbidden
			if userID == "" {
				status = http.StatusUnauthorized
			}
			g.logger.Warn("Operation denied",
				zap.String("feature", feature),
				zap.String("operation", operation),
				zap.String("user", userID))
			c.AbortWithStatusJSON(status, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}
