package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/treinix/treinix/centro"

	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"
)

// GateOptions provides initialization parameters for Gate
type GateOptions struct {
	Redis               redis.UniversalClient
	CentroManager       *centro.Manager
	SubscriptionManager *Manager
	Evaluator           Evaluator
	Logger              *zap.Logger
}

// Gate answers "does this centro have access right now". Verdicts are cached
// in Redis for AccessCacheTTL so that every page load within the window
// shares one evaluation; a lookup failure is a denial, with no retry.
type Gate struct {
	GateOptions
}

// NewGate will create a Gate for access checks
func NewGate(option GateOptions) (*Gate, error) {
	if option.Redis == nil {
		return nil, fmt.Errorf("nil Redis is invalid")
	}
	if option.CentroManager == nil {
		return nil, fmt.Errorf("nil CentroManager is invalid")
	}
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Gate{
		GateOptions: option,
	}, nil
}

func cacheKey(centroID string) string {
	return "access:" + centroID
}

// Check returns the (possibly cached) access verdict for a centro
func (g *Gate) Check(ctx context.Context, centroID string) Verdict {
	cached, err := g.Redis.Get(cacheKey(centroID)).Result()
	if err == nil {
		var v Verdict
		if err := json.Unmarshal([]byte(cached), &v); err == nil {
			return v
		}
	} else if err != redis.Nil {
		g.Logger.Error("Unable to read access cache",
			zap.Error(err),
			zap.String("CentroID", centroID),
		)
		// fail through to a fresh evaluation
	}

	v := g.evaluate(ctx, centroID)

	if encoded, err := json.Marshal(&v); err == nil {
		if err := g.Redis.Set(cacheKey(centroID), encoded, AccessCacheTTL).Err(); err != nil {
			g.Logger.Error("Unable to write access cache",
				zap.Error(err),
				zap.String("CentroID", centroID),
			)
			// fail through: next check evaluates again
		}
	}

	return v
}

// Invalidate drops the cached verdict so the next check re-evaluates,
// used after operator actions that change a centro's standing
func (g *Gate) Invalidate(ctx context.Context, centroID string) {
	if err := g.Redis.Del(cacheKey(centroID)).Err(); err != nil {
		g.Logger.Error("Unable to invalidate access cache",
			zap.Error(err),
			zap.String("CentroID", centroID),
		)
	}
}

func (g *Gate) evaluate(ctx context.Context, centroID string) Verdict {
	c, err := g.CentroManager.GetByID(ctx, centroID)
	if err != nil || c == nil {
		// single read attempt; not found and lookup failure both deny
		return g.Evaluator.Evaluate(time.Now(), nil, nil)
	}
	subs, err := g.SubscriptionManager.ListActive(ctx, centroID)
	if err != nil {
		return g.Evaluator.Evaluate(time.Now(), nil, nil)
	}
	return g.Evaluator.Evaluate(time.Now(), c, subs)
}
