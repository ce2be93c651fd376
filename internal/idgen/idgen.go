package idgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

const sequenceTTL = 48 * time.Hour

// Generator produces human-readable request keys: a workflow prefix, the
// date, and a daily sequence counted in redis. When redis is unreachable the
// key stays unique via a uuid-derived suffix instead of the sequence.
type Generator struct {
	client *redis.Client
	now    func() time.Time
}

// NewGenerator builds a key generator. client may be nil in tests.
func NewGenerator(client *redis.Client) *Generator {
	return &Generator{client: client, now: time.Now}
}

// RequestKey returns the next key for the given workflow type,
// e.g. "CR-20260901-0042".
func (g *Generator) RequestKey(ctx context.Context, workflowType domain.WorkflowType) string {
	date := g.now().UTC().Format("20060102")
	prefix := keyPrefix(workflowType)

	if g.client != nil {
		seq, err := g.client.Incr(ctx, "reqseq:"+date).Result()
		if err == nil {
			if seq == 1 {
				g.client.Expire(ctx, "reqseq:"+date, sequenceTTL)
			}
			return fmt.Sprintf("%s-%s-%04d", prefix, date, seq)
		}
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, date, suffix)
}

func keyPrefix(workflowType domain.WorkflowType) string {
	switch workflowType {
	case domain.WorkflowConnectionRequest:
		return "CR"
	case domain.WorkflowTechnicalService:
		return "TS"
	case domain.WorkflowCallCenterDirect:
		return "CC"
	default:
		return "SR"
	}
}
