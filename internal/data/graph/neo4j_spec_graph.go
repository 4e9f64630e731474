package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/platform/neo4jdb"
)

// UpsertSpecGraph mirrors specs and their dependency edges as
// (:Spec)-[:DEPENDS_ON]->(:Spec). A nil client is a no-op.
func UpsertSpecGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, specs []*types.Spec, deps []*types.Dependency) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(specs))
	for _, s := range specs {
		if s == nil || s.ID == 0 {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":            s.ID,
			"name":          s.Name,
			"full_hash":     s.FullHash,
			"spack_version": s.SpackVersion,
			"version":       s.Version,
			"synced_at":     now,
		})
	}
	rels := make([]map[string]any, 0, len(deps))
	for _, d := range deps {
		if d == nil || d.SpecID == 0 || d.DependencySpecID == 0 {
			continue
		}
		rels = append(rels, map[string]any{
			"from_id": d.SpecID,
			"to_id":   d.DependencySpecID,
			"types":   d.Types(),
		})
	}
	if len(nodes) == 0 && len(rels) == 0 {
		return nil
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT spec_id_unique IF NOT EXISTS FOR (s:Spec) REQUIRE s.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (s:Spec {id: n.id})
SET s += n
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MERGE (a:Spec {id: r.from_id})
MERGE (b:Spec {id: r.to_id})
MERGE (a)-[e:DEPENDS_ON]->(b)
SET e.types = r.types
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SpecProjector adapts UpsertSpecGraph to the import service's projector hook.
type SpecProjector struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewSpecProjector(client *neo4jdb.Client, log *logger.Logger) *SpecProjector {
	return &SpecProjector{client: client, log: log.With("projector", "Neo4jSpecGraph")}
}

func (p *SpecProjector) ProjectSpecs(ctx context.Context, specs []*types.Spec, deps []*types.Dependency) error {
	return UpsertSpecGraph(ctx, p.client, p.log, specs, deps)
}
