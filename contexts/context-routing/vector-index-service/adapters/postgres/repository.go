package postgresadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"contex/contexts/context-routing/vector-index-service/domain/entities"
)

type contextNodeModel struct {
	ProjectID   string          `gorm:"column:project_id;primaryKey"`
	NodeKey     string          `gorm:"column:node_key;primaryKey"`
	DataKey     string          `gorm:"column:data_key"`
	Description string          `gorm:"column:description"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb"`
	Embedding   pgvector.Vector `gorm:"column:embedding;type:vector(384)"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (contextNodeModel) TableName() string { return "embeddings" }

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Upsert(ctx context.Context, node entities.ContextNode) error {
	row := contextNodeModel{
		ProjectID:   node.ProjectID,
		NodeKey:     node.NodeKey,
		DataKey:     node.DataKey,
		Description: node.Description,
		Payload:     node.Payload,
		Embedding:   pgvector.NewVector(node.Embedding),
		CreatedAt:   time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).
		Where("project_id = ? AND node_key = ?", node.ProjectID, node.NodeKey).
		Assign(row).
		FirstOrCreate(&contextNodeModel{}).Error
	if err != nil {
		return r.logError("vector_index_upsert_failed", err, "project_id", node.ProjectID, "node_key", node.NodeKey)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, projectID, nodeKey string) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND node_key = ?", projectID, nodeKey).
		Delete(&contextNodeModel{}).Error
	if err != nil {
		return r.logError("vector_index_delete_failed", err, "project_id", projectID, "node_key", nodeKey)
	}
	return nil
}

// Search orders by cosine distance ascending (pgvector's <=> operator) and
// converts to similarity (1 - distance); the SQL ORDER BY already gives us
// descending similarity, so the only remaining ordering concern is the
// node_key tie-break, applied in Go after the threshold filter.
func (r *Repository) Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]entities.Match, error) {
	vec := pgvector.NewVector(queryEmbedding)

	var rows []struct {
		contextNodeModel
		Distance float64 `gorm:"column:distance"`
	}
	err := r.db.WithContext(ctx).
		Table("embeddings").
		Select("*, embedding <=> ? AS distance", vec).
		Where("project_id = ?", projectID).
		Order("distance ASC").
		Limit(topK * 4). // overfetch so the in-process tie-break has room to work with
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("vector_index_search_failed", err, "project_id", projectID)
	}

	matches := make([]entities.Match, 0, len(rows))
	for _, row := range rows {
		similarity := 1 - row.Distance
		if similarity < threshold {
			continue
		}
		matches = append(matches, entities.Match{
			NodeKey:     row.NodeKey,
			DataKey:     row.DataKey,
			Description: row.Description,
			Payload:     row.Payload,
			Similarity:  similarity,
		})
	}
	sortMatchesDeterministically(matches)
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (r *Repository) List(ctx context.Context, projectID string) ([]entities.ContextNode, error) {
	var rows []contextNodeModel
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("node_key ASC").Find(&rows).Error
	if err != nil {
		return nil, r.logError("vector_index_list_failed", err, "project_id", projectID)
	}

	nodes := make([]entities.ContextNode, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, entities.ContextNode{
			ProjectID:   row.ProjectID,
			NodeKey:     row.NodeKey,
			DataKey:     row.DataKey,
			Description: row.Description,
			Payload:     row.Payload,
			Embedding:   row.Embedding.Slice(),
			CreatedAt:   row.CreatedAt,
		})
	}
	return nodes, nil
}

func sortMatchesDeterministically(matches []entities.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].NodeKey < matches[j].NodeKey
	})
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "vector-index-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("vector index repository operation failed", fields...)
	return err
}
