package localcore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/ulid"
)

// chunkSize is the target chunk length in characters. Paragraphs are
// packed until the next one would cross it.
const chunkSize = 1000

// AIHealthCheck probes the Ollama server.
func (c *Core) AIHealthCheck(ctx context.Context) (*gateway.HealthStatus, error) {
	return c.ollama.Health(ctx)
}

// ListEvidenceSources lists the registered evidence sources.
func (c *Core) ListEvidenceSources(ctx context.Context) (*gateway.EvidenceSourceList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	query, args, err := sq.
		Select("id", "name", "kind", "bytes", "added_at").
		From("evidence_sources").
		OrderBy("added_at", "id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}
	defer rows.Close()

	list := &gateway.EvidenceSourceList{Sources: []gateway.EvidenceSource{}}
	for rows.Next() {
		var src gateway.EvidenceSource
		if err := rows.Scan(&src.ID, &src.Name, &src.Kind, &src.Bytes, &src.AddedAt); err != nil {
			return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
		}
		list.Sources = append(list.Sources, src)
	}
	return list, rows.Err()
}

// AddEvidenceSource registers a new evidence source. Adding a source
// invalidates the index; chunks must be rebuilt before search.
func (c *Core) AddEvidenceSource(ctx context.Context, req *gateway.AddSourceRequest) (*gateway.EvidenceSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, gateway.NewCommandError("AI_EVIDENCE_EMPTY_SOURCE", "Evidence source has no text")
	}

	src := gateway.EvidenceSource{
		ID:      ulid.SourceID(),
		Name:    req.Name,
		Kind:    req.Kind,
		Bytes:   int64(len(req.Text)),
		AddedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if src.Kind == "" {
		src.Kind = "text"
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO evidence_sources (id, name, kind, content, bytes, added_at) VALUES (?, ?, ?, ?, ?, ?)",
		src.ID, src.Name, src.Kind, req.Text, src.Bytes, src.AddedAt,
	)
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}

	if _, err := db.ExecContext(ctx, "UPDATE evidence_index_status SET ready = 0 WHERE id = 1"); err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}

	c.logger.Info("Evidence source added", "id", src.ID, "name", src.Name, "bytes", src.Bytes)
	return &src, nil
}

// BuildEvidenceChunks rebuilds the citation index: existing chunks and
// their vectors are replaced, every source is re-chunked and embedded,
// and the index is marked ready only when every chunk stored a vector.
func (c *Core) BuildEvidenceChunks(ctx context.Context) (*gateway.BuildChunksResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	// Embedding needs a live server; fail before touching the index.
	if _, err := c.ollama.Health(ctx); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, content FROM evidence_sources ORDER BY added_at, id")
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}
	type source struct{ id, content string }
	var sources []source
	for rows.Next() {
		var s source
		if err := rows.Scan(&s.id, &s.content); err != nil {
			rows.Close()
			return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
		}
		sources = append(sources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM evidence_vectors"); err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM evidence_chunks"); err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}

	result := &gateway.BuildChunksResult{}
	now := time.Now().UTC().Format(time.RFC3339)
	var dims int
	for _, src := range sources {
		for seq, text := range chunkText(src.content) {
			embedding, err := c.ollama.Embed(ctx, text)
			if err != nil {
				return nil, gateway.NewCommandError("AI_OLLAMA_UNHEALTHY", "Embedding failed during index build").
					WithDetails(err.Error()).
					WithRetryable(true)
			}
			dims = len(embedding)

			blob, err := serializeEmbedding(embedding)
			if err != nil {
				return nil, gateway.NewCommandError("AI_EVIDENCE_EMBED_INVALID", "Embedding could not be serialized").
					WithDetails(err.Error())
			}

			chunkID := ulid.ChunkID()
			_, err = tx.ExecContext(ctx,
				"INSERT INTO evidence_chunks (id, source_id, seq, text, embedded, created_at) VALUES (?, ?, ?, ?, 1, ?)",
				chunkID, src.id, seq, text, now,
			)
			if err != nil {
				return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
			}
			_, err = tx.ExecContext(ctx,
				"INSERT INTO evidence_vectors (chunk_id, embedding) VALUES (?, ?)",
				chunkID, blob,
			)
			if err != nil {
				return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
			}
			result.ChunksCreated++
		}
		result.SourcesProcessed++
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE evidence_index_status SET ready = 1, model = ?, dims = ?, built_at = ? WHERE id = 1",
		c.cfg.Ollama.EmbeddingModel, dims, now,
	)
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_INSERT_FAILED", err)
	}

	result.IndexReady = true
	c.logger.Info("Evidence index built",
		"sources", result.SourcesProcessed,
		"chunks", result.ChunksCreated,
		"dims", dims,
	)
	return result, nil
}

// ListEvidenceChunks lists built chunks and whether the index is ready.
func (c *Core) ListEvidenceChunks(ctx context.Context) (*gateway.EvidenceChunkList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	list := &gateway.EvidenceChunkList{Chunks: []gateway.EvidenceChunk{}}

	var ready sql.NullBool
	err = db.QueryRowContext(ctx, "SELECT ready FROM evidence_index_status WHERE id = 1").Scan(&ready)
	if err != nil && err != sql.ErrNoRows {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}
	list.IndexReady = ready.Valid && ready.Bool

	query, args, err := sq.
		Select("id", "source_id", "seq", "text", "embedded").
		From("evidence_chunks").
		OrderBy("source_id", "seq").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk gateway.EvidenceChunk
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.Seq, &chunk.Text, &chunk.Embedded); err != nil {
			return nil, errQueryFailed("AI_EVIDENCE_QUERY_FAILED", err)
		}
		list.Chunks = append(list.Chunks, chunk)
	}
	return list, rows.Err()
}

// serializeEmbedding converts an embedding to the sqlite-vec binary blob
// stored alongside its chunk. Ollama returns float64 values; sqlite-vec
// operates on float32.
func serializeEmbedding(embedding []float64) ([]byte, error) {
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	return sqlite_vec.SerializeFloat32(vec)
}

// chunkText splits text on blank lines and packs paragraphs into chunks
// of roughly chunkSize characters.
func chunkText(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p) > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
