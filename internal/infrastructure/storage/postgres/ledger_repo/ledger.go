// Package ledger_repo persists version ledger entries on PostgreSQL.
//
// The table is append-only: entries are inserted exactly once, inside the
// same transaction as the location mutation they document, and never
// updated or removed. A bigserial seq column assigned by the database is
// the authoritative replay order.
package ledger_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/geo"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/ledger"
	"geodeck/internal/infrastructure/storage/postgres"
)

const ledgerTable = "location_versions"

// CompressionAlgo specifies the compression algorithm used for oversized
// polygon snapshots.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Compile-time check that LedgerRepo implements ledger.Store.
var _ ledger.Store = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Store. Polygons above the compression
// threshold are stored zstd-compressed; small ones stay as plain JSONB so
// they remain queryable.
type LedgerRepo struct {
	txManager         *postgres.TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) (*LedgerRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &LedgerRepo{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

const entryColumns = `seq, id, project_id, location_id, user_id, operation,
	latitude, longitude, label, name, description,
	polygon, polygon_compressed, compression_algo, created_at`

// Append inserts the entry and fills in its database-assigned Seq.
func (r *LedgerRepo) Append(ctx context.Context, entry *ledger.Entry) error {
	polygonJSON, polygonCompressed, algo, err := r.encodePolygon(entry.Polygon)
	if err != nil {
		return err
	}

	sql := `
		INSERT INTO location_versions (
			id, project_id, location_id, user_id, operation,
			latitude, longitude, label, name, description,
			polygon, polygon_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq
	`

	querier := r.txManager.GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql,
		entry.ID, entry.ProjectID, entry.LocationID, entry.UserID, entry.Operation,
		entry.Latitude, entry.Longitude, entry.Label, entry.Name, entry.Description,
		polygonJSON, polygonCompressed, algo, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	return nil
}

// ListForProject returns the project's entries oldest first, ordered by
// insertion sequence.
func (r *LedgerRepo) ListForProject(ctx context.Context, projectID id.ID) ([]*ledger.Entry, error) {
	sql := `
		SELECT ` + entryColumns + `
		FROM location_versions
		WHERE project_id = $1
		ORDER BY seq
	`

	querier := r.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, projectID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetByID returns the entry, scoped to the project.
func (r *LedgerRepo) GetByID(ctx context.Context, projectID, entryID id.ID) (*ledger.Entry, error) {
	sql := `
		SELECT ` + entryColumns + `
		FROM location_versions
		WHERE id = $1 AND project_id = $2
	`

	querier := r.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, entryID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query ledger entry: %w", err)
		}
		return nil, apperror.NewVersionNotFound(entryID.String())
	}

	return r.scanEntry(rows)
}

// rowScanner is the scan surface shared by pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *LedgerRepo) scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		entry             ledger.Entry
		polygonJSON       []byte
		polygonCompressed []byte
		algo              CompressionAlgo
	)

	err := row.Scan(
		&entry.Seq, &entry.ID, &entry.ProjectID, &entry.LocationID, &entry.UserID, &entry.Operation,
		&entry.Latitude, &entry.Longitude, &entry.Label, &entry.Name, &entry.Description,
		&polygonJSON, &polygonCompressed, &algo, &entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	polygon, err := r.decodePolygon(polygonJSON, polygonCompressed, algo)
	if err != nil {
		return nil, err
	}
	entry.Polygon = polygon

	return &entry, nil
}

// encodePolygon marshals the polygon and compresses it when it exceeds
// the threshold. Exactly one of the returned byte slices is non-nil for a
// present polygon; both are nil for an absent one.
func (r *LedgerRepo) encodePolygon(p geo.Polygon) ([]byte, []byte, CompressionAlgo, error) {
	if p == nil {
		return nil, nil, CompressionNone, nil
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, nil, CompressionNone, fmt.Errorf("marshal polygon: %w", err)
	}

	if len(raw) > r.compressThreshold {
		return nil, r.encoder.EncodeAll(raw, nil), CompressionZstd, nil
	}
	return raw, nil, CompressionNone, nil
}

func (r *LedgerRepo) decodePolygon(raw, compressed []byte, algo CompressionAlgo) (geo.Polygon, error) {
	if algo == CompressionZstd && len(compressed) > 0 {
		decompressed, err := r.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress polygon: %w", err)
		}
		raw = decompressed
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var p geo.Polygon
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal polygon: %w", err)
	}
	return p, nil
}
