package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// UpsertIECMappings writes all mappings in one transaction.
func (s *Store) UpsertIECMappings(ctx context.Context, ms []types.IECMapping) error {
	return s.WithTx(ctx, func(tx storage.Storage) error {
		txs := tx.(*Store)
		for _, m := range ms {
			if m.SyncedAt.IsZero() {
				m.SyncedAt = time.Now().UTC()
			}
			_, err := txs.q.ExecContext(ctx, s.dialect.UpsertIECMapping,
				m.EntityType, m.Code, m.IECID, m.Name, m.SyncedAt)
			if err != nil {
				return s.wrap(fmt.Sprintf("UpsertIECMappings(%s/%s)", m.EntityType, m.Code), err)
			}
		}
		return nil
	})
}

func (s *Store) GetIECMapping(ctx context.Context, entityType, code string) (types.IECMapping, error) {
	var m types.IECMapping
	err := s.q.QueryRowContext(ctx, `
		SELECT entity_type, code, iec_id, name, synced_at
		FROM iec_mappings WHERE entity_type = ? AND code = ?`, entityType, code,
	).Scan(&m.EntityType, &m.Code, &m.IECID, &m.Name, &m.SyncedAt)
	if err != nil {
		return types.IECMapping{}, s.wrap(fmt.Sprintf("GetIECMapping(%s/%s)", entityType, code), err)
	}
	return m, nil
}

func (s *Store) ListIECMappings(ctx context.Context, entityType string) ([]types.IECMapping, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT entity_type, code, iec_id, name, synced_at
		FROM iec_mappings WHERE entity_type = ? ORDER BY code`, entityType)
	if err != nil {
		return nil, fmt.Errorf("ListIECMappings: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.IECMapping, 0)
	for rows.Next() {
		var m types.IECMapping
		if err := rows.Scan(&m.EntityType, &m.Code, &m.IECID, &m.Name, &m.SyncedAt); err != nil {
			return nil, fmt.Errorf("ListIECMappings: scan row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListIECMappings: rows iteration: %w", err)
	}
	return out, nil
}
