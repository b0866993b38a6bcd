package iec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// EntityTypes are the area kinds the commission publishes delimitation
// lists for, widest first.
var EntityTypes = []string{types.LevelProvince, types.LevelMunicipality, types.LevelWard}

// Mapper translates our geographic codes into IEC identifiers.
//
// Lookups go cache -> iec_mappings table -> delimitation API. A discovery
// call persists every area it returns, so one miss fills the table for the
// whole entity type. Concurrent misses for the same type share one API
// call.
type Mapper struct {
	client *Client
	store  storage.IECStore
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
}

func NewMapper(client *Client, store storage.IECStore, cache Cache, ttl time.Duration) *Mapper {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Mapper{client: client, store: store, cache: cache, ttl: ttl}
}

func mappingKey(entityType, code string) string {
	return "mapping:" + entityType + ":" + code
}

// Resolve returns the IEC identifier for (entityType, code). An area the
// commission does not list yields storage.ErrNotFound.
func (m *Mapper) Resolve(ctx context.Context, entityType, code string) (string, error) {
	key := mappingKey(entityType, code)

	if id, ok, err := m.cache.Get(ctx, key); err != nil {
		slog.Warn("iec cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		return id, nil
	}

	mapping, err := m.store.GetIECMapping(ctx, entityType, code)
	if err == nil {
		m.remember(ctx, mapping)
		return mapping.IECID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("Resolve: %w", err)
	}

	areas, err := m.discover(ctx, entityType)
	if err != nil {
		return "", fmt.Errorf("Resolve: %w", err)
	}
	for _, a := range areas {
		if a.Code == code {
			return a.IECID, nil
		}
	}
	return "", fmt.Errorf("Resolve: no IEC id for %s %q: %w", entityType, code, storage.ErrNotFound)
}

// Sync discovers and stores the mappings for every entity type. It returns
// how many areas were stored per type.
func (m *Mapper) Sync(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(EntityTypes))
	for _, t := range EntityTypes {
		areas, err := m.discover(ctx, t)
		if err != nil {
			return counts, fmt.Errorf("Sync: %w", err)
		}
		counts[t] = len(areas)
	}
	return counts, nil
}

func (m *Mapper) discover(ctx context.Context, entityType string) ([]Area, error) {
	ch := m.group.DoChan("discover:"+entityType, func() (any, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		ctx := context.WithoutCancel(ctx)

		areas, err := m.client.Delimitation(ctx, entityType)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		mappings := make([]types.IECMapping, 0, len(areas))
		for _, a := range areas {
			if a.Code == "" || a.IECID == "" {
				continue
			}
			mappings = append(mappings, types.IECMapping{
				EntityType: entityType,
				Code:       a.Code,
				IECID:      a.IECID,
				Name:       a.Name,
				SyncedAt:   now,
			})
		}
		if err := m.store.UpsertIECMappings(ctx, mappings); err != nil {
			return nil, fmt.Errorf("discover(%s): persist: %w", entityType, err)
		}
		for _, mp := range mappings {
			m.remember(ctx, mp)
		}

		slog.Info("iec mappings discovered",
			slog.String("entity_type", entityType), slog.Int("count", len(mappings)))
		return areas, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Area), nil
	}
}

func (m *Mapper) remember(ctx context.Context, mp types.IECMapping) {
	key := mappingKey(mp.EntityType, mp.Code)
	if err := m.cache.Set(ctx, key, mp.IECID, m.ttl); err != nil {
		slog.Warn("iec cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// BallotRequest selects ballot results using our geographic codes.
type BallotRequest struct {
	ElectionType     string
	ProvinceCode     string
	MunicipalityCode string
	WardCode         string
}

// BallotResults translates the codes in req to IEC identifiers and fetches
// the results. Responses are cached for the mapper's TTL.
func (m *Mapper) BallotResults(ctx context.Context, req BallotRequest) (json.RawMessage, error) {
	q := BallotQuery{ElectionType: req.ElectionType}

	var err error
	if req.ProvinceCode != "" {
		if q.ProvinceID, err = m.Resolve(ctx, types.LevelProvince, req.ProvinceCode); err != nil {
			return nil, err
		}
	}
	if req.MunicipalityCode != "" {
		if q.MunicipalityID, err = m.Resolve(ctx, types.LevelMunicipality, req.MunicipalityCode); err != nil {
			return nil, err
		}
	}
	if req.WardCode != "" {
		if q.WardID, err = m.Resolve(ctx, types.LevelWard, req.WardCode); err != nil {
			return nil, err
		}
	}

	key := "ballot:" + q.values().Encode()
	if cached, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		return json.RawMessage(cached), nil
	}

	raw, err := m.client.BallotResults(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, key, string(raw), m.ttl); err != nil {
		slog.Warn("iec cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return raw, nil
}

// VerifyVoter passes through to the client.
func (m *Mapper) VerifyVoter(ctx context.Context, idNumber string) (Voter, error) {
	return m.client.VerifyVoter(ctx, idNumber)
}
