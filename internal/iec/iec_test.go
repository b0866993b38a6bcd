package iec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// fakeIEC serves a tiny delimitation list, one registered voter and ballot
// results. It counts delimitation calls.
type fakeIEC struct {
	delimitationCalls atomic.Int32
	lastBallotQuery   atomic.Value
	delimitationDelay time.Duration
}

func (f *fakeIEC) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/delimitation/{kind}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		f.delimitationCalls.Add(1)
		time.Sleep(f.delimitationDelay)
		areas := map[string][]Area{
			"provinces":      {{Code: "GP", IECID: "3", Name: "Gauteng"}, {Code: "WC", IECID: "9", Name: "Western Cape"}},
			"municipalities": {{Code: "JHB", IECID: "1001", Name: "Johannesburg"}},
			"wards":          {{Code: "79800001", IECID: "79800001"}},
		}[r.PathValue("kind")]
		json.NewEncoder(w).Encode(map[string]any{"data": areas})
	})
	mux.HandleFunc("GET /api/v1/voters/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "8001015009087" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(Voter{IDNumber: "8001015009087", Registered: true, WardCode: "79800001"})
	})
	mux.HandleFunc("GET /api/v1/ballot-results", func(w http.ResponseWriter, r *http.Request) {
		f.lastBallotQuery.Store(r.URL.RawQuery)
		w.Write([]byte(`{"party":"A","votes":12}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDelimitation(t *testing.T) {
	f := &fakeIEC{}
	srv := f.server(t)

	areas, err := NewClient(srv.URL, "secret", time.Second).Delimitation(context.Background(), "province")
	require.NoError(t, err)
	assert.Len(t, areas, 2)
	assert.Equal(t, "3", areas[0].IECID)

	_, err = NewClient(srv.URL, "wrong", time.Second).Delimitation(context.Background(), "province")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClientVerifyVoter(t *testing.T) {
	srv := (&fakeIEC{}).server(t)
	c := NewClient(srv.URL+"/", "secret", time.Second)

	v, err := c.VerifyVoter(context.Background(), "8001015009087")
	require.NoError(t, err)
	assert.True(t, v.Registered)
	assert.Equal(t, "79800001", v.WardCode)

	v, err = c.VerifyVoter(context.Background(), "9002150123088")
	require.NoError(t, err)
	assert.False(t, v.Registered)
	assert.Equal(t, "9002150123088", v.IDNumber)
}

func TestClientNotConfigured(t *testing.T) {
	_, err := NewClient("", "", 0).VerifyVoter(context.Background(), "8001015009087")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMapperResolve(t *testing.T) {
	ctx := context.Background()
	f := &fakeIEC{}
	srv := f.server(t)
	store := testutil.NewStore(t)
	client := NewClient(srv.URL, "secret", time.Second)

	m := NewMapper(client, store, NewMemoryCache(), time.Hour)

	id, err := m.Resolve(ctx, types.LevelProvince, "WC")
	require.NoError(t, err)
	assert.Equal(t, "9", id)
	assert.EqualValues(t, 1, f.delimitationCalls.Load())

	// GP arrived with the same discovery call and is cached now.
	id, err = m.Resolve(ctx, types.LevelProvince, "GP")
	require.NoError(t, err)
	assert.Equal(t, "3", id)
	assert.EqualValues(t, 1, f.delimitationCalls.Load())

	stored, err := store.GetIECMapping(ctx, types.LevelProvince, "GP")
	require.NoError(t, err)
	assert.Equal(t, "Gauteng", stored.Name)

	// A cold cache falls back to the table, still without an API call.
	cold := NewMapper(client, store, NewMemoryCache(), time.Hour)
	id, err = cold.Resolve(ctx, types.LevelProvince, "GP")
	require.NoError(t, err)
	assert.Equal(t, "3", id)
	assert.EqualValues(t, 1, f.delimitationCalls.Load())

	_, err = m.Resolve(ctx, types.LevelProvince, "XX")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMapperResolveConcurrentMissesShareOneCall(t *testing.T) {
	ctx := context.Background()
	f := &fakeIEC{delimitationDelay: 50 * time.Millisecond}
	srv := f.server(t)
	m := NewMapper(NewClient(srv.URL, "secret", time.Second), testutil.NewStore(t), NewMemoryCache(), time.Hour)

	const n = 10
	start := make(chan struct{})
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ids[i], errs[i] = m.Resolve(ctx, types.LevelProvince, "WC")
		}()
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "9", ids[i])
	}
	assert.EqualValues(t, 1, f.delimitationCalls.Load())
}

func TestMapperDiscoverSurvivesCancelledCaller(t *testing.T) {
	f := &fakeIEC{delimitationDelay: 50 * time.Millisecond}
	srv := f.server(t)
	store := testutil.NewStore(t)
	m := NewMapper(NewClient(srv.URL, "secret", time.Second), store, NewMemoryCache(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Resolve(ctx, types.LevelProvince, "WC")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The shared discovery finishes and persists on its own.
	assert.Eventually(t, func() bool {
		_, err := store.GetIECMapping(context.Background(), types.LevelProvince, "WC")
		return err == nil
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, f.delimitationCalls.Load())
}

func TestMapperSync(t *testing.T) {
	ctx := context.Background()
	f := &fakeIEC{}
	srv := f.server(t)
	store := testutil.NewStore(t)

	counts, err := NewMapper(NewClient(srv.URL, "secret", time.Second), store, nil, time.Hour).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"province": 2, "municipality": 1, "ward": 1}, counts)

	wards, err := store.ListIECMappings(ctx, types.LevelWard)
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "79800001", wards[0].IECID)
}

func TestMapperBallotResultsTranslatesCodes(t *testing.T) {
	ctx := context.Background()
	f := &fakeIEC{}
	srv := f.server(t)
	m := NewMapper(NewClient(srv.URL, "secret", time.Second), testutil.NewStore(t), NewMemoryCache(), time.Hour)

	raw, err := m.BallotResults(ctx, BallotRequest{ElectionType: "municipal", MunicipalityCode: "JHB"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"party":"A","votes":12}`, string(raw))
	assert.Equal(t, "election_type=municipal&municipality_id=1001", f.lastBallotQuery.Load())

	_, err = m.BallotResults(ctx, BallotRequest{ProvinceCode: "ZZ"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	_, ok, err := cache.Get(ctx, "mapping:ward:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "mapping:ward:1", "42", time.Minute))
	v, ok, err := cache.Get(ctx, "mapping:ward:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)
	assert.True(t, mr.Exists("members:iec:mapping:ward:1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "mapping:ward:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	require.NoError(t, cache.Set(ctx, "k", "v", 20*time.Millisecond))
	require.NoError(t, cache.Set(ctx, "forever", "v", 0))

	v, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
	_, ok, _ = cache.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, key, "v", time.Millisecond)
				_, _, _ = cache.Get(ctx, key)
			}
		}()
	}
	wg.Wait()
}
