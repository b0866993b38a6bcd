package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/testutil"
	"github.com/aanand-mishra/membership-api/internal/types"
)

func TestMemberLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	m := testutil.CreateMember(t, store, "8001015009087", "Thabo", testutil.WardJHB1)

	got, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "8001015009087", got.IDNumber)
	assert.Equal(t, "Thabo", got.FirstName)
	assert.Equal(t, "male", got.Gender)
	assert.Equal(t, 1980, got.DateOfBirth.Year())
	assert.Nil(t, got.MembershipExpiry)

	expiry := time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)
	got.Cellphone = "27821234567"
	got.MembershipExpiry = &expiry
	require.NoError(t, store.UpdateMember(ctx, got))

	byID, err := store.GetMemberByIDNumber(ctx, "8001015009087")
	require.NoError(t, err)
	assert.Equal(t, "27821234567", byID.Cellphone)
	require.NotNil(t, byID.MembershipExpiry)
	assert.True(t, expiry.Equal(*byID.MembershipExpiry))

	require.NoError(t, store.DeleteMember(ctx, m.ID))
	_, err = store.GetMember(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.DeleteMember(ctx, m.ID), storage.ErrNotFound)
}

func TestDuplicateIDNumberIsConflict(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	first := testutil.CreateMember(t, store, "9002150123088", "Lerato", testutil.WardJHB1)

	dup := first
	dup.ID = 0
	_, err := store.CreateMember(context.Background(), dup)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestUnknownWardIsReferenceError(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	_, err := store.CreateMember(context.Background(), types.Member{
		IDNumber:    "8506305800086",
		FirstName:   "Sipho",
		Surname:     "Nkosi",
		DateOfBirth: time.Date(1985, 6, 30, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
		WardCode:    "00000000",
		Status:      types.MemberActive,
	})
	assert.ErrorIs(t, err, storage.ErrReference)
}

func TestListMembersFilters(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	testutil.CreateMember(t, store, testutil.ValidIDs[0], "Anele", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB2)
	testutil.CreateMember(t, store, testutil.ValidIDs[2], "Carla", testutil.WardCPT1)

	all, err := store.ListMembers(ctx, types.MemberFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ward, err := store.ListMembers(ctx, types.MemberFilter{WardCode: testutil.WardJHB2})
	require.NoError(t, err)
	require.Len(t, ward, 1)
	assert.Equal(t, "Bongani", ward[0].FirstName)

	search, err := store.ListMembers(ctx, types.MemberFilter{Query: "carl"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Carla", search[0].FirstName)

	paged, err := store.ListMembers(ctx, types.MemberFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestListMembersInArea(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	testutil.CreateMember(t, store, testutil.ValidIDs[0], "Anele", testutil.WardJHB1)
	testutil.CreateMember(t, store, testutil.ValidIDs[1], "Bongani", testutil.WardJHB2)
	cpt := testutil.CreateMember(t, store, testutil.ValidIDs[2], "Carla", testutil.WardCPT1)
	inactive := testutil.CreateMember(t, store, testutil.ValidIDs[3], "Dumi", testutil.WardJHB1)
	inactive.Status = types.MemberInactive
	require.NoError(t, store.UpdateMember(ctx, inactive))

	tests := []struct {
		level, code string
		want        int
	}{
		{types.LevelWard, testutil.WardJHB1, 1},
		{types.LevelMunicipality, testutil.MunicipalityJHB, 2},
		{types.LevelProvince, testutil.ProvinceWC, 1},
		{types.LevelNational, "", 3},
	}
	for _, tt := range tests {
		members, err := store.ListMembersInArea(ctx, tt.level, tt.code)
		require.NoError(t, err)
		assert.Len(t, members, tt.want, "%s %s", tt.level, tt.code)
	}

	members, err := store.ListMembersInArea(ctx, types.LevelProvince, testutil.ProvinceWC)
	require.NoError(t, err)
	assert.Equal(t, cpt.ID, members[0].ID)

	_, err = store.ListMembersInArea(ctx, "planet", "earth")
	assert.Error(t, err)
}

func TestWardHierarchy(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	h, err := store.GetWardHierarchy(context.Background(), testutil.WardCPT1)
	require.NoError(t, err)
	assert.Equal(t, testutil.MunicipalityCPT, h.Municipality.Code)
	assert.Equal(t, "Western Cape", h.Province.Name)

	_, err = store.GetWardHierarchy(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOneVotePerMemberPerElection(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	voter := testutil.CreateMember(t, store, testutil.ValidIDs[0], "Voter", testutil.WardJHB1)
	a := testutil.CreateMember(t, store, testutil.ValidIDs[1], "Alpha", testutil.WardJHB1)
	b := testutil.CreateMember(t, store, testutil.ValidIDs[2], "Beta", testutil.WardJHB1)

	electionID, err := store.CreateElection(ctx, types.Election{
		Name:       "Ward 1 BEC",
		ScopeLevel: types.LevelWard,
		ScopeCode:  testutil.WardJHB1,
		StartsAt:   time.Now(),
		EndsAt:     time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	candA, err := store.CreateCandidate(ctx, types.Candidate{ElectionID: electionID, MemberID: a.ID, Position: "Chair"})
	require.NoError(t, err)
	candB, err := store.CreateCandidate(ctx, types.Candidate{ElectionID: electionID, MemberID: b.ID, Position: "Chair"})
	require.NoError(t, err)

	_, err = store.CastVote(ctx, types.Vote{ElectionID: electionID, MemberID: voter.ID, CandidateID: candA})
	require.NoError(t, err)

	_, err = store.CastVote(ctx, types.Vote{ElectionID: electionID, MemberID: voter.ID, CandidateID: candB})
	assert.ErrorIs(t, err, storage.ErrConflict)

	results, err := store.ElectionResults(ctx, electionID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, candA, results[0].CandidateID)
	assert.Equal(t, 1, results[0].Votes)
	assert.Equal(t, "Alpha Dlamini", results[0].Name)
	assert.Equal(t, 0, results[1].Votes)
}

func TestWarCouncilAppointments(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	m1 := testutil.CreateMember(t, store, testutil.ValidIDs[0], "One", testutil.WardJHB1)
	m2 := testutil.CreateMember(t, store, testutil.ValidIDs[1], "Two", testutil.WardJHB1)

	chair, err := store.CreatePosition(ctx, types.WarCouncilPosition{Title: "Chairperson"})
	require.NoError(t, err)
	sec, err := store.CreatePosition(ctx, types.WarCouncilPosition{Title: "Secretary"})
	require.NoError(t, err)

	require.NoError(t, store.AppointMember(ctx, chair, m1.ID))
	assert.ErrorIs(t, store.AppointMember(ctx, chair, m2.ID), storage.ErrConflict, "position already held")
	assert.ErrorIs(t, store.AppointMember(ctx, sec, m1.ID), storage.ErrConflict, "member already holds a position")
	assert.ErrorIs(t, store.AppointMember(ctx, 999, m2.ID), storage.ErrNotFound)

	p, err := store.GetPosition(ctx, chair)
	require.NoError(t, err)
	require.NotNil(t, p.HolderID)
	assert.Equal(t, m1.ID, *p.HolderID)
	assert.Equal(t, "One Dlamini", p.HolderName)

	require.NoError(t, store.VacatePosition(ctx, chair))
	require.NoError(t, store.AppointMember(ctx, chair, m2.ID))
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.Storage) error {
		if err := tx.CreateProvince(ctx, types.Province{Code: "EC", Name: "Eastern Cape"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetProvince(ctx, "EC")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.WithTx(ctx, func(tx storage.Storage) error {
		return tx.CreateProvince(ctx, types.Province{Code: "EC", Name: "Eastern Cape"})
	}))
	p, err := store.GetProvince(ctx, "EC")
	require.NoError(t, err)
	assert.Equal(t, "Eastern Cape", p.Name)
}

func TestIECMappingUpsert(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)

	require.NoError(t, store.UpsertIECMappings(ctx, []types.IECMapping{
		{EntityType: "province", Code: "GP", IECID: "3", Name: "Gauteng"},
		{EntityType: "province", Code: "WC", IECID: "9", Name: "Western Cape"},
	}))
	require.NoError(t, store.UpsertIECMappings(ctx, []types.IECMapping{
		{EntityType: "province", Code: "GP", IECID: "33", Name: "Gauteng"},
	}))

	m, err := store.GetIECMapping(ctx, "province", "GP")
	require.NoError(t, err)
	assert.Equal(t, "33", m.IECID)

	all, err := store.ListIECMappings(ctx, "province")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = store.GetIECMapping(ctx, "ward", "GP")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsersAndRoles(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)

	roleID, err := store.CreateRole(ctx, types.Role{Name: "admin", Permissions: []string{"members:write", "uploads:write"}})
	require.NoError(t, err)

	_, err = store.CreateRole(ctx, types.Role{Name: "admin"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	role, err := store.GetRole(ctx, roleID)
	require.NoError(t, err)
	assert.Equal(t, []string{"members:write", "uploads:write"}, role.Permissions)

	userID, err := store.CreateUser(ctx, types.User{
		Username: "nomsa", Email: "nomsa@example.org", PasswordHash: "x", RoleID: roleID, Active: true,
	})
	require.NoError(t, err)

	u, err := store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, u.Active)

	u.Active = false
	require.NoError(t, store.UpdateUser(ctx, u))
	u, err = store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestApplicationReviewedOnce(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedGeography(t, store)

	id, err := store.CreateApplication(ctx, types.Application{MemberInput: types.MemberInput{
		IDNumber: "8506305800086", FirstName: "Sipho", Surname: "Nkosi", WardCode: testutil.WardJHB1,
	}})
	require.NoError(t, err)

	now := time.Now().UTC()
	outcomes := []string{types.ApplicationRejected, types.ApplicationApproved, types.ApplicationRejected}
	errs := make([]error, len(outcomes))
	var wg sync.WaitGroup
	for i, status := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.UpdateApplication(ctx, types.Application{ID: id, Status: status, ReviewedAt: &now})
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrConflict)
	}
	assert.Equal(t, 1, won, "exactly one review applies")

	err = store.UpdateApplication(ctx, types.Application{ID: 999, Status: types.ApplicationRejected})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "copy.db")

	b := types.BackupRecord{ID: "b-1", FileName: "copy.db", Path: path, Status: types.BackupRunning,
		CreatedBy: "admin", StartedAt: started}
	require.NoError(t, store.CreateBackupRecord(ctx, b))
	assert.ErrorIs(t, store.CreateBackupRecord(ctx, b), storage.ErrConflict)

	require.NoError(t, store.Backup(ctx, path))
	assert.Error(t, store.Backup(ctx, path), "the target must not exist")

	err := store.WithTx(ctx, func(tx storage.Storage) error { return tx.Backup(ctx, path+".2") })
	assert.Error(t, err)

	finished := started.Add(time.Second)
	b.Status, b.SizeBytes, b.FinishedAt = types.BackupCompleted, 4096, &finished
	require.NoError(t, store.UpdateBackupRecord(ctx, b))

	got, err := store.GetBackupRecord(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, types.BackupCompleted, got.Status)
	assert.EqualValues(t, 4096, got.SizeBytes)
	assert.Equal(t, path, got.Path)
	require.NotNil(t, got.FinishedAt)

	require.NoError(t, store.CreateBackupRecord(ctx, types.BackupRecord{ID: "b-2", FileName: "later.db",
		Path: path + ".later", Status: types.BackupFailed, StartedAt: started.Add(time.Hour)}))
	list, err := store.ListBackupRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b-2", list[0].ID)

	assert.ErrorIs(t, store.UpdateBackupRecord(ctx, types.BackupRecord{ID: "nope"}), storage.ErrNotFound)
	_, err = store.GetBackupRecord(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
