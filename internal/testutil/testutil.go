// Package testutil builds throw-away databases and fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/storage/sqlite"
	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// Geography codes created by SeedGeography.
const (
	ProvinceGP      = "GP"
	ProvinceWC      = "WC"
	MunicipalityJHB = "JHB"
	MunicipalityCPT = "CPT"
	WardJHB1        = "79800001"
	WardJHB2        = "79800002"
	WardCPT1        = "19100001"
	VDJHB1          = "32840001"
)

// Valid South African ID numbers for fixtures.
var ValidIDs = []string{
	"8001015009087",
	"9002150123088",
	"8506305800086",
	"7501015001084",
	"9101015009084",
	"9608120123089",
	"8805055000180",
	"8704151234084",
	"9306205678081",
}

// NewStore opens a fresh SQLite database in a temp directory. It is closed
// when the test ends.
func NewStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// SeedGeography creates two provinces, two municipalities, three wards and
// one voting district.
func SeedGeography(t *testing.T, store *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateProvince(ctx, types.Province{Code: ProvinceGP, Name: "Gauteng"}))
	require.NoError(t, store.CreateProvince(ctx, types.Province{Code: ProvinceWC, Name: "Western Cape"}))
	require.NoError(t, store.CreateMunicipality(ctx, types.Municipality{
		Code: MunicipalityJHB, ProvinceCode: ProvinceGP, Name: "City of Johannesburg"}))
	require.NoError(t, store.CreateMunicipality(ctx, types.Municipality{
		Code: MunicipalityCPT, ProvinceCode: ProvinceWC, Name: "City of Cape Town"}))
	require.NoError(t, store.CreateWard(ctx, types.Ward{Code: WardJHB1, MunicipalityCode: MunicipalityJHB, Number: 1}))
	require.NoError(t, store.CreateWard(ctx, types.Ward{Code: WardJHB2, MunicipalityCode: MunicipalityJHB, Number: 2}))
	require.NoError(t, store.CreateWard(ctx, types.Ward{Code: WardCPT1, MunicipalityCode: MunicipalityCPT, Number: 1}))
	require.NoError(t, store.CreateVotingDistrict(ctx, types.VotingDistrict{
		Code: VDJHB1, WardCode: WardJHB1, Name: "Braamfontein Primary"}))
}

// CreateMember inserts an active member with the given ID number in ward.
func CreateMember(t *testing.T, store *sqlstore.Store, idNumber, firstName, ward string) types.Member {
	t.Helper()

	info, err := idnumber.Validate(idNumber)
	require.NoError(t, err)

	m := types.Member{
		IDNumber:    idNumber,
		FirstName:   firstName,
		Surname:     "Dlamini",
		DateOfBirth: info.DateOfBirth,
		Gender:      info.Gender,
		WardCode:    ward,
		Status:      types.MemberActive,
		CreatedAt:   time.Now().UTC(),
	}
	id, err := store.CreateMember(context.Background(), m)
	require.NoError(t, err)
	m.ID = id
	return m
}
