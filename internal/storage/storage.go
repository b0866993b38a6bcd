// Package storage defines the Storage interface: the contract any database
// backend must satisfy to work with this application.
//
// Handlers, the upload pipeline and the IEC mapper depend only on these
// interfaces. The concrete implementation lives in storage/sqlstore and is
// opened through storage/sqlite or storage/mysql.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/membership-api/internal/types"
)

// Sentinel errors. Implementations wrap them so callers can use errors.Is.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness rule was violated (duplicate ID number,
	// second vote in the same election, position already filled...).
	ErrConflict = errors.New("conflict")

	// ErrReference means a foreign key points at a row that does not exist.
	ErrReference = errors.New("referenced row does not exist")

	// ErrUnsupported means the database engine cannot do what was asked.
	ErrUnsupported = errors.New("not supported by this database")
)

// ── Geography ───────────────────────────────────────────────────────────────

// GeoStore holds the province -> municipality -> ward -> voting district
// tree. Codes are the primary keys; creating a child under an unknown
// parent yields ErrReference.
type GeoStore interface {
	CreateProvince(ctx context.Context, p types.Province) error
	ListProvinces(ctx context.Context) ([]types.Province, error)
	GetProvince(ctx context.Context, code string) (types.Province, error)

	CreateMunicipality(ctx context.Context, m types.Municipality) error
	ListMunicipalities(ctx context.Context, provinceCode string) ([]types.Municipality, error)
	GetMunicipality(ctx context.Context, code string) (types.Municipality, error)

	CreateWard(ctx context.Context, w types.Ward) error
	ListWards(ctx context.Context, municipalityCode string) ([]types.Ward, error)
	GetWard(ctx context.Context, code string) (types.Ward, error)
	WardExists(ctx context.Context, code string) (bool, error)
	// GetWardHierarchy returns the ward with its municipality and province.
	GetWardHierarchy(ctx context.Context, code string) (types.WardHierarchy, error)

	CreateVotingDistrict(ctx context.Context, vd types.VotingDistrict) error
	ListVotingDistricts(ctx context.Context, wardCode string) ([]types.VotingDistrict, error)
}

// ── Members ─────────────────────────────────────────────────────────────────

type MemberStore interface {
	// CreateMember inserts a member and returns the generated ID.
	// A duplicate ID number yields ErrConflict.
	CreateMember(ctx context.Context, m types.Member) (int64, error)
	GetMember(ctx context.Context, id int64) (types.Member, error)
	GetMemberByIDNumber(ctx context.Context, idNumber string) (types.Member, error)
	ListMembers(ctx context.Context, f types.MemberFilter) ([]types.Member, error)
	UpdateMember(ctx context.Context, m types.Member) error
	DeleteMember(ctx context.Context, id int64) error
	CountWardMembers(ctx context.Context, wardCode string) (int, error)

	// ListMembersInArea returns active members below a point of the
	// geographic hierarchy. LevelNational ignores code.
	ListMembersInArea(ctx context.Context, level, code string) ([]types.Member, error)
}

type ApplicationStore interface {
	CreateApplication(ctx context.Context, a types.Application) (int64, error)
	GetApplication(ctx context.Context, id int64) (types.Application, error)
	// ListApplications filters by status; "" lists every application.
	ListApplications(ctx context.Context, status string) ([]types.Application, error)
	// UpdateApplication records a review. Only a pending application can be
	// reviewed: any other yields ErrConflict, so one of two racing reviews
	// loses.
	UpdateApplication(ctx context.Context, a types.Application) error
}

// ── Elections and structures ────────────────────────────────────────────────

type ElectionStore interface {
	CreateElection(ctx context.Context, e types.Election) (int64, error)
	GetElection(ctx context.Context, id int64) (types.Election, error)
	ListElections(ctx context.Context) ([]types.Election, error)
	SetElectionStatus(ctx context.Context, id int64, status string) error

	CreateCandidate(ctx context.Context, c types.Candidate) (int64, error)
	GetCandidate(ctx context.Context, id int64) (types.Candidate, error)
	ListCandidates(ctx context.Context, electionID int64) ([]types.Candidate, error)

	// CastVote records a vote. A second vote by the same member in the same
	// election yields ErrConflict.
	CastVote(ctx context.Context, v types.Vote) (int64, error)
	// ElectionResults counts votes per candidate, highest first.
	ElectionResults(ctx context.Context, electionID int64) ([]types.CandidateResult, error)
}

type WarCouncilStore interface {
	CreatePosition(ctx context.Context, p types.WarCouncilPosition) (int64, error)
	GetPosition(ctx context.Context, id int64) (types.WarCouncilPosition, error)
	ListPositions(ctx context.Context) ([]types.WarCouncilPosition, error)
	// AppointMember fills a vacant position. A held position, or a member
	// who already holds another one, yields ErrConflict.
	AppointMember(ctx context.Context, positionID, memberID int64) error
	VacatePosition(ctx context.Context, positionID int64) error
}

type MeetingStore interface {
	CreateMeeting(ctx context.Context, m types.Meeting) (int64, error)
	GetMeeting(ctx context.Context, id int64) (types.Meeting, error)
	ListMeetings(ctx context.Context, level, status string) ([]types.Meeting, error)
	SetMeetingStatus(ctx context.Context, id int64, status string) error

	CreateMeetingDocument(ctx context.Context, d types.MeetingDocument) (int64, error)
	ListMeetingDocuments(ctx context.Context, meetingID int64) ([]types.MeetingDocument, error)
	DeleteMeetingDocument(ctx context.Context, meetingID, docID int64) error
}

// ── Administration ──────────────────────────────────────────────────────────

type UserStore interface {
	CreateRole(ctx context.Context, r types.Role) (int64, error)
	GetRole(ctx context.Context, id int64) (types.Role, error)
	ListRoles(ctx context.Context) ([]types.Role, error)

	CreateUser(ctx context.Context, u types.User) (int64, error)
	GetUser(ctx context.Context, id int64) (types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	UpdateUser(ctx context.Context, u types.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, l types.AuditLog) error
	// ListAuditLogs returns the newest entries first.
	ListAuditLogs(ctx context.Context, f types.AuditFilter) ([]types.AuditLog, error)
}

// ── Jobs and integrations ───────────────────────────────────────────────────

type UploadStore interface {
	CreateUploadJob(ctx context.Context, j types.UploadJob) error
	UpdateUploadJob(ctx context.Context, j types.UploadJob) error
	GetUploadJob(ctx context.Context, id string) (types.UploadJob, error)
	ListUploadJobs(ctx context.Context, limit int) ([]types.UploadJob, error)
}

type SMSStore interface {
	CreateSMSMessage(ctx context.Context, m types.SMSMessage) error
	UpdateSMSMessage(ctx context.Context, m types.SMSMessage) error
	GetSMSMessage(ctx context.Context, id string) (types.SMSMessage, error)
	// GetSMSMessageByGatewayID finds the message a delivery report refers to.
	GetSMSMessageByGatewayID(ctx context.Context, gatewayID string) (types.SMSMessage, error)
	ListSMSMessages(ctx context.Context, status string, limit int) ([]types.SMSMessage, error)
}

type BackupStore interface {
	CreateBackupRecord(ctx context.Context, b types.BackupRecord) error
	UpdateBackupRecord(ctx context.Context, b types.BackupRecord) error
	GetBackupRecord(ctx context.Context, id string) (types.BackupRecord, error)
	ListBackupRecords(ctx context.Context, limit int) ([]types.BackupRecord, error)

	// Backup writes a consistent copy of the live database to path, which
	// must not exist yet. Engines without an online copy yield
	// ErrUnsupported.
	Backup(ctx context.Context, path string) error
}

type IECStore interface {
	// UpsertIECMappings inserts or refreshes mappings in one statement each.
	UpsertIECMappings(ctx context.Context, ms []types.IECMapping) error
	GetIECMapping(ctx context.Context, entityType, code string) (types.IECMapping, error)
	ListIECMappings(ctx context.Context, entityType string) ([]types.IECMapping, error)
}

// ── Full contract ───────────────────────────────────────────────────────────

// Storage is the full database contract.
type Storage interface {
	GeoStore
	MemberStore
	ApplicationStore
	ElectionStore
	WarCouncilStore
	MeetingStore
	UserStore
	AuditStore
	UploadStore
	SMSStore
	IECStore
	BackupStore

	// WithTx runs fn against a Storage bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Storage) error) error

	// Ping reports whether the database is reachable. GET /health uses it.
	Ping(ctx context.Context) error

	Close() error
}
