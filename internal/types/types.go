// Package types holds all shared data structures (models) used across
// the application. Handlers, storage, the upload pipeline and the IEC
// client all import types without depending on each other.
//
// Struct tags follow two conventions:
//
//  1. json:"..."     : the field name in API payloads (snake_case).
//  2. validate:"..." : rules checked by go-playground/validator when the
//     struct arrives in a request body.
package types

import "time"

// ── Geography ───────────────────────────────────────────────────────────────

// Geographic hierarchy levels, from widest to narrowest.
const (
	LevelNational     = "national"
	LevelProvince     = "province"
	LevelMunicipality = "municipality"
	LevelWard         = "ward"
	LevelVD           = "voting_district"
)

type Province struct {
	Code string `json:"code" validate:"required,max=10"`
	Name string `json:"name" validate:"required"`
}

type Municipality struct {
	Code         string `json:"code"          validate:"required,max=20"`
	ProvinceCode string `json:"province_code" validate:"required"`
	Name         string `json:"name"          validate:"required"`
}

type Ward struct {
	Code             string `json:"code"              validate:"required,max=20"`
	MunicipalityCode string `json:"municipality_code" validate:"required"`
	Number           int    `json:"number"            validate:"required,gt=0"`
}

type VotingDistrict struct {
	Code     string `json:"code"      validate:"required,max=20"`
	WardCode string `json:"ward_code" validate:"required"`
	Name     string `json:"name"      validate:"required"`
}

// WardHierarchy is a ward together with everything above it.
type WardHierarchy struct {
	Ward         Ward         `json:"ward"`
	Municipality Municipality `json:"municipality"`
	Province     Province     `json:"province"`
}

// ── Members ─────────────────────────────────────────────────────────────────

const (
	MemberActive   = "active"
	MemberInactive = "inactive"
	MemberExpired  = "expired"
)

// Member is a registered member of the organisation. IDNumber is unique:
// the database rejects a second member with the same national ID.
type Member struct {
	ID                 int64      `json:"id"`
	IDNumber           string     `json:"id_number"`
	FirstName          string     `json:"first_name"`
	Surname            string     `json:"surname"`
	DateOfBirth        time.Time  `json:"date_of_birth"`
	Gender             string     `json:"gender"`
	Cellphone          string     `json:"cellphone,omitempty"`
	Email              string     `json:"email,omitempty"`
	WardCode           string     `json:"ward_code"`
	VotingDistrictCode string     `json:"voting_district_code,omitempty"`
	Status             string     `json:"status"`
	MembershipExpiry   *time.Time `json:"membership_expiry,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// MemberInput is the request body for creating or updating a member and for
// submitting a membership application. Derived fields (date of birth,
// gender) come from the ID number, never from the client.
type MemberInput struct {
	IDNumber           string `json:"id_number"  validate:"required,len=13,numeric"`
	FirstName          string `json:"first_name" validate:"required"`
	Surname            string `json:"surname"    validate:"required"`
	Cellphone          string `json:"cellphone"  validate:"omitempty,min=10,max=12"`
	Email              string `json:"email"      validate:"omitempty,email"`
	WardCode           string `json:"ward_code"  validate:"required"`
	VotingDistrictCode string `json:"voting_district_code"`
	Status             string `json:"status"     validate:"omitempty,oneof=active inactive expired"`
}

// MemberFilter narrows a member listing. Zero values mean "no filter".
type MemberFilter struct {
	WardCode string
	Status   string
	Query    string
	Limit    int
	Offset   int
}

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Application is a membership request awaiting approval.
type Application struct {
	ID          int64      `json:"id"`
	MemberInput            // embedded: applicant details
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	MemberID    *int64     `json:"member_id,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// ── Elections ───────────────────────────────────────────────────────────────

const (
	ElectionDraft  = "draft"
	ElectionOpen   = "open"
	ElectionClosed = "closed"
)

type Election struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"        validate:"required"`
	ScopeLevel string    `json:"scope_level" validate:"required,oneof=national province municipality ward"`
	ScopeCode  string    `json:"scope_code"  validate:"required_unless=ScopeLevel national"`
	StartsAt   time.Time `json:"starts_at"   validate:"required"`
	EndsAt     time.Time `json:"ends_at"     validate:"required,gtfield=StartsAt"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type Candidate struct {
	ID         int64  `json:"id"`
	ElectionID int64  `json:"election_id"`
	MemberID   int64  `json:"member_id" validate:"required"`
	Position   string `json:"position"  validate:"required"`
	Name       string `json:"name,omitempty"`
}

// Vote is one member's ballot in one election. (election_id, member_id) is
// unique.
type Vote struct {
	ID          int64     `json:"id"`
	ElectionID  int64     `json:"election_id"`
	MemberID    int64     `json:"member_id"    validate:"required"`
	CandidateID int64     `json:"candidate_id" validate:"required"`
	CastAt      time.Time `json:"cast_at"`
}

type CandidateResult struct {
	CandidateID int64  `json:"candidate_id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Votes       int    `json:"votes"`
}

// ── War council ─────────────────────────────────────────────────────────────

type WarCouncilPosition struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	HolderID    *int64     `json:"holder_id,omitempty"`
	HolderName  string     `json:"holder_name,omitempty"`
	AppointedAt *time.Time `json:"appointed_at,omitempty"`
}

// ── Meetings ────────────────────────────────────────────────────────────────

const (
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

type Meeting struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"       validate:"required"`
	Level       string    `json:"level"       validate:"required,oneof=national province municipality ward"`
	EntityCode  string    `json:"entity_code" validate:"required_unless=Level national"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type MeetingDocument struct {
	ID        int64     `json:"id"`
	MeetingID int64     `json:"meeting_id"`
	Title     string    `json:"title"   validate:"required"`
	Kind      string    `json:"kind"    validate:"required,oneof=agenda minutes attendance other"`
	Content   string    `json:"content" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Users, roles, audit ─────────────────────────────────────────────────────

type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"        validate:"required"`
	Permissions []string `json:"permissions" validate:"dive,required,excludesall=0x2C"`
}

// User is an administrator of the system. PasswordHash never leaves the
// server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       int64     `json:"role_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   int64  `json:"role_id"  validate:"required"`
}

// UserUpdate holds optional changes; nil fields are left untouched.
type UserUpdate struct {
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	RoleID   *int64  `json:"role_id"`
	Active   *bool   `json:"active"`
}

type AuditLog struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AuditFilter struct {
	EntityType string
	Action     string
	Limit      int
}

// ── Uploads ─────────────────────────────────────────────────────────────────

const (
	UploadRunning   = "running"
	UploadCompleted = "completed"
	UploadFailed    = "failed"
)

// UploadJob records one run of the bulk member upload pipeline.
type UploadJob struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Accepted   int        `json:"accepted"`
	Rejected   int        `json:"rejected"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	ReportPath string     `json:"-"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ── Backups ─────────────────────────────────────────────────────────────────

const (
	BackupRunning   = "running"
	BackupCompleted = "completed"
	BackupFailed    = "failed"
)

// BackupRecord tracks one copy of the database written to the backup
// directory.
type BackupRecord struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	Path       string     `json:"-"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedBy  string     `json:"created_by"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ── SMS ─────────────────────────────────────────────────────────────────────

const (
	SMSQueued    = "queued"
	SMSSent      = "sent"
	SMSDelivered = "delivered"
	SMSFailed    = "failed"
)

type SMSMessage struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	GatewayID string    `json:"gateway_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ── IEC ─────────────────────────────────────────────────────────────────────

// IECMapping links one of our geographic codes to the electoral
// commission's own identifier for the same area.
type IECMapping struct {
	EntityType string    `json:"entity_type"`
	Code       string    `json:"code"`
	IECID      string    `json:"iec_id"`
	Name       string    `json:"name,omitempty"`
	SyncedAt   time.Time `json:"synced_at"`
}
