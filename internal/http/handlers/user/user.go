// Package user serves administrator accounts and their roles.
//
// Passwords are stored as bcrypt hashes; types.User never serialises the
// hash.
package user

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

func hashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), hashCost)
	if err != nil {
		return "", fmt.Errorf("hashPassword: %w", err)
	}
	return string(h), nil
}

// checkPassword reports whether pw matches the user's stored hash.
func checkPassword(u types.User, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)) == nil
}

// CreateRole handles POST /api/v1/roles
func CreateRole(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var role types.Role
		if !request.Decode(w, r, &role) {
			return
		}
		id, err := store.CreateRole(r.Context(), role)
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := store.GetRole(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		audit.Record(r, store, audit.ActionCreate, "role", strconv.FormatInt(id, 10), role.Name)
		response.WriteJSON(w, http.StatusCreated, response.OK("role created", created))
	}
}

func ListRoles(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := store.ListRoles(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", roles))
	}
}

// roleExists writes a 400 and returns false when id names no role.
func roleExists(w http.ResponseWriter, r *http.Request, store storage.UserStore, id int64) bool {
	_, err := store.GetRole(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		response.BadRequest(w, fmt.Errorf("role %d does not exist", id))
		return false
	}
	if err != nil {
		response.Error(w, err)
		return false
	}
	return true
}

// Create handles POST /api/v1/users
//
//	{ "username": "nomsa", "email": "nomsa@example.org", "password": "...", "role_id": 1 }
func Create(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in types.UserInput
		if !request.Decode(w, r, &in) {
			return
		}
		if !roleExists(w, r, store, in.RoleID) {
			return
		}

		hash, err := hashPassword(in.Password)
		if err != nil {
			response.Error(w, err)
			return
		}
		id, err := store.CreateUser(r.Context(), types.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			RoleID:       in.RoleID,
			Active:       true,
		})
		if err != nil {
			response.Error(w, err)
			return
		}
		u, err := store.GetUser(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("user created", slog.Int64("id", id), slog.String("username", in.Username))
		audit.Record(r, store, audit.ActionCreate, "user", strconv.FormatInt(id, 10), in.Username)
		response.WriteJSON(w, http.StatusCreated, response.OK("user created", u))
	}
}

func Get(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		u, err := store.GetUser(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", u))
	}
}

func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListUsers(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", users))
	}
}

// Update handles PATCH /api/v1/users/{id}
//
// Only the fields present in the body change.
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		var in types.UserUpdate
		if !request.Decode(w, r, &in) {
			return
		}

		u, err := store.GetUser(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.RoleID != nil {
			if !roleExists(w, r, store, *in.RoleID) {
				return
			}
			u.RoleID = *in.RoleID
		}
		if in.Active != nil {
			u.Active = *in.Active
		}
		if in.Password != nil {
			if checkPassword(u, *in.Password) {
				response.BadRequest(w, errors.New("new password must differ from the current one"))
				return
			}
			if u.PasswordHash, err = hashPassword(*in.Password); err != nil {
				response.Error(w, err)
				return
			}
		}

		if err := store.UpdateUser(r.Context(), u); err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("user updated", slog.Int64("id", id))
		audit.Record(r, store, audit.ActionUpdate, "user", strconv.FormatInt(id, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("user updated", u))
	}
}

func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := request.PathID(w, r, "id")
		if !ok {
			return
		}
		if err := store.DeleteUser(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}
		slog.Info("user deleted", slog.Int64("id", id))
		audit.Record(r, store, audit.ActionDelete, "user", strconv.FormatInt(id, 10), "")
		response.WriteJSON(w, http.StatusOK, response.OK("user deleted", nil))
	}
}
