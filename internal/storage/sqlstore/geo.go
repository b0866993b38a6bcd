package sqlstore

import (
	"context"
	"fmt"

	"github.com/aanand-mishra/membership-api/internal/types"
)

func (s *Store) CreateProvince(ctx context.Context, p types.Province) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO provinces (code, name) VALUES (?, ?)", p.Code, p.Name)
	return s.wrap("CreateProvince: exec", err)
}

func (s *Store) ListProvinces(ctx context.Context) ([]types.Province, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT code, name FROM provinces ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("ListProvinces: query: %w", err)
	}
	defer rows.Close()

	provinces := make([]types.Province, 0)
	for rows.Next() {
		var p types.Province
		if err := rows.Scan(&p.Code, &p.Name); err != nil {
			return nil, fmt.Errorf("ListProvinces: scan row: %w", err)
		}
		provinces = append(provinces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListProvinces: rows iteration: %w", err)
	}
	return provinces, nil
}

func (s *Store) GetProvince(ctx context.Context, code string) (types.Province, error) {
	var p types.Province
	err := s.q.QueryRowContext(ctx,
		"SELECT code, name FROM provinces WHERE code = ?", code).Scan(&p.Code, &p.Name)
	if err != nil {
		return types.Province{}, s.wrap(fmt.Sprintf("GetProvince(%s)", code), err)
	}
	return p, nil
}

func (s *Store) CreateMunicipality(ctx context.Context, m types.Municipality) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO municipalities (code, province_code, name) VALUES (?, ?, ?)",
		m.Code, m.ProvinceCode, m.Name)
	return s.wrap("CreateMunicipality: exec", err)
}

// ListMunicipalities lists all municipalities, or only those of one
// province when provinceCode is set.
func (s *Store) ListMunicipalities(ctx context.Context, provinceCode string) ([]types.Municipality, error) {
	query := "SELECT code, province_code, name FROM municipalities"
	var args []any
	if provinceCode != "" {
		query += " WHERE province_code = ?"
		args = append(args, provinceCode)
	}
	query += " ORDER BY code"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMunicipalities: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Municipality, 0)
	for rows.Next() {
		var m types.Municipality
		if err := rows.Scan(&m.Code, &m.ProvinceCode, &m.Name); err != nil {
			return nil, fmt.Errorf("ListMunicipalities: scan row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMunicipalities: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) GetMunicipality(ctx context.Context, code string) (types.Municipality, error) {
	var m types.Municipality
	err := s.q.QueryRowContext(ctx,
		"SELECT code, province_code, name FROM municipalities WHERE code = ?", code,
	).Scan(&m.Code, &m.ProvinceCode, &m.Name)
	if err != nil {
		return types.Municipality{}, s.wrap(fmt.Sprintf("GetMunicipality(%s)", code), err)
	}
	return m, nil
}

func (s *Store) CreateWard(ctx context.Context, w types.Ward) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO wards (code, municipality_code, number) VALUES (?, ?, ?)",
		w.Code, w.MunicipalityCode, w.Number)
	return s.wrap("CreateWard: exec", err)
}

func (s *Store) ListWards(ctx context.Context, municipalityCode string) ([]types.Ward, error) {
	query := "SELECT code, municipality_code, number FROM wards"
	var args []any
	if municipalityCode != "" {
		query += " WHERE municipality_code = ?"
		args = append(args, municipalityCode)
	}
	query += " ORDER BY municipality_code, number"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListWards: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.Ward, 0)
	for rows.Next() {
		var w types.Ward
		if err := rows.Scan(&w.Code, &w.MunicipalityCode, &w.Number); err != nil {
			return nil, fmt.Errorf("ListWards: scan row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListWards: rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) GetWard(ctx context.Context, code string) (types.Ward, error) {
	var w types.Ward
	err := s.q.QueryRowContext(ctx,
		"SELECT code, municipality_code, number FROM wards WHERE code = ?", code,
	).Scan(&w.Code, &w.MunicipalityCode, &w.Number)
	if err != nil {
		return types.Ward{}, s.wrap(fmt.Sprintf("GetWard(%s)", code), err)
	}
	return w, nil
}

func (s *Store) WardExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM wards WHERE code = ?", code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("WardExists: scan: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetWardHierarchy(ctx context.Context, code string) (types.WardHierarchy, error) {
	var h types.WardHierarchy
	err := s.q.QueryRowContext(ctx, `
		SELECT w.code, w.municipality_code, w.number,
		       m.code, m.province_code, m.name,
		       p.code, p.name
		FROM wards w
		JOIN municipalities m ON m.code = w.municipality_code
		JOIN provinces p ON p.code = m.province_code
		WHERE w.code = ?`, code,
	).Scan(
		&h.Ward.Code, &h.Ward.MunicipalityCode, &h.Ward.Number,
		&h.Municipality.Code, &h.Municipality.ProvinceCode, &h.Municipality.Name,
		&h.Province.Code, &h.Province.Name,
	)
	if err != nil {
		return types.WardHierarchy{}, s.wrap(fmt.Sprintf("GetWardHierarchy(%s)", code), err)
	}
	return h, nil
}

func (s *Store) CreateVotingDistrict(ctx context.Context, vd types.VotingDistrict) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO voting_districts (code, ward_code, name) VALUES (?, ?, ?)",
		vd.Code, vd.WardCode, vd.Name)
	return s.wrap("CreateVotingDistrict: exec", err)
}

func (s *Store) ListVotingDistricts(ctx context.Context, wardCode string) ([]types.VotingDistrict, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT code, ward_code, name FROM voting_districts WHERE ward_code = ? ORDER BY code", wardCode)
	if err != nil {
		return nil, fmt.Errorf("ListVotingDistricts: query: %w", err)
	}
	defer rows.Close()

	out := make([]types.VotingDistrict, 0)
	for rows.Next() {
		var vd types.VotingDistrict
		if err := rows.Scan(&vd.Code, &vd.WardCode, &vd.Name); err != nil {
			return nil, fmt.Errorf("ListVotingDistricts: scan row: %w", err)
		}
		out = append(out, vd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListVotingDistricts: rows iteration: %w", err)
	}
	return out, nil
}
