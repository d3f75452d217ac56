package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct{ DB *pgxpool.Pool }

const profileColumns = `user_id, email, phone, display_name, contact_email, contact_phone, updated_at`

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Email, &p.Phone, &p.DisplayName, &p.ContactEmail, &p.ContactPhone, &p.UpdatedAt)
	return p, err
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p, err := scanProfile(r.DB.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *ProfileRepo) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	return scanProfile(r.DB.QueryRow(ctx, `
		INSERT INTO profiles(user_id, email, phone, display_name, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			display_name = EXCLUDED.display_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			updated_at = now()
		RETURNING `+profileColumns,
		p.UserID, p.Email, p.Phone, p.DisplayName, p.ContactEmail, p.ContactPhone,
	))
}

// ListStaffContacts joins profiles with the staff table; staff without a profile are skipped.
func (r *ProfileRepo) ListStaffContacts(ctx context.Context) ([]StaffContact, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.user_id, p.email, p.phone, p.display_name, p.contact_email, p.contact_phone, p.updated_at
		FROM profiles p JOIN staff_members s ON s.user_id = p.user_id
		ORDER BY s.granted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffContact
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, StaffContactOf(p))
	}
	return out, rows.Err()
}

func (r *ProfileRepo) IsStaff(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM staff_members WHERE user_id=$1)`, userID).Scan(&ok)
	return ok, err
}

func (r *ProfileRepo) GrantStaff(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO staff_members(user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

func (r *ProfileRepo) RevokeStaff(ctx context.Context, userID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM staff_members WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
