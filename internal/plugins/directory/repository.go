package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/werkschau/server/internal/apperror"
)

const mysqlDuplicateEntry = 1062

// Repository defines the data access contract for profiles and reference
// data. All SQL lives in the concrete implementation.
type Repository interface {
	// Profiles.
	CreateProfile(ctx context.Context, p *Profile) error
	HasProfile(ctx context.Context, viewerID string) (bool, error)
	ListAcceptedProfiles(ctx context.Context) ([]Profile, error)
	AcceptProfile(ctx context.Context, id string) error
	DeleteProfile(ctx context.Context, id string) error

	// Reference data.
	ListCrafts(ctx context.Context) ([]Craft, error)
	CreateCraft(ctx context.Context, c *Craft) error
	UpdateCraft(ctx context.Context, c *Craft) error
	ListSkills(ctx context.Context) ([]Skill, error)
	CreateSkill(ctx context.Context, s *Skill) error
	UpdateSkill(ctx context.Context, s *Skill) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new directory repository backed by the given pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// CreateProfile inserts a new, not-yet-accepted profile row.
func (r *repository) CreateProfile(ctx context.Context, p *Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, viewer_id, name, craft, location, bio, accepted)
	     VALUES (?, ?, ?, ?, ?, ?, FALSE)`,
		p.ID, p.ViewerID, p.Name, p.Craft, p.Location, p.Bio,
	)
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// HasProfile returns true if the viewer has created a profile. Also serves
// the auth plugin's ProfileChecker for login/status responses.
func (r *repository) HasProfile(ctx context.Context, viewerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE viewer_id = ?)`, viewerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking profile existence: %w", err)
	}
	return exists, nil
}

// ListAcceptedProfiles returns every accepted profile, newest first.
func (r *repository) ListAcceptedProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, viewer_id, name, craft, location, bio, accepted, created_at, updated_at
	     FROM profiles WHERE accepted = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(
			&p.ID, &p.ViewerID, &p.Name, &p.Craft, &p.Location, &p.Bio,
			&p.Accepted, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// AcceptProfile flips the accepted flag, making the profile public.
// Returns apperror.NotFound if no profile exists with this id.
func (r *repository) AcceptProfile(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET accepted = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("accepting profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("profile not found")
	}
	return nil
}

// DeleteProfile removes a profile row.
// Returns apperror.NotFound if no profile exists with this id.
func (r *repository) DeleteProfile(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("profile not found")
	}
	return nil
}

// --- Reference data ---

func (r *repository) ListCrafts(ctx context.Context) ([]Craft, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM crafts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing crafts: %w", err)
	}
	defer rows.Close()

	var crafts []Craft
	for rows.Next() {
		var c Craft
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning craft row: %w", err)
		}
		crafts = append(crafts, c)
	}
	return crafts, rows.Err()
}

func (r *repository) CreateCraft(ctx context.Context, c *Craft) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO crafts (id, name) VALUES (?, ?)`, c.ID, c.Name)
	return refDataInsertErr(err, "craft")
}

func (r *repository) UpdateCraft(ctx context.Context, c *Craft) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE crafts SET name = ? WHERE id = ?`, c.Name, c.ID)
	return refDataUpdateErr(result, err, "craft")
}

func (r *repository) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (r *repository) CreateSkill(ctx context.Context, s *Skill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO skills (id, name) VALUES (?, ?)`, s.ID, s.Name)
	return refDataInsertErr(err, "skill")
}

func (r *repository) UpdateSkill(ctx context.Context, s *Skill) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE skills SET name = ? WHERE id = ?`, s.Name, s.ID)
	return refDataUpdateErr(result, err, "skill")
}

// refDataInsertErr maps duplicate-name violations to Conflict.
func refDataInsertErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return apperror.NewConflict(kind + " with that name already exists")
	}
	return fmt.Errorf("inserting %s: %w", kind, err)
}

// refDataUpdateErr maps zero-row updates to NotFound.
func refDataUpdateErr(result sql.Result, err error, kind string) error {
	if err != nil {
		return fmt.Errorf("updating %s: %w", kind, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound(kind + " not found")
	}
	return nil
}
