package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/werkschau/server/internal/apperror"
)

// Service defines the business logic for the directory surface.
type Service interface {
	CreateProfile(ctx context.Context, viewerID string, req CreateProfileRequest) (*Profile, error)
	HasProfile(ctx context.Context, viewerID string) (bool, error)
	ListAcceptedProfiles(ctx context.Context) ([]Profile, error)
	AcceptProfile(ctx context.Context, id string) error
	DeleteProfile(ctx context.Context, id string) error

	ListCrafts(ctx context.Context) ([]Craft, error)
	CreateCraft(ctx context.Context, name string) (*Craft, error)
	UpdateCraft(ctx context.Context, id, name string) error
	ListSkills(ctx context.Context) ([]Skill, error)
	CreateSkill(ctx context.Context, name string) (*Skill, error)
	UpdateSkill(ctx context.Context, id, name string) error
}

type service struct {
	repo Repository
}

// NewService creates the directory service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateProfile stores a new profile for the viewer. One profile per viewer:
// a second create is rejected with Conflict.
func (s *service) CreateProfile(ctx context.Context, viewerID string, req CreateProfileRequest) (*Profile, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Craft) == "" {
		return nil, apperror.NewBadRequest("name and craft are required")
	}

	has, err := s.repo.HasProfile(ctx, viewerID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking existing profile: %w", err))
	}
	if has {
		return nil, apperror.NewConflict("viewer already has a profile")
	}

	p := &Profile{
		ID:       uuid.NewString(),
		ViewerID: viewerID,
		Name:     strings.TrimSpace(req.Name),
		Craft:    strings.TrimSpace(req.Craft),
		Location: strings.TrimSpace(req.Location),
		Bio:      req.Bio,
	}

	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating profile: %w", err))
	}

	slog.Info("profile created",
		slog.String("profile_id", p.ID),
		slog.String("viewer_id", viewerID),
	)

	return p, nil
}

// HasProfile implements the auth plugin's ProfileChecker.
func (s *service) HasProfile(ctx context.Context, viewerID string) (bool, error) {
	return s.repo.HasProfile(ctx, viewerID)
}

func (s *service) ListAcceptedProfiles(ctx context.Context) ([]Profile, error) {
	profiles, err := s.repo.ListAcceptedProfiles(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing profiles: %w", err))
	}
	return profiles, nil
}

// AcceptProfile makes a profile publicly visible. Admin only (enforced by
// the route's middleware).
func (s *service) AcceptProfile(ctx context.Context, id string) error {
	if err := s.repo.AcceptProfile(ctx, id); err != nil {
		return passThrough(err, "accepting profile")
	}
	slog.Info("profile accepted", slog.String("profile_id", id))
	return nil
}

// DeleteProfile removes a profile. Admin only.
func (s *service) DeleteProfile(ctx context.Context, id string) error {
	if err := s.repo.DeleteProfile(ctx, id); err != nil {
		return passThrough(err, "deleting profile")
	}
	slog.Info("profile deleted", slog.String("profile_id", id))
	return nil
}

// --- Reference data ---

func (s *service) ListCrafts(ctx context.Context) ([]Craft, error) {
	crafts, err := s.repo.ListCrafts(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing crafts: %w", err))
	}
	return crafts, nil
}

func (s *service) CreateCraft(ctx context.Context, name string) (*Craft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewBadRequest("name is required")
	}
	c := &Craft{ID: uuid.NewString(), Name: name}
	if err := s.repo.CreateCraft(ctx, c); err != nil {
		return nil, passThrough(err, "creating craft")
	}
	return c, nil
}

func (s *service) UpdateCraft(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return apperror.NewBadRequest("id and name are required")
	}
	if err := s.repo.UpdateCraft(ctx, &Craft{ID: id, Name: name}); err != nil {
		return passThrough(err, "updating craft")
	}
	return nil
}

func (s *service) ListSkills(ctx context.Context) ([]Skill, error) {
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing skills: %w", err))
	}
	return skills, nil
}

func (s *service) CreateSkill(ctx context.Context, name string) (*Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewBadRequest("name is required")
	}
	sk := &Skill{ID: uuid.NewString(), Name: name}
	if err := s.repo.CreateSkill(ctx, sk); err != nil {
		return nil, passThrough(err, "creating skill")
	}
	return sk, nil
}

func (s *service) UpdateSkill(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return apperror.NewBadRequest("id and name are required")
	}
	if err := s.repo.UpdateSkill(ctx, &Skill{ID: id, Name: name}); err != nil {
		return passThrough(err, "updating skill")
	}
	return nil
}

// passThrough keeps AppErrors intact and wraps plain errors as internal.
func passThrough(err error, action string) error {
	if appErr, ok := err.(*apperror.AppError); ok {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", action, err))
}
