package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/google/uuid"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*dto.ProfileResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := toProfile(user)
	return &p, nil
}

// UpdateProfile applies the non-nil fields of req on top of the stored profile.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	req.Normalize()
	if v := req.Validate(); v != dto.ViolationNone {
		return nil, invalid(v)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	p := models.Profile{
		Bio:         user.Bio,
		Avatar:      user.Avatar,
		Role:        user.Role,
		Location:    user.Location,
		Interests:   []string(user.Interests),
		SocialLinks: user.SocialLinks,
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Avatar != nil {
		p.Avatar = *req.Avatar
		if p.Avatar == "" {
			p.Avatar = models.DefaultAvatar
		}
	}
	if req.Role != nil && *req.Role != "" {
		p.Role = *req.Role
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Interests != nil {
		p.Interests = req.Interests
	}
	if req.SocialLinks != nil {
		p.SocialLinks = models.SocialLinks{
			Instagram: req.SocialLinks.Instagram,
			Twitter:   req.SocialLinks.Twitter,
			YouTube:   req.SocialLinks.YouTube,
			TikTok:    req.SocialLinks.TikTok,
		}
	}

	updated, err := s.users.UpdateProfile(ctx, id, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	out := toProfile(updated)
	return &out, nil
}

// Contacts lists every user except the caller, ordered by username.
func (s *UserService) Contacts(ctx context.Context, id uuid.UUID) ([]dto.ProfileResponse, error) {
	users, err := s.users.ListExcept(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		out = append(out, toProfile(&users[i]))
	}
	return out, nil
}

func toProfile(u *models.User) dto.ProfileResponse {
	interests := []string(u.Interests)
	if interests == nil {
		interests = []string{}
	}
	return dto.ProfileResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Bio:      u.Bio,
		Avatar:   u.Avatar,
		Role:     u.Role,
		SocialLinks: dto.SocialLinksResponse{
			Instagram: u.SocialLinks.Instagram,
			Twitter:   u.SocialLinks.Twitter,
			YouTube:   u.SocialLinks.YouTube,
			TikTok:    u.SocialLinks.TikTok,
		},
		Interests: interests,
		Location:  u.Location,
		Followers: u.Followers,
		Following: u.Following,
		CreatedAt: u.CreatedAt,
	}
}
