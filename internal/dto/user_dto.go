package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SocialLinksRequest struct {
	Instagram string `json:"instagram" validate:"max=255"`
	Twitter   string `json:"twitter" validate:"max=255"`
	YouTube   string `json:"youtube" validate:"max=255"`
	TikTok    string `json:"tiktok" validate:"max=255"`
}

// UpdateProfileRequest is a partial update: nil fields are left untouched.
// An empty avatar resets it to the default placeholder.
type UpdateProfileRequest struct {
	Bio         *string             `json:"bio" validate:"omitempty,max=1000"`
	Avatar      *string             `json:"avatar" validate:"omitempty,max=512"`
	Role        *string             `json:"role" validate:"omitempty,oneof=influencer brand"`
	Location    *string             `json:"location" validate:"omitempty,max=255"`
	Interests   []string            `json:"interests" validate:"omitempty,max=50,dive,max=64"`
	SocialLinks *SocialLinksRequest `json:"socialLinks"`
}

func (r *UpdateProfileRequest) Normalize() {
	trim(r.Bio)
	trim(r.Avatar)
	trim(r.Location)
	if r.Role != nil {
		*r.Role = strings.ToLower(strings.TrimSpace(*r.Role))
	}
	if r.SocialLinks != nil {
		r.SocialLinks.Instagram = strings.TrimSpace(r.SocialLinks.Instagram)
		r.SocialLinks.Twitter = strings.TrimSpace(r.SocialLinks.Twitter)
		r.SocialLinks.YouTube = strings.TrimSpace(r.SocialLinks.YouTube)
		r.SocialLinks.TikTok = strings.TrimSpace(r.SocialLinks.TikTok)
	}
	if r.Interests != nil {
		r.Interests = normalizeInterests(r.Interests)
	}
}

func (r *UpdateProfileRequest) Validate() Violation {
	if v := check(r, rules{"Role": ViolationRoleUnknown}); v != ViolationNone {
		return v
	}
	if r.Avatar != nil && *r.Avatar != "" {
		if err := validate.Var(*r.Avatar, "url"); err != nil {
			return ViolationAvatarURL
		}
	}
	return ViolationNone
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// normalizeInterests trims entries and drops blanks and case-insensitive
// duplicates, keeping first-seen order.
func normalizeInterests(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

type SocialLinksResponse struct {
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	YouTube   string `json:"youtube"`
	TikTok    string `json:"tiktok"`
}

// ProfileResponse is a user as seen by other users and by themselves.
// It never carries the password hash.
type ProfileResponse struct {
	ID          uuid.UUID           `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Bio         string              `json:"bio"`
	Avatar      string              `json:"avatar"`
	Role        string              `json:"role"`
	SocialLinks SocialLinksResponse `json:"socialLinks"`
	Interests   []string            `json:"interests"`
	Location    string              `json:"location"`
	Followers   int                 `json:"followers"`
	Following   int                 `json:"following"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type ProfileEnvelope struct {
	User ProfileResponse `json:"user"`
}
