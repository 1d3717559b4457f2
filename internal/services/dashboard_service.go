package services

import (
	"context"

	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/google/uuid"
)

const recentActivityLimit = 5

type DashboardService struct {
	users repository.UserRepository
	chats repository.ChatRepository
	chat  *ChatService
}

func NewDashboardService(users repository.UserRepository, chats repository.ChatRepository, chat *ChatService) *DashboardService {
	return &DashboardService{users: users, chats: chats, chat: chat}
}

// Summary builds the caller's dashboard. PendingRequests is always 0: there
// is no connection-request feature behind it yet.
func (s *DashboardService) Summary(ctx context.Context, caller uuid.UUID) (*dto.DashboardResponse, error) {
	connections, err := s.users.CountExcept(ctx, caller)
	if err != nil {
		return nil, err
	}
	active, err := s.chats.CountForUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	recent, err := s.chat.ListChats(ctx, caller, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		TotalConnections: connections,
		PendingRequests:  0,
		ActiveChats:      active,
		RecentActivity:   recent,
	}, nil
}
