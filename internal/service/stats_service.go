package service

import (
	"context"
)

// StatsUserStore считает пользователей.
type StatsUserStore interface {
	CountUsers(ctx context.Context) (int, error)
}

// StatsItemStore считает объявления по статусам.
type StatsItemStore interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// StatsClaimStore считает заявки по статусам.
type StatsClaimStore interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// AdminStats агрегирует показатели для административной панели.
type AdminStats struct {
	Users          int            `json:"users"`
	ItemsByStatus  map[string]int `json:"items_by_status"`
	ItemsTotal     int            `json:"items_total"`
	ClaimsByStatus map[string]int `json:"claims_by_status"`
	ClaimsTotal    int            `json:"claims_total"`
}

// StatsService собирает сводную статистику реестра.
type StatsService struct {
	users  StatsUserStore
	items  StatsItemStore
	claims StatsClaimStore
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(users StatsUserStore, items StatsItemStore, claims StatsClaimStore) *StatsService {
	return &StatsService{users: users, items: items, claims: claims}
}

// Collect возвращает сводку по пользователям, объявлениям и заявкам.
func (s *StatsService) Collect(ctx context.Context) (*AdminStats, error) {
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	itemCounts, err := s.items.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	claimCounts, err := s.claims.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{
		Users:          users,
		ItemsByStatus:  itemCounts,
		ClaimsByStatus: claimCounts,
	}
	for _, n := range itemCounts {
		stats.ItemsTotal += n
	}
	for _, n := range claimCounts {
		stats.ClaimsTotal += n
	}

	return stats, nil
}
