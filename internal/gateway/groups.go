package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// FetchGroupsForUser returns the groups userID belongs to, resolved
// through the membership join table.
func (c *Client) FetchGroupsForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	query := url.Values{}
	query.Set("select", "group:groups(*)")
	query.Set("user_id", "eq."+userID)
	var rows []struct {
		Group *domain.Group `json:"group"`
	}
	if err := c.get(ctx, "group_members", query, false, &rows); err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(rows))
	for _, row := range rows {
		if row.Group == nil {
			continue
		}
		groups = append(groups, *row.Group)
	}
	return groups, nil
}

// CreateGroup inserts a group row, then one admin membership for the
// creator plus one member row per supplied id. If the membership insert
// fails the group row is deleted again so no memberless group survives;
// a failed compensation is reported alongside the original error.
func (c *Client) CreateGroup(ctx context.Context, creatorID, name, description string, memberIDs []string) (domain.Group, error) {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	var group domain.Group
	if err := c.insert(ctx, "groups", body, nil, &group); err != nil {
		return domain.Group{}, fmt.Errorf("create group: %w", err)
	}

	members := make([]domain.GroupMember, 0, 1+len(memberIDs))
	members = append(members, domain.GroupMember{GroupID: group.ID, UserID: creatorID, Role: domain.RoleAdmin})
	for _, id := range memberIDs {
		members = append(members, domain.GroupMember{GroupID: group.ID, UserID: id, Role: domain.RoleMember})
	}
	if err := c.insert(ctx, "group_members", members, nil, nil); err != nil {
		query := url.Values{}
		query.Set("id", "eq."+group.ID)
		if delErr := c.remove(ctx, "groups", query); delErr != nil {
			return domain.Group{}, errors.Join(fmt.Errorf("add members: %w", err), fmt.Errorf("rollback group: %w", delErr))
		}
		return domain.Group{}, fmt.Errorf("add members: %w", err)
	}
	return group, nil
}
