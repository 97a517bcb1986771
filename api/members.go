package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/members"
)

type UpdateMeRequest struct {
	Name string `json:"name"`
}

// Me returns the signed in member
func (c *Client) Me(ctx context.Context) (*members.Member, error) {
	var m members.Member
	if err := c.doJSON(ctx, http.MethodGet, RouteMembersMe, nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMe renames the signed in member. The name is trimmed and must not be empty.
func (c *Client) UpdateMe(ctx context.Context, name string) (*members.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "[api UpdateMe] name is required")
	}

	var m members.Member
	if err := c.doJSON(ctx, http.MethodPut, RouteMembersMe, nil, UpdateMeRequest{Name: name}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) WithdrawMe(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, RouteMembersMe, nil, nil, nil)
}

// ListMembers returns every member. Admin only.
func (c *Client) ListMembers(ctx context.Context) ([]members.Member, error) {
	var list []members.Member
	if err := c.doJSON(ctx, http.MethodGet, RouteMembers, nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetMember(ctx context.Context, id int64) (*members.Member, error) {
	var m members.Member
	if err := c.doJSON(ctx, http.MethodGet, withID(RouteMember, id), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListWithdrawnMembers(ctx context.Context) ([]members.Member, error) {
	var list []members.Member
	if err := c.doJSON(ctx, http.MethodGet, RouteMembersWithdrawn, nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RestoreMember reactivates a withdrawn member. Admin only.
func (c *Client) RestoreMember(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodPost, withID(RouteMemberRestore, id), nil, nil, nil)
}

func withID(route string, id int64) string {
	return strings.Replace(route, "{id}", strconv.FormatInt(id, 10), 1)
}
