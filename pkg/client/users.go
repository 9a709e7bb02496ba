package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-formflow/pkg/contract"
	"github.com/goliatone/go-formflow/pkg/profile"
)

// UserClient implements profile.UserService over HTTP.
type UserClient struct {
	t    *transport
	base string
}

var _ profile.UserService = (*UserClient)(nil)

// NewUserClient targets the users API rooted at baseURL.
func NewUserClient(baseURL string, opts ...Option) *UserClient {
	return &UserClient{t: newTransport(opts), base: baseURL}
}

type userEnvelope struct {
	User profile.User `json:"user"`
}

type updateUserRequest struct {
	User profile.Patch `json:"user"`
}

// FetchCurrentUser loads the authenticated user.
func (c *UserClient) FetchCurrentUser(ctx context.Context) (profile.User, error) {
	var env userEnvelope
	err := c.t.do(ctx, call{
		method:         http.MethodGet,
		url:            join(c.base, "/users/me"),
		responseSchema: contract.UserEnvelope,
		authenticated:  true,
	}, &env)
	if err != nil {
		return profile.User{}, err
	}
	return env.User, nil
}

// UpdateUser sends patch for the authenticated user.
func (c *UserClient) UpdateUser(ctx context.Context, patch profile.Patch) error {
	return c.t.do(ctx, call{
		method:        http.MethodPatch,
		url:           join(c.base, "/users/me"),
		body:          updateUserRequest{User: patch},
		requestSchema: contract.UpdateUserRequest,
		authenticated: true,
	}, nil)
}
