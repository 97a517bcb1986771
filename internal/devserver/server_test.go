package devserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/config"
	"github.com/jrsteele09/go-reserve-client/internal/devserver"
	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	adminEmail    = "admin@test.local"
	adminPassword = "Admin1234!"
)

type testConfig struct {
	config.EnvVars
	config.DevServer
}

func (testConfig) GetAdminEmail() string    { return adminEmail }
func (testConfig) GetAdminPassword() string { return adminPassword }
func (testConfig) GetJWTSecret() string     { return "test-secret" }

// staticAuth hands out one fixed token and never reissues
type staticAuth struct {
	token string
}

func (a *staticAuth) Token() (*oauth2.Token, error) {
	return api.NewToken(a.token, ""), nil
}

func (a *staticAuth) Reissue(ctx context.Context) (*oauth2.Token, error) {
	return nil, apperrors.ErrNoRefreshToken
}

func (a *staticAuth) OnUnauthorized(ctx context.Context, cause error) {}

type fixture struct {
	server *devserver.Server
	http   *httptest.Server
}

func setupTestServer(t *testing.T) *fixture {
	t.Helper()
	srv, err := devserver.New(testConfig{}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &fixture{server: srv, http: ts}
}

func (f *fixture) anonymous() *api.Client {
	return api.New(f.http.URL)
}

// loginAs signs in and returns a client carrying the access token
func (f *fixture) loginAs(t *testing.T, email, password string) (*api.Client, *api.TokenPair) {
	t.Helper()
	c := api.New(f.http.URL)
	pair, err := c.Login(context.Background(), email, password)
	require.NoError(t, err)
	c.AttachAuth(&staticAuth{token: pair.AccessToken})
	return c, pair
}

func (f *fixture) signupAndLogin(t *testing.T, name, email string) *api.Client {
	t.Helper()
	require.NoError(t, f.anonymous().Signup(context.Background(), api.SignupRequest{Name: name, Email: email, Password: "Password1"}))
	c, _ := f.loginAs(t, email, "Password1")
	return c
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(api.DateLayout)
}

func TestLoginAndMe(t *testing.T) {
	f := setupTestServer(t)
	c, pair := f.loginAs(t, adminEmail, adminPassword)
	assert.NotEmpty(t, pair.RefreshToken)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, adminEmail, me.Email)
	assert.True(t, me.IsAdmin())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := setupTestServer(t)
	_, err := f.anonymous().Login(context.Background(), adminEmail, "nope")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestMe_ExpiredAccessToken(t *testing.T) {
	f := setupTestServer(t)
	admin, ok := f.server.MemberByEmail(adminEmail)
	require.True(t, ok)
	expired, err := f.server.IssueAccessToken(admin, -time.Minute)
	require.NoError(t, err)

	c := f.anonymous()
	c.AttachAuth(&staticAuth{token: expired})
	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSignup_ValidationErrors(t *testing.T) {
	f := setupTestServer(t)
	err := f.anonymous().Signup(context.Background(), api.SignupRequest{Name: " ", Email: "not-an-email", Password: "short"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Body.HasFieldErrors())
	assert.Equal(t, map[string]string{
		"name":     "name is required",
		"email":    "email must be a valid email address",
		"password": "password must be at least 8 characters long",
	}, apiErr.Body.FieldErrors)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := setupTestServer(t)
	req := api.SignupRequest{Name: "Kim", Email: "kim@test.local", Password: "Password1"}
	require.NoError(t, f.anonymous().Signup(context.Background(), req))
	require.ErrorIs(t, f.anonymous().Signup(context.Background(), req), apperrors.ErrConflict)
}

func TestReissue(t *testing.T) {
	f := setupTestServer(t)
	_, pair := f.loginAs(t, adminEmail, adminPassword)
	c := f.anonymous()

	access, err := c.Reissue(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	admin, _ := f.server.MemberByEmail(adminEmail)
	require.NoError(t, f.server.RevokeRefreshTokens(admin.ID))
	_, err = c.Reissue(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := setupTestServer(t)
	_, pair := f.loginAs(t, adminEmail, adminPassword)
	c := f.anonymous()

	require.NoError(t, c.Logout(context.Background(), pair.RefreshToken))
	_, err := c.Reissue(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Unknown tokens are fine
	require.NoError(t, c.Logout(context.Background(), "unknown"))
}

func TestUpdateMeAndWithdraw(t *testing.T) {
	f := setupTestServer(t)
	c := f.signupAndLogin(t, "Kim", "kim@test.local")
	ctx := context.Background()

	me, err := c.UpdateMe(ctx, "  Lee ")
	require.NoError(t, err)
	assert.Equal(t, "Lee", me.Name)

	require.NoError(t, c.WithdrawMe(ctx))
	_, err = c.Me(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.anonymous().Login(ctx, "kim@test.local", "Password1")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// The admin sees and restores the withdrawn member
	admin, _ := f.loginAs(t, adminEmail, adminPassword)
	withdrawn, err := admin.ListWithdrawnMembers(ctx)
	require.NoError(t, err)
	require.Len(t, withdrawn, 1)
	require.NoError(t, admin.RestoreMember(ctx, withdrawn[0].ID))

	_, err = f.anonymous().Login(ctx, "kim@test.local", "Password1")
	require.NoError(t, err)
}

func TestAdminMembers_RequiresAdmin(t *testing.T) {
	f := setupTestServer(t)
	user := f.signupAndLogin(t, "Kim", "kim@test.local")
	ctx := context.Background()

	_, err := user.ListMembers(ctx)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	admin, _ := f.loginAs(t, adminEmail, adminPassword)
	list, err := admin.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	m, err := admin.GetMember(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "kim@test.local", m.Email)

	_, err = admin.GetMember(ctx, 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListRestaurants(t *testing.T) {
	f := setupTestServer(t)
	c := f.anonymous()
	ctx := context.Background()

	all, err := c.ListRestaurants(ctx, api.RestaurantQuery{Category: api.CategoryAll})
	require.NoError(t, err)
	assert.Equal(t, int64(6), all.TotalElements)
	assert.Equal(t, 1, all.TotalPages)

	japanese, err := c.ListRestaurants(ctx, api.RestaurantQuery{Category: "일식"})
	require.NoError(t, err)
	require.Len(t, japanese.Content, 1)
	assert.Equal(t, 4, japanese.Content[0].MaxPeople())

	byKeyword, err := c.ListRestaurants(ctx, api.RestaurantQuery{Keyword: "부산"})
	require.NoError(t, err)
	require.Len(t, byKeyword.Content, 1)
	assert.Equal(t, "해운대 횟집", byKeyword.Content[0].Name)

	paged, err := c.ListRestaurants(ctx, api.RestaurantQuery{PageParams: api.PageParams{Page: 1, Size: 4}})
	require.NoError(t, err)
	assert.Len(t, paged.Content, 2)
	assert.Equal(t, 2, paged.TotalPages)
	assert.False(t, paged.HasNext())

	r, err := c.GetRestaurant(ctx, paged.Content[0].ID)
	require.NoError(t, err)
	assert.Equal(t, paged.Content[0].Name, r.Name)

	_, err = c.GetRestaurant(ctx, 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNearbyRestaurants(t *testing.T) {
	f := setupTestServer(t)
	page, err := f.anonymous().NearbyRestaurants(context.Background(), api.NearbyQuery{Lat: 37.5660, Lng: 126.9910, RadiusKm: 2})
	require.NoError(t, err)

	require.NotEmpty(t, page.Content)
	assert.Equal(t, "을지로 국밥", page.Content[0].Name)
	for i, r := range page.Content {
		require.NotNil(t, r.Distance)
		assert.LessOrEqual(t, *r.Distance, 2.0)
		if i > 0 {
			assert.GreaterOrEqual(t, *r.Distance, *page.Content[i-1].Distance)
		}
		assert.Equal(t, "서울", r.Region)
	}
}

func TestReservationLifecycle(t *testing.T) {
	f := setupTestServer(t)
	c := f.signupAndLogin(t, "Kim", "kim@test.local")
	ctx := context.Background()

	list, err := c.ListRestaurants(ctx, api.RestaurantQuery{Keyword: "을지로"})
	require.NoError(t, err)
	require.Len(t, list.Content, 1)
	restaurant := &list.Content[0]

	res, err := c.Reserve(ctx, restaurant, api.ReservationRequest{
		ReservationDate: tomorrow(),
		ReservationTime: api.DefaultReservationTime,
		PeopleCount:     2,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, restaurant.Name, res.RestaurantName)
	assert.Equal(t, api.DefaultReservationTime, res.Time())

	mine, err := c.MyReservations(ctx, api.PageParams{})
	require.NoError(t, err)
	require.Len(t, mine.Content, 1)

	require.NoError(t, c.UpdateReservation(ctx, res.ReservationID, api.ReservationRequest{
		ReservationDate: tomorrow(),
		ReservationTime: "18:00",
		PeopleCount:     3,
	}))
	mine, err = c.MyReservations(ctx, api.PageParams{})
	require.NoError(t, err)
	assert.Equal(t, "18:00", mine.Content[0].Time())
	assert.Equal(t, 3, mine.Content[0].PeopleCount)

	// Someone else cannot cancel it
	other := f.signupAndLogin(t, "Park", "park@test.local")
	require.ErrorIs(t, other.CancelReservation(ctx, res.ReservationID), apperrors.ErrForbidden)

	require.NoError(t, c.CancelReservation(ctx, res.ReservationID))
	require.ErrorIs(t, c.CancelReservation(ctx, res.ReservationID), apperrors.ErrNotFound)
}

func TestReserve_FullSlot(t *testing.T) {
	f := setupTestServer(t)
	c := f.signupAndLogin(t, "Kim", "kim@test.local")
	ctx := context.Background()

	list, err := c.ListRestaurants(ctx, api.RestaurantQuery{Keyword: "을지로"})
	require.NoError(t, err)
	restaurant := &list.Content[0]
	req := api.ReservationRequest{ReservationDate: tomorrow(), ReservationTime: "19:00", PeopleCount: 5}

	for i := 0; i < devserver.SeatsPerSlot/5; i++ {
		_, err := c.Reserve(ctx, restaurant, req, time.Now())
		require.NoError(t, err)
	}

	_, err = c.Reserve(ctx, restaurant, req, time.Now())
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "Only 0 seats left")

	// Forcing the booking past the availability check is refused too
	req.RestaurantID = restaurant.ID
	_, err = c.CreateReservation(ctx, req)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestReservation_RequiresAuth(t *testing.T) {
	f := setupTestServer(t)
	_, err := f.anonymous().MyReservations(context.Background(), api.PageParams{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAdminRestaurants(t *testing.T) {
	f := setupTestServer(t)
	ctx := context.Background()

	user := f.signupAndLogin(t, "Kim", "kim@test.local")
	_, err := user.ImportRestaurants(ctx, "냉면")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	admin, _ := f.loginAs(t, adminEmail, adminPassword)
	msg, err := admin.ImportRestaurants(ctx, "냉면")
	require.NoError(t, err)
	n, ok := api.ParseSavedCount(msg)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	msg, err = admin.ImportRestaurants(ctx, "냉면")
	require.NoError(t, err)
	n, _ = api.ParseSavedCount(msg)
	assert.Zero(t, n)

	page, err := admin.ListAdminRestaurants(ctx, api.AdminRestaurantQuery{Keyword: "냉면"})
	require.NoError(t, err)
	require.Len(t, page.Content, 3)

	require.NoError(t, admin.DeleteAdminRestaurant(ctx, page.Content[0].ID))
	require.ErrorIs(t, admin.DeleteAdminRestaurant(ctx, page.Content[0].ID), apperrors.ErrNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestServer(t)
	_, err := f.anonymous().ListRestaurants(context.Background(), api.RestaurantQuery{})
	require.NoError(t, err)

	resp, err := http.Get(f.http.URL + devserver.RouteMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reserve_devserver_http_requests_total{method="GET",route="GET /api/restaurants",status="200"} 1`)
}
