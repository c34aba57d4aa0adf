package principal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func newResolver(t *testing.T) *Resolver {
	return &Resolver{DB: newTestDB(t), Secret: []byte("test-secret")}
}

func newContext(cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func resolve(t *testing.T, r *Resolver, cookies ...*http.Cookie) (Principal, *httptest.ResponseRecorder) {
	c, rec := newContext(cookies...)
	var got Principal
	h := r.Middleware()(func(c echo.Context) error {
		got = FromContext(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return got, rec
}

func TestIssueAndAuthenticate(t *testing.T) {
	r := newResolver(t)
	user := models.User{Email: "a@b.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, r.DB.Create(&user).Error)

	token, err := r.Issue(user.ID, user.Role, LoginTTL)
	require.NoError(t, err)

	c, _ := newContext(&http.Cookie{Name: TokenCookie, Value: token})
	got, err := r.Authenticate(c)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "a@b.com", got.Email)
}

func TestMiddlewareResolvesUser(t *testing.T) {
	r := newResolver(t)
	user := models.User{Email: "a@b.com", PasswordHash: "x", Role: "admin"}
	require.NoError(t, r.DB.Create(&user).Error)

	token, err := r.Issue(user.ID, user.Role, LoginTTL)
	require.NoError(t, err)

	p, _ := resolve(t, r, &http.Cookie{Name: TokenCookie, Value: token})
	require.True(t, p.IsUser())
	require.Equal(t, user.ID, p.UserID)
	require.Equal(t, "admin", p.Role)
	require.Empty(t, p.SessionID)
}

func TestMiddlewareBadTokenFallsBackToGuest(t *testing.T) {
	r := newResolver(t)

	p, rec := resolve(t, r, &http.Cookie{Name: TokenCookie, Value: "garbage"})
	require.False(t, p.IsUser())
	require.NotEmpty(t, p.SessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, GuestCookie, cookies[0].Name)
	require.Equal(t, p.SessionID, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
}

func TestMiddlewareExpiredTokenFallsBackToGuest(t *testing.T) {
	r := newResolver(t)
	user := models.User{Email: "a@b.com", PasswordHash: "x"}
	require.NoError(t, r.DB.Create(&user).Error)

	token, err := r.Issue(user.ID, "user", -time.Minute)
	require.NoError(t, err)

	p, _ := resolve(t, r, &http.Cookie{Name: TokenCookie, Value: token})
	require.False(t, p.IsUser())
	require.NotEmpty(t, p.SessionID)
}

func TestMiddlewareDeletedSubjectFallsBackToGuest(t *testing.T) {
	r := newResolver(t)

	token, err := r.Issue(42, "user", LoginTTL)
	require.NoError(t, err)

	p, _ := resolve(t, r, &http.Cookie{Name: TokenCookie, Value: token})
	require.False(t, p.IsUser())
	require.NotEmpty(t, p.SessionID)
}

func TestMiddlewareReusesGuestCookie(t *testing.T) {
	r := newResolver(t)

	p, rec := resolve(t, r, &http.Cookie{Name: GuestCookie, Value: "guest_abc"})
	require.Equal(t, "guest_abc", p.SessionID)
	require.Equal(t, "guest:guest_abc", p.OwnerKey())
	require.Empty(t, rec.Result().Cookies())
}

func TestRequireAdmin(t *testing.T) {
	r := newResolver(t)
	admin := models.User{Email: "admin@b.com", PasswordHash: "x", Role: "admin"}
	user := models.User{Email: "user@b.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, r.DB.Create(&admin).Error)
	require.NoError(t, r.DB.Create(&user).Error)

	h := r.RequireAdmin()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	c, _ := newContext()
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)

	userToken, err := r.Issue(user.ID, user.Role, LoginTTL)
	require.NoError(t, err)
	c, _ = newContext(&http.Cookie{Name: TokenCookie, Value: userToken})
	err = h(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)

	adminToken, err := r.Issue(admin.ID, admin.Role, LoginTTL)
	require.NoError(t, err)
	c, rec := newContext(&http.Cookie{Name: TokenCookie, Value: adminToken})
	require.NoError(t, h(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminIgnoresForgedRoleClaim(t *testing.T) {
	r := newResolver(t)
	user := models.User{Email: "user@b.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, r.DB.Create(&user).Error)

	// Role admin in the claim, user in the store: the store wins.
	token, err := r.Issue(user.ID, "admin", LoginTTL)
	require.NoError(t, err)

	h := r.RequireAdmin()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	c, _ := newContext(&http.Cookie{Name: TokenCookie, Value: token})
	err = h(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestNewGuestID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewGuestID()
		require.Len(t, id, len("guest_")+32)
		require.False(t, seen[id])
		seen[id] = true
	}
}
