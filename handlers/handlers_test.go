package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/Cherishclears/library-backend/services"
	"github.com/Cherishclears/library-backend/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	hub    *services.NotificationHub
}

func givenEnv(t *testing.T) *testEnv {
	return givenEnvWithRate(t, 100)
}

func givenEnvWithRate(t *testing.T, loginRate int) *testEnv {
	return givenEnvWith(t, loginRate, nil)
}

func givenEnvWith(t *testing.T, loginRate int, cache services.StatsCache) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.GivenDB(t)
	users := services.NewUserService(db)
	users.HashCost = bcrypt.MinCost
	files, err := services.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	hub := services.NewNotificationHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	bus := services.NewEventBus(nil)
	Configure(Dependencies{
		Users:           users,
		Books:           services.NewBookService(db),
		Borrows:         services.NewBorrowService(db, bus, 30),
		Stats:           services.NewStatsService(db, cache, time.Minute),
		Files:           files,
		Hub:             hub,
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		LoginRatePerMin: loginRate,
	})

	router := gin.New()
	RegisterRoutes(router)
	return &testEnv{t: t, db: db, router: router, hub: hub}
}

func (e *testEnv) token(user models.User) string {
	e.t.Helper()
	token, err := IssueToken(user)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// mapCache keeps the dashboard in memory the way Redis would
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := givenEnv(t)
	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginAndCheck(t *testing.T) {
	env := givenEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "reader", "password": "secret1", "name": "Reader"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[AuthResponse](t, w)
	assert.Equal(t, models.RoleReader, registered.User.Role)
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "reader", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[AuthResponse](t, w)
	require.NotEmpty(t, login.Token)

	w = env.do(http.MethodGet, "/api/auth/check", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, w)["authenticated"])

	w = env.do(http.MethodGet, "/api/auth/check", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]interface{}](t, w)["authenticated"])
}

func TestLoginIsRateLimited(t *testing.T) {
	env := givenEnvWithRate(t, 2)
	testutil.GivenUser(t, env.db, "reader", models.RoleReader)

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader", "password": "password"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "reader", "password": "password"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	env := givenEnv(t)
	reader := testutil.GivenUser(t, env.db, "reader", models.RoleReader)

	w := env.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.token(reader)
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", reader.ID).
		Update("status", models.UserStatusDisabled).Error)
	w = env.do(http.MethodGet, "/api/books", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "disabled accounts lose access immediately")
}

func TestReaderCannotCallAdminEndpoints(t *testing.T) {
	env := givenEnv(t)
	reader := testutil.GivenUser(t, env.db, "reader", models.RoleReader)
	book := testutil.GivenBook(t, env.db, "978-1", 1)
	token := env.token(reader)

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/admin/stats", nil},
		{http.MethodGet, "/api/admin/borrows/recent", nil},
		{http.MethodPost, "/api/admin/borrows/mark-overdue", nil},
		{http.MethodGet, "/api/borrows", nil},
		{http.MethodGet, "/api/borrows/overdue", nil},
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/books", gin.H{"isbn": "x", "title": "x", "author": "x", "totalCopies": 1}},
		{http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), nil},
		{http.MethodPut, "/api/borrows/1/approve", nil},
	} {
		w := env.do(tc.method, tc.path, token, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAdminCannotFileBorrows(t *testing.T) {
	env := givenEnv(t)
	admin := testutil.GivenUser(t, env.db, "admin", models.RoleAdmin)
	book := testutil.GivenBook(t, env.db, "978-1", 1)

	w := env.do(http.MethodPost, "/api/borrows", env.token(admin), gin.H{"bookId": book.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBorrowWorkflowOverHTTP(t *testing.T) {
	env := givenEnv(t)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	alice := env.token(testutil.GivenUser(t, env.db, "alice", models.RoleReader))
	bob := env.token(testutil.GivenUser(t, env.db, "bob", models.RoleReader))
	book := testutil.GivenBook(t, env.db, "978-1", 1)

	w := env.do(http.MethodPost, "/api/borrows", alice, gin.H{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	borrow := decode[models.Borrow](t, w)
	assert.Equal(t, models.BorrowPending, borrow.Status)
	assert.Nil(t, borrow.ReturnDate)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/borrows/%d/approve", borrow.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.BorrowApproved, decode[models.Borrow](t, w).Status)
	assert.Equal(t, 0, testutil.ReloadBook(t, env.db, book.ID).AvailableCopies)

	w = env.do(http.MethodPost, "/api/borrows", bob, gin.H{"bookId": book.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no copies available")

	w = env.do(http.MethodPut, fmt.Sprintf("/api/borrows/%d/reject", borrow.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "approved borrows cannot be rejected")

	w = env.do(http.MethodGet, "/api/borrows/current", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Borrow](t, w), 1)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/borrows/%d/return", borrow.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	returned := decode[models.Borrow](t, w)
	assert.Equal(t, models.BorrowReturned, returned.Status)
	assert.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 1, testutil.ReloadBook(t, env.db, book.ID).AvailableCopies)

	w = env.do(http.MethodPut, "/api/borrows/999/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPut, "/api/borrows/abc/approve", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/borrows/status/RETURNED", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.Page[models.Borrow]](t, w)
	assert.EqualValues(t, 1, page.Total)

	w = env.do(http.MethodGet, "/api/borrows/status/LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.DashboardStats](t, w)
	assert.EqualValues(t, 1, stats.TotalBorrows)
}

func TestReadersOnlySeeTheirOwnBorrows(t *testing.T) {
	env := givenEnv(t)
	aliceUser := testutil.GivenUser(t, env.db, "alice", models.RoleReader)
	bobUser := testutil.GivenUser(t, env.db, "bob", models.RoleReader)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	alice, bob := env.token(aliceUser), env.token(bobUser)
	book := testutil.GivenBook(t, env.db, "978-1", 2)

	w := env.do(http.MethodPost, "/api/borrows", alice, gin.H{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	borrow := decode[models.Borrow](t, w)
	path := fmt.Sprintf("/api/borrows/%d", borrow.ID)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, alice, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, admin, nil).Code)

	foreign := env.do(http.MethodGet, path, bob, nil)
	missing := env.do(http.MethodGet, fmt.Sprintf("/api/borrows/%d", borrow.ID+1000), bob, nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t,
		strings.Replace(missing.Body.String(), fmt.Sprint(borrow.ID+1000), fmt.Sprint(borrow.ID), 1),
		foreign.Body.String(), "another reader's borrow is indistinguishable from a missing one")

	userPath := fmt.Sprintf("/api/borrows/user/%d", aliceUser.ID)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, userPath, alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, userPath, bob, nil).Code)

	profile := fmt.Sprintf("/api/users/%d", aliceUser.ID)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, profile, alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, profile, bob, nil).Code)
}

func TestUserUpdateRoleNeedsAdmin(t *testing.T) {
	env := givenEnv(t)
	readerUser := testutil.GivenUser(t, env.db, "reader", models.RoleReader)
	reader := env.token(readerUser)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	path := fmt.Sprintf("/api/users/%d", readerUser.ID)

	w := env.do(http.MethodPut, path, reader, gin.H{"name": "New Name", "role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, path, reader, gin.H{"name": "New Name"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New Name", decode[models.User](t, w).Name)

	w = env.do(http.MethodPut, path, admin, gin.H{"name": "New Name", "status": "DISABLED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UserStatusDisabled, decode[models.User](t, w).Status)

	w = env.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookEndpoints(t *testing.T) {
	env := givenEnv(t)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	reader := env.token(testutil.GivenUser(t, env.db, "reader", models.RoleReader))

	body := gin.H{
		"isbn": "978-0", "title": "Dune", "author": "Frank Herbert", "category": "SciFi",
		"publishDate": "1965-08-01", "totalCopies": 2,
	}
	w := env.do(http.MethodPost, "/api/books", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book := decode[models.Book](t, w)
	assert.Equal(t, 2, book.AvailableCopies)
	require.NotNil(t, book.PublishDate)
	assert.Equal(t, "1965-08-01", book.PublishDate.String())

	w = env.do(http.MethodPost, "/api/books", admin, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/books", admin, gin.H{"isbn": "1", "title": "t", "author": "a", "totalCopies": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/books/isbn/978-0", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/books/999", reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/books?page=0&size=5&sort=title,desc", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.Page[models.Book]](t, w)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 5, page.Size)

	w = env.do(http.MethodGet, "/api/books/search?keyword=dune", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[services.Page[models.Book]](t, w).Total)

	w = env.do(http.MethodGet, "/api/books/search", reader, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/books/category/scifi", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[services.Page[models.Book]](t, w).Total)

	w = env.do(http.MethodGet, "/api/books/author/herbert", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[services.Page[models.Book]](t, w).Total)

	w = env.do(http.MethodGet, "/api/books/available", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Book](t, w), 1)

	w = env.do(http.MethodGet, "/api/books/public/search?keyword=frank", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "public search needs no token")
	assert.EqualValues(t, 1, decode[services.Page[models.Book]](t, w).Total)

	body["totalCopies"] = 4
	w = env.do(http.MethodPut, fmt.Sprintf("/api/books/%d", book.ID), admin, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[models.Book](t, w).AvailableCopies)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteBookWithActiveBorrowConflicts(t *testing.T) {
	env := givenEnv(t)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	reader := env.token(testutil.GivenUser(t, env.db, "reader", models.RoleReader))
	book := testutil.GivenBook(t, env.db, "978-1", 1)

	w := env.do(http.MethodPost, "/api/borrows", reader, gin.H{"bookId": book.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func multipartUpload(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadAndDownloadFiles(t *testing.T) {
	env := givenEnv(t)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	reader := env.token(testutil.GivenUser(t, env.db, "reader", models.RoleReader))
	book := testutil.GivenBook(t, env.db, "978-1", 1)

	body, contentType := multipartUpload(t, "file", "cover.jpg", "jpeg-bytes", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+reader)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode[map[string]string](t, w)["url"]
	require.True(t, strings.HasPrefix(url, "/api/files/"))

	w = env.do(http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())

	w = env.do(http.MethodGet, "/api/files/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, contentType = multipartUpload(t, "file", "notes.txt", "text", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+reader)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartUpload(t, "file", "cover.png", "png", map[string]string{"bookId": fmt.Sprint(book.ID)})
	req = httptest.NewRequest(http.MethodPost, "/api/books/upload-cover", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+admin)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(testutil.ReloadBook(t, env.db, book.ID).Cover, "/api/files/"))
}

func TestAdminEndpoints(t *testing.T) {
	env := givenEnv(t)
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))

	w := env.do(http.MethodPost, "/api/admin/borrows/mark-overdue", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"marked":0}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/admin/borrows/recent?limit=5", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(http.MethodGet, "/api/admin/system", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines")

	w = env.do(http.MethodGet, "/api/admin/notifications/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, w)["enabled"])
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"), "limits are per IP")

	now = now.Add(30 * time.Second)
	assert.True(t, limiter.Allow("1.1.1.1"), "a token refills every 30s at 2/min")

	now = now.Add(visitorTTL + time.Second)
	limiter.Allow("3.3.3.3")
	limiter.mu.Lock()
	_, kept := limiter.visitors["2.2.2.2"]
	limiter.mu.Unlock()
	assert.False(t, kept, "idle visitors are evicted")
}

func bookBody(isbn string, copies int) gin.H {
	return gin.H{"isbn": isbn, "title": "Title " + isbn, "author": "Author", "category": "Fiction", "totalCopies": copies}
}

func TestCatalogAndUserChangesRefreshCachedStats(t *testing.T) {
	env := givenEnvWith(t, 100, &mapCache{data: map[string][]byte{}})
	admin := env.token(testutil.GivenUser(t, env.db, "admin", models.RoleAdmin))
	reader := testutil.GivenUser(t, env.db, "reader", models.RoleReader)

	dashboard := func() services.DashboardStats {
		t.Helper()
		w := env.do(http.MethodGet, "/api/admin/stats", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[services.DashboardStats](t, w)
	}

	stats := dashboard()
	assert.EqualValues(t, 0, stats.TotalBooks)
	assert.EqualValues(t, 2, stats.TotalUsers)

	w := env.do(http.MethodPost, "/api/books", admin, bookBody("978-cache", 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book := decode[models.Book](t, w)
	stats = dashboard()
	assert.EqualValues(t, 1, stats.TotalBooks)
	assert.EqualValues(t, 2, stats.TotalCopies)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/books/%d", book.ID), admin, bookBody("978-cache", 5))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 5, dashboard().TotalCopies)

	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), admin, nil).Code)
	assert.EqualValues(t, 0, dashboard().TotalBooks)

	w = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "newcomer", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 3, dashboard().TotalUsers)

	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", reader.ID), admin, nil).Code)
	assert.EqualValues(t, 2, dashboard().TotalUsers)
}
