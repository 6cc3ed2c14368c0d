package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/arzan03/natours/internal/app"
	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/services"
	"github.com/arzan03/natours/internal/storage"
)

type mailbox struct {
	mu   sync.Mutex
	sent []services.Message
}

func (m *mailbox) Send(_ context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type server struct {
	t       *testing.T
	app     *app.App
	backend *storage.Backend
	mail    *mailbox
}

func newServer(t *testing.T, configure ...func(*config.Config)) *server {
	t.Helper()
	cfg := config.Default()
	cfg.Env = config.EnvProduction
	cfg.Store = config.StoreMemory
	cfg.JWT.Secret = "test-secret-that-is-long-enough"
	cfg.Server.PublicDir = ""
	cfg.Server.RatingWorkers = 2
	cfg.RateLimit.Max = 10000
	for _, fn := range configure {
		fn(cfg)
	}

	backend := storage.NewMemoryBackend()
	mail := &mailbox{}
	a := app.New(app.Options{
		Config:  cfg,
		Logger:  zaptest.NewLogger(t),
		Backend: backend,
		Mailer:  mail,
	})
	t.Cleanup(func() {
		_ = a.Shutdown(context.Background())
	})
	return &server{t: t, app: a, backend: backend, mail: mail}
}

func (s *server) send(req *http.Request) (int, map[string]any) {
	s.t.Helper()
	resp, err := s.app.Fiber.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(data) == 0 {
		return resp.StatusCode, nil
	}
	var body map[string]any
	require.NoError(s.t, json.Unmarshal(data, &body), string(data))
	return resp.StatusCode, body
}

func (s *server) do(method, path string, payload any, token string) (int, map[string]any) {
	s.t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(req)
}

// user stores a user with role and returns a token obtained through login.
func (s *server) user(name, email string, role models.Role) (string, *models.User) {
	s.t.Helper()
	u := models.NewUser(name, email)
	u.Role = role
	require.NoError(s.t, u.SetPassword("test1234", time.Now().Add(-time.Hour)))
	require.NoError(s.t, s.backend.Users.Insert(context.Background(), u))

	status, body := s.do(http.MethodPost, "/api/v1/users/login", map[string]any{
		"email": email, "password": "test1234",
	}, "")
	require.Equal(s.t, http.StatusOK, status, body)
	return body["token"].(string), u
}

func (s *server) tour(name string, price float64) *models.Tour {
	s.t.Helper()
	tour := &models.Tour{
		Name:           name,
		Duration:       5,
		MaxGroupSize:   10,
		Difficulty:     models.DifficultyEasy,
		RatingsAverage: models.DefaultRatingsAverage,
		Price:          price,
		Summary:        "A tour",
		ImageCover:     "cover.jpg",
	}
	require.NoError(s.t, s.backend.Tours.Insert(context.Background(), tour))
	return tour
}

func docOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, body)
	doc, ok := data["doc"].(map[string]any)
	require.True(t, ok, body)
	return doc
}

func listOf(t *testing.T, body map[string]any) []any {
	t.Helper()
	items, ok := body["data"].([]any)
	require.True(t, ok, body)
	return items
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	status, body := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	status, body := s.do(http.MethodGet, "/api/v1/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Can't find /api/v1/nowhere on this server!", body["message"])
}

func TestCreateThenReadTour(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)

	status, body := s.do(http.MethodPost, "/api/v1/tours", map[string]any{
		"name":         "The Forest Hiker",
		"duration":     5,
		"maxGroupSize": 25,
		"difficulty":   "easy",
		"price":        397,
		"summary":      "Breathtaking hike through the Canadian Banff National Park",
		"imageCover":   "tour-1-cover.jpg",
	}, admin)
	require.Equal(t, http.StatusCreated, status, body)
	created := docOf(t, body)
	assert.Equal(t, 4.5, created["ratingsAverage"])
	assert.Equal(t, "the-forest-hiker", created["slug"])
	assert.NotContains(t, created, "__v")
	assert.NotContains(t, created, "createdAt")

	status, body = s.do(http.MethodGet, "/api/v1/tours/"+created["id"].(string), nil, "")
	require.Equal(t, http.StatusOK, status, body)
	got := docOf(t, body)
	assert.Equal(t, "The Forest Hiker", got["name"])
	assert.Equal(t, 4.5, got["ratingsAverage"])
	assert.InDelta(t, 5.0/7, got["durationWeeks"], 1e-9)
	assert.NotContains(t, got, "__v")
}

func TestCreateTourValidation(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)

	status, body := s.do(http.MethodPost, "/api/v1/tours", map[string]any{
		"name":       "Tiny",
		"duration":   5,
		"difficulty": "easy",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "fail", body["status"])
	assert.Contains(t, body["message"], "Invalid input data.")

	tours, err := s.backend.Tours.Find(context.Background(), storage.Query{})
	require.NoError(t, err)
	assert.Empty(t, tours)
}

func TestTourRoleRestrictions(t *testing.T) {
	s := newServer(t)
	user, _ := s.user("Jonas", "jonas@example.com", models.RoleUser)
	tour := s.tour("The Sea Explorer", 497)

	status, body := s.do(http.MethodPost, "/api/v1/tours", map[string]any{"name": "The Forest Hiker"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "You are not logged in! Please log in to get access.", body["message"])

	status, body = s.do(http.MethodDelete, "/api/v1/tours/"+tour.ID.Hex(), nil, user)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You do not have permission to perform this action!", body["message"])

	status, _ = s.do(http.MethodGet, "/api/v1/tours/monthly-plan/2021", nil, user)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestMissingDocuments(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)
	missing := "/api/v1/tours/" + primitive.NewObjectID().Hex()

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		status, body := s.do(method, missing, map[string]any{"price": 100}, admin)
		assert.Equal(t, http.StatusNotFound, status, method)
		assert.Equal(t, "No document is found with this ID!", body["message"], method)
	}

	status, body := s.do(http.MethodGet, "/api/v1/tours/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid _id: abc", body["message"])
}

func TestUpdateAndDeleteTour(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)
	tour := s.tour("The Sea Explorer", 497)
	path := "/api/v1/tours/" + tour.ID.Hex()

	status, body := s.do(http.MethodPatch, path, map[string]any{"price": 550}, admin)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 550.0, docOf(t, body)["price"])

	status, body = s.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Nil(t, body)

	status, _ = s.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPagination(t *testing.T) {
	s := newServer(t)
	const n = 7
	for i := 0; i < n; i++ {
		s.tour("Tour number "+string(rune('A'+i)), float64(100*(i+1)))
	}

	tests := []struct {
		limit, page string
		want        int
	}{
		{"3", "1", 3},
		{"3", "2", 3},
		{"3", "3", 1},
		{"3", "4", 0},
		{"10", "1", 7},
		{"2", "4", 1},
	}
	for _, tt := range tests {
		status, body := s.do(http.MethodGet, "/api/v1/tours?limit="+tt.limit+"&page="+tt.page, nil, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, float64(tt.want), body["results"], "limit=%s page=%s", tt.limit, tt.page)
		assert.Len(t, listOf(t, body), tt.want)
	}
}

func TestFilterAndSort(t *testing.T) {
	s := newServer(t)
	for i, price := range []float64{397, 997, 1497, 497, 2997} {
		s.tour("Filtered tour "+string(rune('A'+i)), price)
	}

	status, body := s.do(http.MethodGet, "/api/v1/tours?price%5Bgte%5D=500&sort=-price", nil, "")
	require.Equal(t, http.StatusOK, status, body)

	items := listOf(t, body)
	require.Len(t, items, 3)
	prev := 0.0
	for i, item := range items {
		price := item.(map[string]any)["price"].(float64)
		assert.GreaterOrEqual(t, price, 500.0)
		if i > 0 {
			assert.LessOrEqual(t, price, prev)
		}
		prev = price
	}
}

func TestTopFiveCheap(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 7; i++ {
		s.tour("Cheap tour number "+string(rune('A'+i)), float64(1000-100*i))
	}

	status, body := s.do(http.MethodGet, "/api/v1/tours/top-5-cheap", nil, "")
	require.Equal(t, http.StatusOK, status, body)
	items := listOf(t, body)
	require.Len(t, items, 5)

	first := items[0].(map[string]any)
	assert.Equal(t, 400.0, first["price"])
	for key := range first {
		assert.Contains(t, []string{"id", "name", "price", "ratingsAverage", "summary", "difficulty"}, key)
	}
}

func TestSecretToursAreHidden(t *testing.T) {
	s := newServer(t)
	s.tour("The Public Tour", 500)
	secret := &models.Tour{
		Name:           "The Secret Tour",
		Duration:       5,
		MaxGroupSize:   10,
		Difficulty:     models.DifficultyEasy,
		RatingsAverage: models.DefaultRatingsAverage,
		Price:          500,
		Summary:        "Hidden",
		ImageCover:     "cover.jpg",
		SecretTour:     true,
	}
	require.NoError(t, s.backend.Tours.Insert(context.Background(), secret))

	_, body := s.do(http.MethodGet, "/api/v1/tours", nil, "")
	assert.Equal(t, 1.0, body["results"])

	status, _ := s.do(http.MethodGet, "/api/v1/tours/"+secret.ID.Hex(), nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReviewsUpdateTourRatings(t *testing.T) {
	s := newServer(t)
	user, _ := s.user("Jonas", "jonas@example.com", models.RoleUser)
	tour := s.tour("The Sea Explorer", 497)
	reviewsPath := "/api/v1/tours/" + tour.ID.Hex() + "/reviews"

	status, body := s.do(http.MethodPost, reviewsPath, map[string]any{"review": "Too hot", "rating": 6}, user)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "fail", body["status"])

	_, body = s.do(http.MethodGet, reviewsPath, nil, user)
	assert.Equal(t, 0.0, body["results"])

	status, body = s.do(http.MethodPost, reviewsPath, map[string]any{"review": "Great", "rating": 4}, user)
	require.Equal(t, http.StatusCreated, status, body)
	review := docOf(t, body)
	assert.Equal(t, tour.ID.Hex(), review["tour"])

	status, _ = s.do(http.MethodPost, reviewsPath, map[string]any{"review": "Again", "rating": 5}, user)
	assert.Equal(t, http.StatusBadRequest, status)

	s.app.Ratings.Wait()
	status, body = s.do(http.MethodGet, "/api/v1/tours/"+tour.ID.Hex(), nil, "")
	require.Equal(t, http.StatusOK, status, body)
	got := docOf(t, body)
	assert.Equal(t, 4.0, got["ratingsAverage"])
	assert.Equal(t, 1.0, got["ratingsQuantity"])
	assert.Len(t, got["reviews"], 1)
}

func TestRatingsFollowReviewEditsOverHTTP(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)
	user, _ := s.user("Jonas", "jonas@example.com", models.RoleUser)
	tour := s.tour("The Sea Explorer", 497)
	tourPath := "/api/v1/tours/" + tour.ID.Hex()

	summary := func() map[string]any {
		t.Helper()
		s.app.Ratings.Wait()
		status, body := s.do(http.MethodGet, tourPath, nil, "")
		require.Equal(t, http.StatusOK, status, body)
		return docOf(t, body)
	}

	status, body := s.do(http.MethodPost, tourPath+"/reviews", map[string]any{"review": "No stars from me"}, user)
	require.Equal(t, http.StatusCreated, status, body)
	reviewPath := "/api/v1/reviews/" + docOf(t, body)["id"].(string)

	got := summary()
	assert.Equal(t, 4.5, got["ratingsAverage"])
	assert.Equal(t, 0.0, got["ratingsQuantity"])

	status, body = s.do(http.MethodPatch, reviewPath, map[string]any{"rating": 2}, user)
	require.Equal(t, http.StatusOK, status, body)
	got = summary()
	assert.Equal(t, 2.0, got["ratingsAverage"])
	assert.Equal(t, 1.0, got["ratingsQuantity"])

	status, body = s.do(http.MethodPatch, tourPath, map[string]any{"price": 550}, admin)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 2.0, docOf(t, body)["ratingsAverage"])

	status, _ = s.do(http.MethodDelete, reviewPath, nil, user)
	require.Equal(t, http.StatusNoContent, status)
	got = summary()
	assert.Equal(t, 4.5, got["ratingsAverage"])
	assert.Equal(t, 0.0, got["ratingsQuantity"])

	status, body = s.do(http.MethodPatch, tourPath, map[string]any{"price": 600}, admin)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 600.0, docOf(t, body)["price"])
}

func TestReviewOwnership(t *testing.T) {
	s := newServer(t)
	author, _ := s.user("Author", "author@example.com", models.RoleUser)
	other, _ := s.user("Other", "other@example.com", models.RoleUser)
	tour := s.tour("The Sea Explorer", 497)

	status, body := s.do(http.MethodPost, "/api/v1/tours/"+tour.ID.Hex()+"/reviews", map[string]any{"review": "Great", "rating": 5}, author)
	require.Equal(t, http.StatusCreated, status, body)
	path := "/api/v1/reviews/" + docOf(t, body)["id"].(string)

	status, _ = s.do(http.MethodPatch, path, map[string]any{"rating": 1}, other)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodDelete, path, nil, other)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(http.MethodPatch, path, map[string]any{"rating": 3}, author)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 3.0, docOf(t, body)["rating"])

	status, _ = s.do(http.MethodDelete, path, nil, author)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestSignupAndMe(t *testing.T) {
	s := newServer(t)
	status, body := s.do(http.MethodPost, "/api/v1/users/signup", map[string]any{
		"name":            "Laura",
		"email":           "laura@example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
		"role":            "admin",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
	token := body["token"].(string)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password")

	status, body = s.do(http.MethodGet, "/api/v1/users/me", nil, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "laura@example.com", docOf(t, body)["email"])
}

// Password changes are recorded one second early and compared in whole
// seconds, so a token issued up to about two seconds before the change is
// still accepted. The clock moves 10s to stay clear of that window.
func TestStaleTokenAfterPasswordChange(t *testing.T) {
	s := newServer(t)
	var mu sync.Mutex
	now := time.Now()
	s.app.Auth.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	status, body := s.do(http.MethodPost, "/api/v1/users/signup", map[string]any{
		"name":            "Laura",
		"email":           "laura@example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
	oldToken := body["token"].(string)

	advance(10 * time.Second)
	status, body = s.do(http.MethodPatch, "/api/v1/users/updateMyPassword", map[string]any{
		"passwordCurrent": "pass1234",
		"password":        "newpass1234",
		"passwordConfirm": "newpass1234",
	}, oldToken)
	require.Equal(t, http.StatusOK, status, body)
	newToken := body["token"].(string)

	status, body = s.do(http.MethodGet, "/api/v1/users/me", nil, oldToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User recently changed password! Please login again.", body["message"])

	status, _ = s.do(http.MethodGet, "/api/v1/users/me", nil, newToken)
	assert.Equal(t, http.StatusOK, status)
}

var resetToken = regexp.MustCompile(`/resetPassword/([0-9a-f]{64})`)

func TestForgotAndResetPassword(t *testing.T) {
	s := newServer(t)
	s.user("Jonas", "jonas@example.com", models.RoleUser)

	status, body := s.do(http.MethodPost, "/api/v1/users/forgotPassword", map[string]any{"email": "jonas@example.com"}, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Token sent to email!", body["message"])

	s.mail.mu.Lock()
	require.Len(t, s.mail.sent, 1)
	m := resetToken.FindStringSubmatch(s.mail.sent[0].Body)
	s.mail.mu.Unlock()
	require.Len(t, m, 2)

	status, body = s.do(http.MethodPatch, "/api/v1/users/resetPassword/"+m[1], map[string]any{
		"password":        "newpass1234",
		"passwordConfirm": "newpass1234",
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["token"])

	status, _ = s.do(http.MethodPost, "/api/v1/users/login", map[string]any{
		"email": "jonas@example.com", "password": "newpass1234",
	}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestUploadTourImages(t *testing.T) {
	s := newServer(t)
	admin, _ := s.user("Admin", "admin@example.com", models.RoleAdmin)
	tour := s.tour("The Sea Explorer", 497)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="imageCover"; filename="cover.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tours/"+tour.ID.Hex()+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	status, body := s.send(req)
	require.Equal(t, http.StatusOK, status, body)

	cover := docOf(t, body)["imageCover"].(string)
	assert.Regexp(t, `^tour-`+tour.ID.Hex()+`-cover-.+\.jpg$`, cover)

	resp, err := s.app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/img/tours/"+cover, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestTourImageRedirectsToPublicURL(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) {
		cfg.Minio.PublicURL = "https://cdn.example.com/tours/"
	})

	resp, err := s.app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/img/tours/tour-1-cover.jpg", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/tours/tour-1-cover.jpg", resp.Header.Get("Location"))
}

func TestTourImageMissing(t *testing.T) {
	s := newServer(t)
	status, body := s.do(http.MethodGet, "/img/tours/nothing.jpg", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Image not found", body["message"])
}

func TestFilterNumericLookingName(t *testing.T) {
	s := newServer(t)
	s.tour("12345", 500)
	s.tour("The Sea Explorer", 12345)

	status, body := s.do(http.MethodGet, "/api/v1/tours?name=12345", nil, "")
	require.Equal(t, http.StatusOK, status, body)
	items := listOf(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "12345", items[0].(map[string]any)["name"])

	_, body = s.do(http.MethodGet, "/api/v1/tours?price=NaN", nil, "")
	assert.Equal(t, 0.0, body["results"])
}

func TestNestedReviewsOmitTour(t *testing.T) {
	s := newServer(t)
	user, _ := s.user("Jonas", "jonas@example.com", models.RoleUser)
	tour := s.tour("The Sea Explorer", 497)

	status, body := s.do(http.MethodPost, "/api/v1/tours/"+tour.ID.Hex()+"/reviews", map[string]any{"review": "Great", "rating": 5}, user)
	require.Equal(t, http.StatusCreated, status, body)

	_, body = s.do(http.MethodGet, "/api/v1/tours/"+tour.ID.Hex()+"/reviews", nil, user)
	nested := listOf(t, body)
	require.Len(t, nested, 1)
	assert.NotContains(t, nested[0].(map[string]any), "tour")
	assert.Equal(t, "Jonas", nested[0].(map[string]any)["user"].(map[string]any)["name"])

	_, body = s.do(http.MethodGet, "/api/v1/reviews", nil, user)
	all := listOf(t, body)
	require.Len(t, all, 1)
	assert.Equal(t, tour.ID.Hex(), all[0].(map[string]any)["tour"])
}
