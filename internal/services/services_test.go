package services

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
	"github.com/arzan03/natours/internal/utils"
)

// mockMailer records sent messages and fails when err is set.
type mockMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type authFixture struct {
	backend *storage.Backend
	auth    *AuthService
	mailer  *mockMailer
	clock   *clock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	backend := storage.NewMemoryBackend()
	mailer := &mockMailer{}
	c := &clock{t: time.Now().UTC().Truncate(time.Second)}
	tokens := NewTokenService(config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour})
	auth := NewAuthService(backend.Users, tokens, mailer, 10*time.Minute, zaptest.NewLogger(t)).WithClock(c.Now)
	return &authFixture{backend: backend, auth: auth, mailer: mailer, clock: c}
}

func (f *authFixture) signup(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user, token, err := f.auth.Signup(context.Background(), models.SignupInput{
		Name:            "Test User",
		Email:           email,
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	return user, token
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.StatusCode)
	assert.Equal(t, message, appErr.Message)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user, token := f.signup(t, "Test@Example.com")
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "test@example.com", user.Email)
	assert.NotEmpty(t, token)

	authed, err := f.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, _, err = f.auth.Login(ctx, models.LoginInput{Email: "test@example.com", Password: "pass1234"})
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, models.LoginInput{Email: "test@example.com", Password: "wrong-pass"})
	requireAppError(t, err, http.StatusUnauthorized, "Incorrect email or password!")

	_, _, err = f.auth.Login(ctx, models.LoginInput{Email: "nobody@example.com", Password: "pass1234"})
	requireAppError(t, err, http.StatusUnauthorized, "Incorrect email or password!")

	_, _, err = f.auth.Login(ctx, models.LoginInput{Email: "test@example.com"})
	requireAppError(t, err, http.StatusBadRequest, "Please provide email and password!")
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "test@example.com")

	_, _, err := f.auth.Signup(context.Background(), models.SignupInput{
		Name: "Other", Email: "TEST@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestAuthenticateRejections(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user, token := f.signup(t, "test@example.com")

	_, err := f.auth.Authenticate(ctx, token+"x")
	requireAppError(t, err, http.StatusUnauthorized, apperror.MsgInvalidToken)

	f.clock.Advance(2 * time.Hour)
	_, err = f.auth.Authenticate(ctx, token)
	requireAppError(t, err, http.StatusUnauthorized, apperror.MsgExpiredToken)

	f.clock.Advance(-2 * time.Hour)
	_, err = f.backend.Users.DeleteByID(ctx, user.ID)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, token)
	requireAppError(t, err, http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
}

func TestTokenIssuedBeforePasswordChangeIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user, oldToken := f.signup(t, "test@example.com")

	f.clock.Advance(10 * time.Second)
	_, newToken, err := f.auth.UpdatePassword(ctx, user, models.UpdatePasswordInput{
		PasswordCurrent: "pass1234",
		Password:        "newpass1234",
		PasswordConfirm: "newpass1234",
	})
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, oldToken)
	requireAppError(t, err, http.StatusUnauthorized, "User recently changed password! Please login again.")

	_, err = f.auth.Authenticate(ctx, newToken)
	assert.NoError(t, err)
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.signup(t, "test@example.com")

	_, _, err := f.auth.UpdatePassword(context.Background(), user, models.UpdatePasswordInput{
		PasswordCurrent: "not-my-password",
		Password:        "newpass1234",
		PasswordConfirm: "newpass1234",
	})
	requireAppError(t, err, http.StatusUnauthorized, "Your current password is wrong.")
}

var resetTokenPattern = regexp.MustCompile(`/resetPassword/([0-9a-f]{64})`)

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.signup(t, "test@example.com")

	resetURL := func(token string) string { return "http://localhost/api/v1/users/resetPassword/" + token }
	require.NoError(t, f.auth.ForgotPassword(ctx, "test@example.com", resetURL))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "test@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "Your password reset token (valid for 10 min)", f.mailer.sent[0].Subject)

	m := resetTokenPattern.FindStringSubmatch(f.mailer.sent[0].Body)
	require.NotNil(t, m)
	token := m[1]

	f.clock.Advance(time.Minute)
	_, sessionToken, err := f.auth.ResetPassword(ctx, token, models.ResetPasswordInput{
		Password: "newpass1234", PasswordConfirm: "newpass1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sessionToken)

	_, _, err = f.auth.Login(ctx, models.LoginInput{Email: "test@example.com", Password: "newpass1234"})
	require.NoError(t, err)

	// A token can be redeemed once.
	_, _, err = f.auth.ResetPassword(ctx, token, models.ResetPasswordInput{
		Password: "other1234", PasswordConfirm: "other1234",
	})
	requireAppError(t, err, http.StatusBadRequest, "Token is invalid or has expired")
}

func TestResetPasswordExpired(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.signup(t, "test@example.com")

	var token string
	require.NoError(t, f.auth.ForgotPassword(ctx, "test@example.com", func(tok string) string {
		token = tok
		return tok
	}))

	f.clock.Advance(11 * time.Minute)
	_, _, err := f.auth.ResetPassword(ctx, token, models.ResetPasswordInput{
		Password: "newpass1234", PasswordConfirm: "newpass1234",
	})
	requireAppError(t, err, http.StatusBadRequest, "Token is invalid or has expired")
}

func TestForgotPasswordRollsBackWhenEmailFails(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user, _ := f.signup(t, "test@example.com")
	f.mailer.err = errors.New("smtp down")

	err := f.auth.ForgotPassword(ctx, "test@example.com", func(tok string) string { return tok })
	requireAppError(t, err, http.StatusInternalServerError, "There was an error sending the email. Try again later!")

	stored, err := f.backend.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.auth.ForgotPassword(context.Background(), "nobody@example.com", func(tok string) string { return tok })
	requireAppError(t, err, http.StatusNotFound, "There is no user with that email address.")
}

func TestUserServiceUpdateMe(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user, _ := f.signup(t, "test@example.com")
	users := NewUserService(f.backend.Users)

	pw := "sneaky1234"
	_, err := users.UpdateMe(ctx, user, models.UpdateMeInput{Password: &pw})
	requireAppError(t, err, http.StatusBadRequest, "This route is not for password updates. Please use /updateMyPassword.")

	name := "Renamed"
	updated, err := users.UpdateMe(ctx, user, models.UpdateMeInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, user.Role, updated.Role)

	require.NoError(t, users.DeleteMe(ctx, user))
	_, err = f.backend.Users.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

type reviewFixture struct {
	backend *storage.Backend
	ratings *RatingsUpdater
	reviews *ReviewService
	tours   *TourService
	tour    *models.Tour
	authors []*models.User
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	logger := zaptest.NewLogger(t)

	pool := utils.NewWorkerPool(2, logger)
	t.Cleanup(pool.Close)
	ratings := NewRatingsUpdater(backend.Ratings, backend.Tours, pool, logger)
	reviews := NewReviewService(NewReviewRepository(backend.Reviews, ratings), backend.Tours, backend.Users)

	tour := &models.Tour{
		Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 25, Difficulty: models.DifficultyEasy,
		RatingsAverage: models.DefaultRatingsAverage, Price: 397, Summary: "Hike", ImageCover: "c.jpg",
	}
	require.NoError(t, backend.Tours.Insert(ctx, tour))

	f := &reviewFixture{
		backend: backend,
		ratings: ratings,
		reviews: reviews,
		tours:   NewTourService(backend.Tours, backend.Users, reviews, backend.Analytics),
		tour:    tour,
	}
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := models.NewUser("Reviewer "+email[:1], email)
		u.Photo = "user.jpg"
		u.Password = "hash"
		require.NoError(t, backend.Users.Insert(ctx, u))
		f.authors = append(f.authors, u)
	}
	return f
}

func (f *reviewFixture) review(t *testing.T, author *models.User, rating float64) *models.Review {
	t.Helper()
	r := rating
	review, err := f.reviews.NewReview(context.Background(), models.ReviewInput{Review: "Lovely", Rating: &r}, f.tour.ID.Hex(), author)
	require.NoError(t, err)
	require.NoError(t, f.reviews.Repository().Insert(context.Background(), review))
	return review
}

func (f *reviewFixture) reloadTour(t *testing.T) *models.Tour {
	t.Helper()
	f.ratings.Wait()
	tour, err := f.backend.Tours.FindByID(context.Background(), f.tour.ID)
	require.NoError(t, err)
	return tour
}

func TestRatingsFollowReviewWrites(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)

	first := f.review(t, f.authors[0], 5)
	f.review(t, f.authors[1], 4)
	f.review(t, f.authors[2], 4)

	tour := f.reloadTour(t)
	assert.Equal(t, 3, tour.RatingsQuantity)
	assert.Equal(t, 4.3, tour.RatingsAverage)

	rating := 2.0
	first.Rating = &rating
	require.NoError(t, f.reviews.Repository().Replace(ctx, first))
	tour = f.reloadTour(t)
	assert.Equal(t, 3.3, tour.RatingsAverage)

	_, err := f.reviews.Repository().DeleteByID(ctx, first.ID)
	require.NoError(t, err)
	tour = f.reloadTour(t)
	assert.Equal(t, 2, tour.RatingsQuantity)
	assert.Equal(t, 4.0, tour.RatingsAverage)
}

func TestRatingsResetWithoutReviews(t *testing.T) {
	f := newReviewFixture(t)
	only := f.review(t, f.authors[0], 1)
	assert.Equal(t, 1.0, f.reloadTour(t).RatingsAverage)

	_, err := f.reviews.Repository().DeleteByID(context.Background(), only.ID)
	require.NoError(t, err)

	tour := f.reloadTour(t)
	assert.Equal(t, 0, tour.RatingsQuantity)
	assert.Equal(t, models.DefaultRatingsAverage, tour.RatingsAverage)
}

func TestRatingsIgnoreUnratedReviews(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)

	review, err := f.reviews.NewReview(ctx, models.ReviewInput{Review: "No stars"}, f.tour.ID.Hex(), f.authors[0])
	require.NoError(t, err)
	require.NoError(t, f.reviews.Repository().Insert(ctx, review))

	tour := f.reloadTour(t)
	assert.Equal(t, 0, tour.RatingsQuantity)
	assert.Equal(t, models.DefaultRatingsAverage, tour.RatingsAverage)
	require.NoError(t, tour.Validate())

	f.review(t, f.authors[1], 3)
	tour = f.reloadTour(t)
	assert.Equal(t, 1, tour.RatingsQuantity)
	assert.Equal(t, 3.0, tour.RatingsAverage)
}

func TestReviewOutOfRangeIsNotStored(t *testing.T) {
	f := newReviewFixture(t)
	rating := 6.0
	review, err := f.reviews.NewReview(context.Background(), models.ReviewInput{Review: "Too good", Rating: &rating}, f.tour.ID.Hex(), f.authors[0])
	require.NoError(t, err)

	err = f.reviews.Repository().Insert(context.Background(), review)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	reviews, err := f.backend.Reviews.Find(context.Background(), storage.Query{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestNewReviewForMissingTour(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.reviews.NewReview(context.Background(), models.ReviewInput{Review: "Where?"}, "5c88fa8cf4afda39709c2955", f.authors[0])
	requireAppError(t, err, http.StatusNotFound, "No tour found with that ID")
}

func TestExpandTour(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)
	f.tour.Guides = []primitive.ObjectID{f.authors[0].ID}
	require.NoError(t, f.backend.Tours.Replace(ctx, f.tour))
	f.review(t, f.authors[1], 5)
	f.ratings.Wait()

	tour, err := f.backend.Tours.FindByID(ctx, f.tour.ID)
	require.NoError(t, err)
	view, err := f.tours.ExpandTour(ctx, tour)
	require.NoError(t, err)

	require.Len(t, view.Guides, 1)
	assert.Equal(t, f.authors[0].Name, view.Guides[0].Name)
	require.Len(t, view.Reviews, 1)
	assert.Nil(t, view.Reviews[0].Tour)
	require.NotNil(t, view.Reviews[0].User)
	assert.Equal(t, f.authors[1].Name, view.Reviews[0].User.Name)
}

func TestTourGeoParams(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(t)

	_, err := f.tours.Within(ctx, "200", "34.1,-118.1", "furlong")
	requireAppError(t, err, http.StatusBadRequest, "Please provide the unit as mi or km.")

	_, err = f.tours.Within(ctx, "200", "34.1", "mi")
	requireAppError(t, err, http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.")

	_, err = f.tours.Distances(ctx, "north,-118.1", "km")
	requireAppError(t, err, http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.")

	_, err = f.tours.MonthlyPlan(ctx, "twenty")
	requireAppError(t, err, http.StatusBadRequest, "Please provide a valid year.")

	tours, err := f.tours.Within(ctx, "200", "34.1,-118.1", "mi")
	require.NoError(t, err)
	assert.Empty(t, tours)
}
