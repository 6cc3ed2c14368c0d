package services

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
	"github.com/arzan03/natours/internal/utils"
)

const recalculateTimeout = 10 * time.Second

// RatingsUpdater recomputes the rating summary of tours on a worker pool.
// Recomputations of one tour are serialized within the process, so the last
// one to run always sees the latest reviews.
type RatingsUpdater struct {
	source storage.RatingSource
	tours  storage.Repository[models.Tour]
	pool   *utils.WorkerPool
	logger *zap.Logger

	locks sync.Map // primitive.ObjectID -> *sync.Mutex
}

func NewRatingsUpdater(source storage.RatingSource, tours storage.Repository[models.Tour], pool *utils.WorkerPool, logger *zap.Logger) *RatingsUpdater {
	return &RatingsUpdater{source: source, tours: tours, pool: pool, logger: logger}
}

// Schedule queues a recomputation for tourID.
func (u *RatingsUpdater) Schedule(tourID primitive.ObjectID) {
	queued := u.pool.AddTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recalculateTimeout)
		defer cancel()
		if err := u.Recalculate(ctx, tourID); err != nil {
			u.logger.Error("failed to recalculate tour ratings", zap.String("tour", tourID.Hex()), zap.Error(err))
		}
	})
	if !queued {
		u.logger.Warn("ratings update dropped, pool closed", zap.String("tour", tourID.Hex()))
	}
}

// Recalculate rescans the reviews of tourID and stores the count and the
// average rounded to one decimal. Tours without reviews get the defaults.
func (u *RatingsUpdater) Recalculate(ctx context.Context, tourID primitive.ObjectID) error {
	mu, _ := u.locks.LoadOrStore(tourID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	count, avg, err := u.source.RatingStats(ctx, tourID)
	if err != nil {
		return err
	}
	if count == 0 {
		avg = models.DefaultRatingsAverage
	}
	err = u.tours.Update(ctx, tourID, storage.Update{Set: bson.M{
		"ratingsQuantity": count,
		"ratingsAverage":  models.RoundRating(avg),
	}})
	if errors.Is(err, storage.ErrNotFound) {
		// The tour was deleted or is secret.
		return nil
	}
	return err
}

// Wait blocks until every queued recomputation has finished.
func (u *RatingsUpdater) Wait() {
	u.pool.Wait()
}

// ReviewRepository schedules a rating recomputation after every review write.
type ReviewRepository struct {
	storage.Repository[models.Review]
	ratings *RatingsUpdater
}

func NewReviewRepository(inner storage.Repository[models.Review], ratings *RatingsUpdater) *ReviewRepository {
	return &ReviewRepository{Repository: inner, ratings: ratings}
}

func (r *ReviewRepository) Insert(ctx context.Context, doc *models.Review) error {
	if err := r.Repository.Insert(ctx, doc); err != nil {
		return err
	}
	r.ratings.Schedule(doc.Tour)
	return nil
}

func (r *ReviewRepository) Replace(ctx context.Context, doc *models.Review) error {
	if err := r.Repository.Replace(ctx, doc); err != nil {
		return err
	}
	r.ratings.Schedule(doc.Tour)
	return nil
}

func (r *ReviewRepository) Update(ctx context.Context, id primitive.ObjectID, u storage.Update) error {
	if err := r.Repository.Update(ctx, id, u); err != nil {
		return err
	}
	review, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	r.ratings.Schedule(review.Tour)
	return nil
}

func (r *ReviewRepository) DeleteByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	review, err := r.Repository.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.ratings.Schedule(review.Tour)
	return review, nil
}

// ReviewService builds and expands reviews
type ReviewService struct {
	reviews storage.Repository[models.Review]
	tours   storage.Repository[models.Tour]
	users   storage.Repository[models.User]
}

func NewReviewService(reviews storage.Repository[models.Review], tours storage.Repository[models.Tour], users storage.Repository[models.User]) *ReviewService {
	return &ReviewService{reviews: reviews, tours: tours, users: users}
}

// Repository exposes the review repository to the generic handlers.
func (s *ReviewService) Repository() storage.Repository[models.Review] {
	return s.reviews
}

// NewReview builds a review for tourParam (the nested route id, may be
// empty) written by author. The tour must exist.
func (s *ReviewService) NewReview(ctx context.Context, in models.ReviewInput, tourParam string, author *models.User) (*models.Review, error) {
	userID := ""
	if author != nil {
		userID = author.ID.Hex()
	}
	review, err := in.ReviewFor(tourParam, userID)
	if err != nil {
		return nil, err
	}
	if !review.Tour.IsZero() {
		if _, err := s.tours.FindByID(ctx, review.Tour); errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.NotFound("No tour found with that ID")
		} else if err != nil {
			return nil, err
		}
	}
	return review, nil
}

// Expand replaces author ids with their public summary. The tour id is
// dropped when withTour is false.
func (s *ReviewService) Expand(ctx context.Context, reviews []models.Review, withTour bool) ([]models.ReviewView, error) {
	ids := make([]primitive.ObjectID, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.User)
	}
	authors, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.ReviewView, 0, len(reviews))
	for i := range reviews {
		r := &reviews[i]
		view := models.ReviewView{Review: r}
		if withTour {
			tour := r.Tour
			view.Tour = &tour
		}
		if u, ok := authors[r.User]; ok {
			author := u.Author()
			view.User = &author
		}
		views = append(views, view)
	}
	return views, nil
}

// usersByID loads the active users among ids.
func usersByID(ctx context.Context, users storage.Repository[models.User], ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := map[primitive.ObjectID]*models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.Find(ctx, storage.Query{Filter: bson.M{"_id": bson.M{"$in": ids}}})
	if err != nil {
		return nil, err
	}
	for i := range found {
		out[found[i].ID] = &found[i]
	}
	return out, nil
}
