package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/models"
	"github.com/arzan03/natours/internal/storage"
	"github.com/arzan03/natours/internal/utils"
)

// MaxTourImages is the number of gallery images a tour may have.
const MaxTourImages = 3

const imageURLExpiry = 15 * time.Minute

// ImageService uploads tour images to the object store
type ImageService struct {
	store     storage.ImageStore
	tours     storage.Repository[models.Tour]
	publicURL string
}

func NewImageService(store storage.ImageStore, tours storage.Repository[models.Tour]) *ImageService {
	return &ImageService{store: store, tours: tours}
}

// WithPublicURL serves images from base, e.g. a public bucket or a CDN,
// instead of presigned links. An empty base keeps presigned links.
func (s *ImageService) WithPublicURL(base string) *ImageService {
	s.publicURL = strings.TrimRight(base, "/")
	return s
}

// HasPublicURL reports whether images are served from a public base URL.
func (s *ImageService) HasPublicURL() bool {
	return s.publicURL != ""
}

// UploadTourImages stores a new cover and/or gallery for the tour and
// records the object names on it. Uploads run in parallel.
func (s *ImageService) UploadTourImages(ctx context.Context, tourID primitive.ObjectID, cover *multipart.FileHeader, images []*multipart.FileHeader) (*models.Tour, error) {
	if cover == nil && len(images) == 0 {
		return nil, apperror.BadRequest("Please upload an imageCover and/or images.")
	}
	if len(images) > MaxTourImages {
		return nil, apperror.BadRequest(fmt.Sprintf("A tour can have at most %d images.", MaxTourImages))
	}
	files := images
	if cover != nil {
		files = append([]*multipart.FileHeader{cover}, images...)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.Header.Get("Content-Type"), "image/") {
			return nil, apperror.BadRequest("Not an image! Please upload only images.")
		}
	}

	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	tasks := make([]utils.ParallelTask, 0, len(files))
	for i, f := range files {
		label := strconv.Itoa(i + 1)
		if cover != nil {
			label = strconv.Itoa(i)
			if i == 0 {
				label = "cover"
			}
		}
		name := fmt.Sprintf("tour-%s-%s-%s%s", tourID.Hex(), label, uuid.NewString(), strings.ToLower(filepath.Ext(f.Filename)))
		file := f
		tasks = append(tasks, func() (any, error) {
			return name, s.put(ctx, name, file)
		})
	}
	names, err := utils.RunParallelTasks(tasks...)
	if err != nil {
		return nil, err
	}

	if cover != nil {
		tour.ImageCover = names[0].(string)
		names = names[1:]
	}
	if len(names) > 0 {
		tour.Images = make([]string, 0, len(names))
		for _, n := range names {
			tour.Images = append(tour.Images, n.(string))
		}
	}
	if err := s.tours.Replace(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// URL returns a link to an uploaded image: under the public base URL when
// one is set, otherwise a temporary link from the store.
func (s *ImageService) URL(ctx context.Context, name string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + url.PathEscape(name), nil
	}
	return s.store.URL(ctx, name, imageURLExpiry)
}

// Store returns the underlying image store.
func (s *ImageService) Store() storage.ImageStore {
	return s.store
}

func (s *ImageService) put(ctx context.Context, name string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return errors.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()
	return s.store.Put(ctx, name, f, fh.Size, fh.Header.Get("Content-Type"))
}
