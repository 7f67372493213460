package storage

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/GabrielGBraga/mise/utils"
	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
)

const (
	maxUploadSize = 10 << 20
	maxDimension  = 1600
	jpegQuality   = 85
)

var (
	ErrUnknownBucket = errors.New("bucket not found")
	ErrInvalidName   = errors.New("invalid object name")
	ErrExists        = errors.New("the resource already exists")
	ErrNotImage      = errors.New("file is not a supported image")
	ErrFormat        = errors.New("object name has no supported image extension")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store keeps uploaded images on disk, one directory per bucket, served back
// under /static/<bucket>/.
type Store struct {
	root       string
	publicBase string
	buckets    map[string]bool
}

func NewStore(root, publicBase string, buckets ...string) *Store {
	s := &Store{root: root, publicBase: publicBase, buckets: make(map[string]bool, len(buckets))}
	for _, b := range buckets {
		s.buckets[b] = true
	}
	return s
}

func (s *Store) Buckets() []string {
	out := make([]string, 0, len(s.buckets))
	for b := range s.buckets {
		out = append(out, b)
	}
	return out
}

// Dir is where bucket's files live.
func (s *Store) Dir(bucket string) string {
	return filepath.Join(s.root, bucket)
}

func (s *Store) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/static/%s/%s", s.publicBase, bucket, name)
}

// Save decodes src as an image, bounds it to maxDimension on its longest
// side and writes it to bucket/name re-encoded in the format name's extension
// declares, so the served bytes match the served content type. Existing
// objects are never overwritten.
func (s *Store) Save(bucket, name string, src io.Reader) error {
	if !s.buckets[bucket] {
		return ErrUnknownBucket
	}
	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return ErrFormat
	}

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return ErrNotImage
	}
	img = bound(img)

	dir := s.Dir(bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Link fails when the target already exists, unlike Rename.
	if err := os.Link(tmp.Name(), filepath.Join(dir, name)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("store object: %w", err)
	}
	return nil
}

func bound(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDimension && b.Dy() <= maxDimension {
		return img
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
}

type uploadResult struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// Upload answers POST /api/v1/storage/:bucket with multipart fields file and name.
func (s *Store) Upload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	bucket := ps.ByName("bucket")
	name := r.FormValue("name")
	if name == "" {
		name = filepath.Base(header.Filename)
	}

	switch err := s.Save(bucket, name, file); {
	case err == nil:
	case errors.Is(err, ErrUnknownBucket):
		utils.RespondWithError(w, http.StatusNotFound, "Bucket not found")
		return
	case errors.Is(err, ErrInvalidName):
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid object name")
		return
	case errors.Is(err, ErrFormat):
		utils.RespondWithError(w, http.StatusUnsupportedMediaType, "Unsupported image extension")
		return
	case errors.Is(err, ErrNotImage):
		utils.RespondWithError(w, http.StatusUnsupportedMediaType, "File is not a supported image")
		return
	case errors.Is(err, ErrExists):
		utils.RespondWithError(w, http.StatusConflict, "The resource already exists")
		return
	default:
		log.Printf("❌ upload %s/%s: %v", bucket, name, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	log.Printf("🖼 stored %s/%s for %s", bucket, name, utils.GetUserIDFromContext(r.Context()))
	utils.RespondWithJSON(w, http.StatusCreated, uploadResult{Bucket: bucket, Name: name, URL: s.PublicURL(bucket, name)})
}
