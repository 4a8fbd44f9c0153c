// Package form holds the student information form: a draft record being
// edited, the photo preview, and the submit gate.
package form

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"idcard/internal/metrics"
	"idcard/internal/student"
)

// MaxPhotoBytes is the largest accepted photo source file.
const MaxPhotoBytes = 2 * 1024 * 1024

// Field names accepted by SetField.
const (
	FieldName           = "name"
	FieldRollNumber     = "rollNumber"
	FieldClassDiv       = "classDiv"
	FieldRackNumber     = "rackNumber"
	FieldBusRouteNumber = "busRouteNumber"
)

// Fields lists the text and select fields in form order.
var Fields = []string{FieldName, FieldRollNumber, FieldClassDiv, FieldRackNumber, FieldBusRouteNumber}

var (
	ErrMissingFields = errors.New("required fields missing")
	ErrPhotoTooLarge = errors.New("photo exceeds 2MB")
	ErrNotAnImage    = errors.New("photo is not an image")
	ErrUnknownField  = errors.New("unknown form field")
	ErrUnknownOption = errors.New("unknown allergy option")
)

// PhotoTypes are the image formats the card rasterizers can decode.
var PhotoTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// State is one form instance. Methods are safe for concurrent use so a photo
// read finishing in the background cannot race with field edits.
type State struct {
	mu           sync.Mutex
	draft        student.Record
	photoPreview *string
	// set by the owner while it persists a submitted draft
	isSubmitting bool
}

// New returns an empty form.
func New() *State {
	return &State{draft: student.Record{Allergies: []string{}}}
}

// Draft returns a copy of the record being edited.
func (s *State) Draft() student.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// PhotoPreview returns the preview image, nil when no photo is attached.
func (s *State) PhotoPreview() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photoPreview == nil {
		return nil
	}
	p := *s.photoPreview
	return &p
}

// SetField writes a text or select value into the draft.
func (s *State) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FieldName:
		s.draft.Name = value
	case FieldRollNumber:
		s.draft.RollNumber = value
	case FieldClassDiv:
		s.draft.ClassDiv = value
	case FieldRackNumber:
		s.draft.RackNumber = value
	case FieldBusRouteNumber:
		s.draft.BusRouteNumber = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetAllergy mirrors a checkbox: checked adds the allergy once, unchecked removes it.
func (s *State) SetAllergy(allergy string, checked bool) error {
	if !student.IsAllergyOption(allergy) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, allergy)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	has := s.draft.HasAllergy(allergy)
	switch {
	case checked && !has:
		s.draft.Allergies = append(s.draft.Allergies, allergy)
	case !checked && has:
		kept := make([]string, 0, len(s.draft.Allergies))
		for _, a := range s.draft.Allergies {
			if a != allergy {
				kept = append(kept, a)
			}
		}
		s.draft.Allergies = kept
	}
	return nil
}

// AttachPhoto reads an uploaded file into an inline data URL and sets both
// the preview and the draft photo. A file over MaxPhotoBytes is rejected and
// the current photo is left as it was.
func (s *State) AttachPhoto(size int64, r io.Reader) error {
	dataURL, err := readPhoto(size, r)
	if err != nil {
		return err
	}
	s.setPhoto(&dataURL)
	return nil
}

// RemovePhoto clears the preview and the draft photo.
func (s *State) RemovePhoto() {
	s.setPhoto(nil)
}

func (s *State) setPhoto(p *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.photoPreview, s.draft.Photo = nil, nil
		return
	}
	preview, stored := *p, *p
	s.photoPreview, s.draft.Photo = &preview, &stored
}

func readPhoto(size int64, r io.Reader) (string, error) {
	if size > MaxPhotoBytes {
		metrics.FormRejections.WithLabelValues("photo_too_large").Inc()
		return "", ErrPhotoTooLarge
	}
	raw, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(raw) > MaxPhotoBytes {
		metrics.FormRejections.WithLabelValues("photo_too_large").Inc()
		return "", ErrPhotoTooLarge
	}
	mt := mimetype.Detect(raw)
	if !slices.Contains(PhotoTypes, mt.String()) {
		metrics.FormRejections.WithLabelValues("not_an_image").Inc()
		return "", ErrNotAnImage
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// SetSubmitting is called by the owner around its own persistence work.
func (s *State) SetSubmitting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSubmitting = v
}

// Submitting reports the caller-controlled submitting flag.
func (s *State) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSubmitting
}

// SubmitLabel is the text of the submit control.
func (s *State) SubmitLabel() string {
	if s.Submitting() {
		return "Generating..."
	}
	return "Generate ID Card"
}

// Submit validates the required fields and hands the draft to onComplete.
// Any missing field yields ErrMissingFields without naming which one, and
// onComplete is not called.
func (s *State) Submit(onComplete func(student.Record) error) error {
	draft := s.Draft()
	if err := Validate(draft); err != nil {
		metrics.FormRejections.WithLabelValues("missing_fields").Inc()
		return err
	}
	return onComplete(draft)
}

// Validate checks the required string fields of a draft.
func Validate(rec student.Record) error {
	trimmed := rec
	trimmed.Name = strings.TrimSpace(rec.Name)
	trimmed.RollNumber = strings.TrimSpace(rec.RollNumber)
	trimmed.ClassDiv = strings.TrimSpace(rec.ClassDiv)
	trimmed.RackNumber = strings.TrimSpace(rec.RackNumber)
	trimmed.BusRouteNumber = strings.TrimSpace(rec.BusRouteNumber)
	if err := validate.Struct(trimmed); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return ErrMissingFields
		}
		return fmt.Errorf("validate draft: %w", err)
	}
	return nil
}

// Message is the warning shown to the user for a form error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Please fill all required fields"
	case errors.Is(err, ErrPhotoTooLarge):
		return "Photo must be smaller than 2MB"
	case errors.Is(err, ErrNotAnImage):
		return "Photo must be an image file"
	default:
		return err.Error()
	}
}
