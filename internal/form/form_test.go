package form

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"idcard/internal/student"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func fill(t *testing.T, s *State) {
	t.Helper()
	require.NoError(t, s.SetField(FieldName, "Ada Lovelace"))
	require.NoError(t, s.SetField(FieldRollNumber, "U2025001"))
	require.NoError(t, s.SetField(FieldClassDiv, "Grade 3-A"))
	require.NoError(t, s.SetField(FieldRackNumber, "R12"))
	require.NoError(t, s.SetField(FieldBusRouteNumber, "Route 1: North Campus"))
}

func TestSetFieldUnknown(t *testing.T) {
	err := New().SetField("photo", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestAllergyToggleIsIdempotent(t *testing.T) {
	s := New()
	require.NoError(t, s.SetAllergy("Dairy", true))
	before := s.Draft().Allergies

	require.NoError(t, s.SetAllergy("Nuts", true))
	require.NoError(t, s.SetAllergy("Nuts", true))
	assert.Equal(t, []string{"Dairy", "Nuts"}, s.Draft().Allergies)

	require.NoError(t, s.SetAllergy("Nuts", false))
	assert.ElementsMatch(t, before, s.Draft().Allergies)

	require.NoError(t, s.SetAllergy("Nuts", false))
	assert.ElementsMatch(t, before, s.Draft().Allergies)

	assert.ErrorIs(t, s.SetAllergy("Peanut butter", true), ErrUnknownOption)
}

func TestSubmitRequiresEveryField(t *testing.T) {
	for _, missing := range Fields {
		t.Run(missing, func(t *testing.T) {
			s := New()
			fill(t, s)
			require.NoError(t, s.SetField(missing, ""))

			called := false
			err := s.Submit(func(student.Record) error { called = true; return nil })
			assert.ErrorIs(t, err, ErrMissingFields)
			assert.False(t, called)
			assert.Equal(t, "Please fill all required fields", Message(err))
		})
	}
}

func TestSubmitWhitespaceOnlyIsMissing(t *testing.T) {
	s := New()
	fill(t, s)
	require.NoError(t, s.SetField(FieldRackNumber, "   "))
	err := s.Submit(func(student.Record) error { t.Fatal("callback invoked"); return nil })
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestSubmitHandsOverDraft(t *testing.T) {
	s := New()
	fill(t, s)
	require.NoError(t, s.SetAllergy("Nuts", true))

	var got student.Record
	require.NoError(t, s.Submit(func(r student.Record) error { got = r; return nil }))
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, []string{"Nuts"}, got.Allergies)
	assert.Nil(t, got.Photo)
	assert.False(t, got.Persisted())
}

func TestSubmitPropagatesCallbackError(t *testing.T) {
	s := New()
	fill(t, s)
	boom := errors.New("store down")
	assert.ErrorIs(t, s.Submit(func(student.Record) error { return boom }), boom)
}

func TestAttachPhoto(t *testing.T) {
	s := New()
	require.NoError(t, s.AttachPhoto(int64(len(pngBytes(t))), bytes.NewReader(pngBytes(t))))

	draft := s.Draft()
	require.NotNil(t, draft.Photo)
	assert.True(t, strings.HasPrefix(*draft.Photo, "data:image/png;base64,"))
	require.NotNil(t, s.PhotoPreview())
	assert.Equal(t, *draft.Photo, *s.PhotoPreview())

	s.RemovePhoto()
	assert.Nil(t, s.Draft().Photo)
	assert.Nil(t, s.PhotoPreview())
}

func TestOversizedPhotoKeepsPrevious(t *testing.T) {
	s := New()
	require.NoError(t, s.AttachPhoto(int64(len(pngBytes(t))), bytes.NewReader(pngBytes(t))))
	before := *s.Draft().Photo

	big := bytes.Repeat([]byte{0xff}, 3*1024*1024)
	err := s.AttachPhoto(int64(len(big)), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
	assert.Equal(t, "Photo must be smaller than 2MB", Message(err))
	assert.Equal(t, before, *s.Draft().Photo)

	// a lying size header is caught by the read limit
	err = s.AttachPhoto(10, bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
	assert.Equal(t, before, *s.Draft().Photo)
}

func TestOversizedPhotoWithoutPrevious(t *testing.T) {
	s := New()
	big := bytes.Repeat([]byte{0}, 3*1024*1024)
	assert.ErrorIs(t, s.AttachPhoto(int64(len(big)), bytes.NewReader(big)), ErrPhotoTooLarge)
	assert.Nil(t, s.Draft().Photo)
}

func TestAttachNonImage(t *testing.T) {
	s := New()
	err := s.AttachPhoto(5, strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Nil(t, s.Draft().Photo)
}

func TestAttachPhotoFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var bmpBuf, tiffBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, img))
	require.NoError(t, tiff.Encode(&tiffBuf, img, nil))

	s := New()
	require.NoError(t, s.AttachPhoto(int64(bmpBuf.Len()), bytes.NewReader(bmpBuf.Bytes())))
	assert.True(t, strings.HasPrefix(*s.Draft().Photo, "data:image/bmp;base64,"))
	require.NoError(t, s.AttachPhoto(int64(tiffBuf.Len()), bytes.NewReader(tiffBuf.Bytes())))
	assert.True(t, strings.HasPrefix(*s.Draft().Photo, "data:image/tiff;base64,"))

	before := *s.Draft().Photo
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="2" height="2"><rect width="2" height="2"/></svg>`)
	err := s.AttachPhoto(int64(len(svg)), bytes.NewReader(svg))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Equal(t, before, *s.Draft().Photo)
}

func TestSubmitLabel(t *testing.T) {
	s := New()
	assert.Equal(t, "Generate ID Card", s.SubmitLabel())
	s.SetSubmitting(true)
	assert.Equal(t, "Generating...", s.SubmitLabel())
}
