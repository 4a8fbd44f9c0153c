package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"idcard/internal/form"
	"idcard/internal/render"
	"idcard/internal/student"
)

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace":      "Ada_Lovelace_ID_Card.png",
		"  Grace   Hopper ": "_Grace_Hopper__ID_Card.png",
		"Alan\tM.\nTuring":  "Alan_M._Turing_ID_Card.png",
		"Solo":              "Solo_ID_Card.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, Filename(in), in)
	}
}

func TestAttachmentHeader(t *testing.T) {
	assert.Equal(t, `attachment; filename=Ada_Lovelace_ID_Card.png`, AttachmentHeader(Filename("Ada Lovelace")))
	assert.Equal(t, `attachment; filename="Bad_\"Name\"_ID_Card.png"`, AttachmentHeader(Filename(`Bad "Name"`)))
	assert.Equal(t, `attachment; filename*=utf-8''Jos%C3%A9_Garc%C3%ADa_ID_Card.png`, AttachmentHeader(Filename("José García")))
	assert.NotContains(t, AttachmentHeader("a\r\nb.png"), "\n")
}

func redImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 0xff, A: 0xff})
		}
	}
	return img
}

func redDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, redImage()))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func record() student.Record {
	return student.Record{
		ID:             "card-1-abcdefg",
		Name:           "Ada Lovelace",
		RollNumber:     "U2025001",
		ClassDiv:       "Grade 3-A",
		Allergies:      []string{"Nuts"},
		RackNumber:     "R12",
		BusRouteNumber: "Route 1: North Campus",
	}
}

func rasterize(t *testing.T, v render.Variant, rec student.Record) image.Image {
	t.Helper()
	n, err := NewNative()
	require.NoError(t, err)
	l, err := render.NewRenderer(render.Branding{}).Render(v, rec)
	require.NoError(t, err)
	out, err := n.Rasterize(context.Background(), l, ExportOptions)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	return img
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestNativeClassic(t *testing.T) {
	img := rasterize(t, render.TemplateClassic, record())

	assert.Equal(t, image.Rect(0, 0, 640, 1016), img.Bounds())
	assert.Zero(t, rgba(img.At(0, 0)).A, "rounded corner is transparent")
	assert.Equal(t, color.RGBA{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff}, rgba(img.At(4, 30)), "header banner")
	assert.Equal(t, color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}, rgba(img.At(320, 300)), "photo placeholder")
}

func TestNativeModernPhoto(t *testing.T) {
	rec := record()
	photo := redDataURL(t)
	rec.Photo = &photo
	img := rasterize(t, render.TemplateModern, rec)

	assert.Equal(t, color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}, rgba(img.At(300, 700)), "dark background")
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, rgba(img.At(128, 306)), "photo fills its box")
}

func TestNativeUploadedBMPPhoto(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, redImage()))
	f := form.New()
	require.NoError(t, f.AttachPhoto(int64(buf.Len()), bytes.NewReader(buf.Bytes())))

	rec := record()
	rec.Photo = f.Draft().Photo
	img := rasterize(t, render.TemplateModern, rec)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, rgba(img.At(128, 306)), "bmp photo decoded")
}

func TestNativeScaleOne(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)
	l, err := render.NewRenderer(render.Branding{}).Render(render.TemplateClassic, record())
	require.NoError(t, err)
	out, err := n.Rasterize(context.Background(), l, Options{})
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 508, cfg.Height)
}

func TestNativeBadPhoto(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)
	rec := record()
	bad := "data:image/png;base64,bm90IGFuIGltYWdl"
	rec.Photo = &bad
	l, err := render.NewRenderer(render.Branding{}).Render(render.TemplateClassic, rec)
	require.NoError(t, err)
	_, err = n.Rasterize(context.Background(), l, ExportOptions)
	assert.Error(t, err)
}

func TestNativeCanceled(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)
	l, err := render.NewRenderer(render.Branding{}).Render(render.TemplateClassic, record())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Rasterize(ctx, l, ExportOptions)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrap(t *testing.T) {
	f, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 12, DPI: 72})
	require.NoError(t, err)

	assert.Equal(t, []string{"Route 1: North Campus"}, wrap(face, "Route 1: North Campus", fixed.I(400), 2))
	assert.Nil(t, wrap(face, "   ", fixed.I(100), 1))

	lines := wrap(face, "Nuts, Dairy, Eggs, Shellfish, Wheat, Soy, Fish, Pollen", fixed.I(80), 2)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "…")
}

func TestDecodeDataURL(t *testing.T) {
	img, err := DecodeDataURL(redDataURL(t))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = DecodeDataURL("https://example.com/a.png")
	assert.Error(t, err)
}

type failingRasterizer struct{}

func (failingRasterizer) Rasterize(context.Context, render.Layout, Options) ([]byte, error) {
	return nil, errors.New("canvas tainted")
}
func (failingRasterizer) Name() string { return "failing" }

func TestExporter(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)
	e := NewExporter(render.NewRenderer(render.Branding{}), n, nil)
	a, err := e.Export(context.Background(), "test", render.TemplateModern, record(), ExportOptions)
	require.NoError(t, err)
	assert.Equal(t, "Ada_Lovelace_ID_Card.png", a.Filename)
	assert.NotEmpty(t, a.PNG)

	e = NewExporter(render.NewRenderer(render.Branding{}), failingRasterizer{}, nil)
	_, err = e.Export(context.Background(), "test", render.TemplateClassic, record(), ExportOptions)
	assert.EqualError(t, err, "canvas tainted")
}
