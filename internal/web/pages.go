package web

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"idcard/internal/form"
	"idcard/internal/page"
	"idcard/internal/preview"
	"idcard/internal/render"
	"idcard/internal/student"
)

type pageData struct {
	page.Snapshot
	Branding       render.Branding
	ClassOptions   []string
	BusOptions     []string
	AllergyOptions []string
	Variants       []variantOption
	MaxPhotoMB     int
	GenerateActive bool
	SavedTabActive bool
}

type variantOption struct {
	Value    render.Variant
	Label    string
	Selected bool
}

func (s *Server) index(c *gin.Context) {
	ctrl := s.controller(c)
	if tab := c.Query("tab"); tab != "" {
		ctrl.SetTab(page.ParseTab(tab))
	}
	snap, err := ctrl.Snapshot()
	if err != nil {
		s.Log.Error("render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	data := pageData{
		Snapshot:       snap,
		Branding:       s.Branding,
		ClassOptions:   student.ClassDivOptions,
		BusOptions:     student.BusRouteOptions,
		AllergyOptions: student.AllergyOptions,
		MaxPhotoMB:     form.MaxPhotoBytes >> 20,
		GenerateActive: snap.Tab == page.TabGenerate,
		SavedTabActive: snap.Tab == page.TabSaved,
	}
	for _, v := range render.Variants {
		data.Variants = append(data.Variants, variantOption{Value: v.Variant, Label: v.Label, Selected: v.Variant == snap.Template})
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// postForm syncs the draft with the posted inputs, then performs action:
// "upload" (default) only keeps the edits, "remove-photo" clears the photo,
// "submit" validates and saves.
func (s *Server) postForm(c *gin.Context) {
	ctrl := s.controller(c)
	f := ctrl.Form()

	for _, name := range form.Fields {
		if v, ok := c.GetPostForm(name); ok {
			_ = f.SetField(name, v)
		}
	}
	checked := c.PostFormArray("allergies")
	for _, a := range student.AllergyOptions {
		_ = f.SetAllergy(a, slices.Contains(checked, a))
	}

	action := c.PostForm("action")
	if action == "remove-photo" {
		f.RemovePhoto()
	} else if fh, err := c.FormFile("photo"); err == nil && fh.Size > 0 {
		file, err := fh.Open()
		if err != nil {
			s.Log.Warn("open uploaded photo", zap.Error(err))
			ctrl.Notify(page.LevelError, "Failed to read photo")
		} else {
			err = f.AttachPhoto(fh.Size, file)
			_ = file.Close()
			if err != nil {
				ctrl.Notify(page.LevelWarning, form.Message(err))
			}
		}
	}

	if action == "submit" {
		// failures are already queued as notifications
		_, _ = ctrl.SubmitForm(c.Request.Context())
	}
	c.Redirect(http.StatusSeeOther, "/?tab=generate")
}

func (s *Server) selectTemplate(c *gin.Context) {
	s.controller(c).SelectTemplate(c.PostForm("template"))
	c.Redirect(http.StatusSeeOther, "/?tab=generate")
}

func (s *Server) exportPreview(c *gin.Context) {
	art, err := s.controller(c).ExportActive(c.Request.Context())
	switch {
	case errors.Is(err, preview.ErrBusy):
		c.String(http.StatusConflict, "export already in progress")
	case errors.Is(err, page.ErrNoActiveCard):
		c.Redirect(http.StatusSeeOther, "/?tab=generate")
	case err != nil:
		c.Redirect(http.StatusSeeOther, "/?tab=generate")
	default:
		attachment(c, art)
	}
}

func (s *Server) reset(c *gin.Context) {
	s.controller(c).Reset()
	c.Redirect(http.StatusSeeOther, "/?tab=generate")
}

func (s *Server) viewSaved(c *gin.Context) {
	if err := s.controller(c).View(c.Param("id")); err != nil {
		c.Redirect(http.StatusSeeOther, "/?tab=saved")
		return
	}
	c.Redirect(http.StatusSeeOther, "/?tab=generate")
}

func (s *Server) exportSaved(c *gin.Context) {
	art, err := s.controller(c).ExportSaved(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/?tab=saved")
		return
	}
	attachment(c, art)
}

func (s *Server) deleteSaved(c *gin.Context) {
	id := c.Param("id")
	if err := s.controller(c).Delete(c.Request.Context(), id); err == nil {
		s.Sessions.Each(func(other *page.Controller) { other.Deleted(id) })
	}
	c.Redirect(http.StatusSeeOther, "/?tab=saved")
}
