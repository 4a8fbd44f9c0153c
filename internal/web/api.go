package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"idcard/internal/cards"
	"idcard/internal/form"
	"idcard/internal/metrics"
	"idcard/internal/page"
	"idcard/internal/queue"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

const maxScale = 4

func (s *Server) listCards(c *gin.Context) {
	list, err := s.Cards.List(c.Request.Context())
	if err != nil {
		s.Log.Error("list cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []student.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"cards": list})
}

func (s *Server) createCard(c *gin.Context) {
	var draft student.Record
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := form.Validate(draft); err != nil {
		metrics.FormRejections.WithLabelValues("missing_fields").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": form.Message(err)})
		return
	}
	for _, a := range draft.Allergies {
		if !student.IsAllergyOption(a) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown allergy " + strconv.Quote(a)})
			return
		}
	}
	if draft.Photo != nil && !render.IsImageDataURL(*draft.Photo) {
		c.JSON(http.StatusBadRequest, gin.H{"error": form.Message(form.ErrNotAnImage)})
		return
	}
	if draft.Photo != nil && len(*draft.Photo) > form.MaxPhotoBytes*4/3+64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": form.Message(form.ErrPhotoTooLarge)})
		return
	}
	rec, err := s.Cards.Save(c.Request.Context(), draft)
	if err != nil {
		s.Log.Error("save card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	s.publish(c, queue.CardSaved, rec.ID)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) getCard(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteCard(c *gin.Context) {
	id := c.Param("id")
	if err := s.Cards.Delete(c.Request.Context(), id); err != nil {
		s.Log.Error("delete card", zap.String("card_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	s.Sessions.Each(func(ctrl *page.Controller) { ctrl.Deleted(id) })
	s.publish(c, queue.CardDeleted, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) cardImage(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	opts := raster.ExportOptions
	if v := c.Query("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 || scale > maxScale {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scale must be in (0, 4]"})
			return
		}
		opts.Scale = scale
	}
	art, err := s.Exporter.Export(c.Request.Context(), "api", render.ParseVariant(c.Query("template")), rec, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	attachment(c, art)
}

func (s *Server) cardPayload(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec.ScanPayload())
}

func (s *Server) lookup(c *gin.Context) (student.Record, bool) {
	rec, err := s.Cards.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, cards.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return rec, false
	case err != nil:
		s.Log.Error("get card", zap.String("card_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return rec, false
	}
	return rec, true
}

func (s *Server) publish(c *gin.Context, typ, id string) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(c.Request.Context(), queue.Message{Type: typ, CardID: id}); err != nil {
		s.Log.Warn("queue publish failed", zap.String("type", typ), zap.String("card_id", id), zap.Error(err))
	}
}
