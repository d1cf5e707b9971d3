package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/response"
)

// maxImageSize bounds court image uploads.
const maxImageSize = 10 << 20

type CourtHandler struct {
	service court.Service
}

func NewHandler(service court.Service) *CourtHandler {
	return &CourtHandler{service: service}
}

// List retrieves a paginated list of courts with optional filtering.
func (h *CourtHandler) List(c *gin.Context) {
	var req ListCourtsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	courts, total, err := h.service.List(c.Request.Context(), court.Filter{
		VendorID: req.VendorID,
		Status:   court.Status(req.Status),
		Keyword:  req.Keyword,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]CourtResponse, len(courts))
	for i, ct := range courts {
		items[i] = NewCourtResponse(ct)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Get retrieves court details.
func (h *CourtHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid court id", err)
		return
	}

	ct, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCourtResponse(ct))
}

// Create registers a court owned by the calling vendor.
func (h *CourtHandler) Create(c *gin.Context) {
	var body CreateCourtRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req, err := body.toService()
	if err != nil {
		response.BadRequest(c, "invalid court fields", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	ct, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewCourtResponse(ct))
}

// Update modifies a court. Only the owning vendor may do so.
func (h *CourtHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid court id", err)
		return
	}
	var body UpdateCourtRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req, err := body.toService()
	if err != nil {
		response.BadRequest(c, "invalid court fields", err)
		return
	}

	identity, _ := auth.GetIdentity(c)
	ct, err := h.service.Update(c.Request.Context(), identity, uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCourtResponse(ct))
}

// UploadImage replaces the court photo from the multipart "file" field.
func (h *CourtHandler) UploadImage(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid court id", err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, court.ErrImageRequired)
		return
	}
	src, err := header.Open()
	if err != nil {
		response.BadRequest(c, "cannot read upload", err)
		return
	}
	defer src.Close()

	identity, _ := auth.GetIdentity(c)
	ct, err := h.service.UploadImage(c.Request.Context(), identity, uri.ID, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCourtResponse(ct))
}

func (h *CourtHandler) Image(c *gin.Context)     { h.serveImage(c, false) }
func (h *CourtHandler) Thumbnail(c *gin.Context) { h.serveImage(c, true) }

func (h *CourtHandler) serveImage(c *gin.Context, thumbnail bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid court id", err)
		return
	}

	img, err := h.service.OpenImage(c.Request.Context(), uri.ID, thumbnail)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer img.Content.Close()

	c.DataFromReader(http.StatusOK, -1, img.ContentType, img.Content, map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}
