package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/internal/inquiry"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=200,singleline"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"max=50,singleline"`
	Subject string `json:"subject" binding:"max=200,singleline"`
	Message string `json:"message" binding:"required,max=5000"`
}

type consultationRequest struct {
	Name          string `json:"name" binding:"required,max=200,singleline"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required,max=50,singleline"`
	PracticeArea  string `json:"practiceArea" binding:"max=200,singleline"`
	PreferredDate string `json:"preferredDate" binding:"required"`
	Message       string `json:"message" binding:"max=5000"`
}

// InquiryHandler serves the public contact and consultation forms and the
// admin listing.
type InquiryHandler struct {
	svc *inquiry.Service
}

func NewInquiryHandler(svc *inquiry.Service) *InquiryHandler {
	registerValidators()
	return &InquiryHandler{svc: svc}
}

// Register mounts the form routes behind limit (may be nil) and the listing
// behind admin.
func (h *InquiryHandler) Register(rg *gin.RouterGroup, limit gin.HandlerFunc, admin ...gin.HandlerFunc) {
	var public []gin.HandlerFunc
	if limit != nil {
		public = append(public, limit)
	}
	rg.POST("/contact", append(public, h.Contact)...)
	rg.POST("/consultations", append(public, h.Consultation)...)
	rg.GET("/admin/inquiries", append(append([]gin.HandlerFunc{}, admin...), h.List)...)
}

func (h *InquiryHandler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name, a valid email and message are required"})
		return
	}
	h.submit(c, &inquiry.Inquiry{
		Kind:    inquiry.KindContact,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
}

func (h *InquiryHandler) Consultation(c *gin.Context) {
	var req consultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name, a valid email, phone and preferredDate are required"})
		return
	}
	when, err := time.Parse(time.RFC3339, req.PreferredDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "preferredDate must be an RFC 3339 timestamp"})
		return
	}
	h.submit(c, &inquiry.Inquiry{
		Kind:          inquiry.KindConsultation,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PracticeArea:  req.PracticeArea,
		PreferredDate: &when,
		Message:       req.Message,
	})
}

func (h *InquiryHandler) submit(c *gin.Context, in *inquiry.Inquiry) {
	out, err := h.svc.Submit(c.Request.Context(), in)
	if err != nil {
		if !errors.Is(err, inquiry.ErrDelivery) {
			logger.Errorf("submit %s: %v", in.Kind, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to send your message, please try again later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": out.ID})
}

// List returns stored inquiries, newest first. ?kind= filters, ?limit= caps (default 100).
func (h *InquiryHandler) List(c *gin.Context) {
	kind := inquiry.Kind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be contact or consultation"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	items, err := h.svc.List(c.Request.Context(), kind, limit)
	if err != nil {
		logger.Errorf("list inquiries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inquiries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
