package http

import (
	"strconv"
	"time"

	"complaint_server/core/domain"
	in "complaint_server/core/port/in"
	"complaint_server/infra/middleware"
	"complaint_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ComplaintHandler handles HTTP requests for complaint operations
type ComplaintHandler struct {
	service in.ComplaintUseCase
}

// NewComplaintHandler creates a new ComplaintHandler
func NewComplaintHandler(service in.ComplaintUseCase) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

// Register registers complaint routes. submitLimit handlers, if any,
// run in front of the submission endpoint only.
func (h *ComplaintHandler) Register(router fiber.Router, submitLimit ...fiber.Handler) {
	complaints := router.Group("/complaints")

	complaints.Post("/", append(submitLimit, h.Create)...)
	complaints.Get("/", h.List)

	// Registered before /:id so the path segment is not captured as an id.
	complaints.Get("/automation/recent/:category", h.RecentByCategory)

	complaints.Get("/:id", h.Get)
	complaints.Patch("/:id/status", h.UpdateStatus)
}

// =============================================================================
// Request / Response Types
// =============================================================================

type createComplaintRequest struct {
	Text string `json:"text"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// complaintCreatedResponse is the short form returned on creation.
type complaintCreatedResponse struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Sentiment string `json:"sentiment"`
	Category  string `json:"category"`
}

// complaintResponse is the full record used by list and point lookups.
type complaintResponse struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  string    `json:"sentiment"`
	Category   string    `json:"category"`
	IsSpam     *bool     `json:"is_spam"`
	IPLocation *string   `json:"ip_location"`
}

func toComplaintResponse(c *domain.Complaint) complaintResponse {
	return complaintResponse{
		ID:         c.ID,
		Text:       c.Text,
		Status:     string(c.Status),
		Timestamp:  c.CreatedAt,
		Sentiment:  string(c.Sentiment),
		Category:   string(c.Category),
		IsSpam:     c.IsSpam,
		IPLocation: c.IPLocation,
	}
}

func toComplaintResponses(complaints []*domain.Complaint) []complaintResponse {
	out := make([]complaintResponse, len(complaints))
	for i, c := range complaints {
		out[i] = toComplaintResponse(c)
	}
	return out
}

// =============================================================================
// Handlers
// =============================================================================

// Create submits a complaint for enrichment and persistence.
func (h *ComplaintHandler) Create(c *fiber.Ctx) error {
	var req createComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	complaint, err := h.service.Create(c.Context(), req.Text, middleware.GetClientIP(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(complaintCreatedResponse{
		ID:        complaint.ID,
		Status:    string(complaint.Status),
		Sentiment: string(complaint.Sentiment),
		Category:  string(complaint.Category),
	})
}

// List returns a filtered, paginated complaint page, newest first.
func (h *ComplaintHandler) List(c *fiber.Ctx) error {
	filter := &domain.ComplaintFilter{}

	if status := c.Query("status"); status != "" {
		if !domain.ValidStatus(status) {
			return apperr.InvalidInput("status", "must be 'open' or 'closed'")
		}
		s := domain.ComplaintStatus(status)
		filter.Status = &s
	}

	if category := c.Query("category"); category != "" {
		cat := domain.Category(category)
		filter.Category = &cat
	}

	if sentiment := c.Query("sentiment"); sentiment != "" {
		s := domain.Sentiment(sentiment)
		filter.Sentiment = &s
	}

	if raw := c.Query("since_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 || hours > 8760 {
			return apperr.InvalidInput("since_hours", "must be an integer between 1 and 8760")
		}
		filter.SinceHours = &hours
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return err
	}
	filter.Limit = limit
	filter.Offset = offset

	complaints, total, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"complaints": toComplaintResponses(complaints),
		"total":      total,
		"page":       offset/limit + 1,
		"per_page":   limit,
	})
}

// Get returns the full complaint record.
func (h *ComplaintHandler) Get(c *fiber.Ctx) error {
	id, err := parseComplaintID(c)
	if err != nil {
		return err
	}

	complaint, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(toComplaintResponse(complaint))
}

// UpdateStatus transitions a complaint between open and closed.
func (h *ComplaintHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := parseComplaintID(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if !domain.ValidStatus(req.Status) {
		return apperr.InvalidInput("status", "must be 'open' or 'closed'")
	}

	if err := h.service.UpdateStatus(c.Context(), id, domain.ComplaintStatus(req.Status)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "complaint " + strconv.FormatInt(id, 10) + " status updated to " + req.Status,
	})
}

// RecentByCategory returns open complaints in a category within a
// recency window, for automated downstream routing.
func (h *ComplaintHandler) RecentByCategory(c *fiber.Ctx) error {
	category := c.Params("category")

	hours := 1
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 24 {
			return apperr.InvalidInput("hours", "must be an integer between 1 and 24")
		}
		hours = parsed
	}

	complaints, err := h.service.RecentByCategory(c.Context(), domain.Category(category), hours)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"category":   category,
		"hours":      hours,
		"count":      len(complaints),
		"complaints": toComplaintResponses(complaints),
	})
}

// =============================================================================
// Helpers
// =============================================================================

func parseComplaintID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("id", "must be a positive integer")
	}
	return id, nil
}

func parsePagination(c *fiber.Ctx) (limit, offset int, err error) {
	limit = 20
	if raw := c.Query("limit"); raw != "" {
		parsed, perr := strconv.Atoi(raw)
		if perr != nil || parsed < 1 || parsed > 100 {
			return 0, 0, apperr.InvalidInput("limit", "must be an integer between 1 and 100")
		}
		limit = parsed
	}

	if raw := c.Query("offset"); raw != "" {
		parsed, perr := strconv.Atoi(raw)
		if perr != nil || parsed < 0 {
			return 0, 0, apperr.InvalidInput("offset", "must be a non-negative integer")
		}
		offset = parsed
	}

	return limit, offset, nil
}
