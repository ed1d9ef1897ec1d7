package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler maps the ticket routes onto the lifecycle service.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// List GET /tickets. Absent or "none" filter/param mean an unfiltered page.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := c.Query("filter")
	param := c.Query("param")
	limit := parseInt(c.Query("limit"))
	page := parseInt(c.Query("page"))

	var (
		result *service.TicketPage
		err    error
	)
	if (filter == "" || filter == "none") && (param == "" || param == "none") {
		result, err = h.tickets.GetAll(c.Context(), limit, page)
	} else {
		result, err = h.tickets.GetByFilter(c.Context(), filter, param, limit, page)
	}
	if err != nil {
		return err
	}
	return c.JSON(ticketPageResponse(result))
}

// GetByID GET /tickets/id/:id.
func (h *TicketsHandler) GetByID(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// GetByNumber GET /tickets/number/:ticketNumber/secret-key/:secretKey. The
// only unauthenticated read: the number+secret pair is the authorization.
func (h *TicketsHandler) GetByNumber(c *fiber.Ctx) error {
	number, err := strconv.ParseInt(c.Params("ticketNumber"), 10, 64)
	if err != nil {
		return util.NewNotFound("no ticket exists with that number")
	}
	ticket, err := h.tickets.GetByNumber(c.Context(), number, c.Params("secretKey"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMissingInput("provide the ticket information")
	}
	result, err := h.tickets.Create(c.Context(), service.CreateTicketInput{
		Username: req.Username,
		Email:    req.Email,
		Title:    req.Title,
		Text:     req.Text,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(mutationResponse(result))
}

// MarkViewed PUT /tickets/view/:id.
func (h *TicketsHandler) MarkViewed(c *fiber.Ctx) error {
	result, err := h.tickets.MarkViewed(c.Context(), c.Params("id"), c.Cookies(auth.SessionCookie))
	if err != nil {
		return err
	}
	return c.JSON(mutationResponse(result))
}

// MarkClosed PUT /tickets/close/:id.
func (h *TicketsHandler) MarkClosed(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMissingInput("provide the problem summary")
	}
	result, err := h.tickets.MarkClosed(c.Context(), c.Params("id"), req.Summary, c.Cookies(auth.SessionCookie))
	if err != nil {
		return err
	}
	return c.JSON(mutationResponse(result))
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Username:     ticket.Username,
		Email:        ticket.Email,
		Title:        ticket.Title,
		Text:         ticket.Text,
		SecretKey:    ticket.SecretKey,
		Viewed: dto.TicketViewedResponse{
			Status: ticket.Viewed.Status,
			By:     staffRefResponse(ticket.Viewed.By),
			On:     ticket.Viewed.On,
		},
		Closed: dto.TicketClosedResponse{
			Status:  ticket.Closed.Status,
			By:      staffRefResponse(ticket.Closed.By),
			On:      ticket.Closed.On,
			Summary: ticket.Closed.Summary,
		},
		CreatedAt: ticket.CreatedAt,
	}
}

func staffRefResponse(ref *domain.StaffRef) *dto.StaffRefResponse {
	if ref == nil {
		return nil
	}
	return &dto.StaffRefResponse{ID: ref.ID, Username: ref.Username}
}

func ticketPageResponse(page *service.TicketPage) dto.TicketPageResponse {
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	return dto.TicketPageResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Page:   page.Page,
		Pages:  page.Pages,
		Filter: page.Filter,
		Param:  page.Param,
	}
}

func mutationResponse(result *service.TicketResult) dto.TicketMutationResponse {
	return dto.TicketMutationResponse{
		Success: true,
		Message: result.Message,
		Ticket:  ticketResponse(result.Ticket),
	}
}
