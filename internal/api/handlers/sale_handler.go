package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MOhammedRiaad/EMS-sub006/internal/application"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/api"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/middleware"
)

// CreateSaleRequest is the POST /sales body
type CreateSaleRequest struct {
	StudioID      string            `json:"studioId" binding:"required,safe_string"`
	ClientID      string            `json:"clientId" binding:"omitempty,safe_string"`
	PaymentMethod string            `json:"paymentMethod" binding:"required,payment_method"`
	Items         []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleLineRequest is one basket line
type SaleLineRequest struct {
	ProductID string `json:"productId" binding:"required,safe_string"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// AdjustmentRequest is the POST /adjustments body
type AdjustmentRequest struct {
	ClientID    string `json:"clientId" binding:"omitempty,safe_string"`
	StudioID    string `json:"studioId" binding:"omitempty,safe_string"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required,max=500,safe_string"`
}

// SaleHandler handles HTTP requests for sales and ledger history
type SaleHandler struct {
	service *application.SaleService
	logger  *logging.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(service *application.SaleService, logger *logging.Logger) *SaleHandler {
	return &SaleHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the handler on an authenticated /api/v1 group
func (h *SaleHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/sales", h.CreateSale)
	group.GET("/sales", h.GetHistory)
	group.GET("/sales/:saleId", h.GetSale)
	group.GET("/transactions", h.GetTransactionHistory)
	group.POST("/adjustments", h.RecordAdjustment)
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req CreateSaleRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	tc := middleware.GetTenantContext(c)
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"sale.studio_id":      req.StudioID,
		"sale.payment_method": req.PaymentMethod,
		"sale.lines":          len(req.Items),
	})

	items := make([]application.SaleLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, application.SaleLineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	sale, err := h.service.CreateSale(c.Request.Context(), application.CreateSaleCommand{
		TenantID:      tc.TenantID,
		ActorID:       tc.ActorID,
		StudioID:      req.StudioID,
		ClientID:      req.ClientID,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Header("Location", "/api/v1/sales/"+sale.SaleID)
	c.JSON(http.StatusCreated, api.DataResponse[*application.SaleDTO]{Data: sale})
}

// GetSale handles GET /api/v1/sales/:saleId
func (h *SaleHandler) GetSale(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	saleID := c.Param("saleId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"sale.id": saleID})

	sale, err := h.service.GetSale(c.Request.Context(), application.GetSaleQuery{
		TenantID: middleware.GetTenantContext(c).TenantID,
		SaleID:   saleID,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.DataResponse[*application.SaleDTO]{Data: sale})
}

// GetHistory handles GET /api/v1/sales
func (h *SaleHandler) GetHistory(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	sales, err := h.service.GetHistory(c.Request.Context(), application.GetSaleHistoryQuery{
		TenantID: middleware.GetTenantContext(c).TenantID,
		StudioID: c.Query("studioId"),
		Limit:    api.ParseLimit(c),
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewListResponse(sales))
}

// GetTransactionHistory handles GET /api/v1/transactions
func (h *SaleHandler) GetTransactionHistory(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	window, err := api.ParseTimeRange(c, "from", "to")
	if err != nil {
		var queryErr *api.QueryError
		if stderrors.As(err, &queryErr) {
			responder.RespondWithAppError(errors.ErrValidation("invalid date range").WithDetail(queryErr.Param, "must be an RFC3339 timestamp"))
			return
		}
		responder.RespondBadRequest(err.Error())
		return
	}

	entries, err := h.service.GetTransactionHistory(c.Request.Context(), application.GetTransactionHistoryQuery{
		TenantID: middleware.GetTenantContext(c).TenantID,
		StudioID: c.Query("studioId"),
		From:     window.From,
		To:       window.To,
		Limit:    api.ParseLimit(c),
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewListResponse(entries))
}

// RecordAdjustment handles POST /api/v1/adjustments
func (h *SaleHandler) RecordAdjustment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req AdjustmentRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	tc := middleware.GetTenantContext(c)
	entry, err := h.service.RecordAdjustment(c.Request.Context(), application.RecordAdjustmentCommand{
		TenantID:    tc.TenantID,
		ActorID:     tc.ActorID,
		ClientID:    req.ClientID,
		StudioID:    req.StudioID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, api.DataResponse[*application.LedgerEntryDTO]{Data: entry})
}
