package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/middleware"
	"github.com/leadnest/crm_backend/models"
	"github.com/leadnest/crm_backend/services"
)

type LeadController struct {
	DB          *mongo.Database
	Leads       *services.LeadStatusService
	Conversions *services.ConversionService
}

func NewLeadController(db *mongo.Database, conversions *services.ConversionService) *LeadController {
	return &LeadController{
		DB:          db,
		Leads:       services.NewLeadStatusService(db),
		Conversions: conversions,
	}
}

// CreateLead registers a new lead under the authenticated partner
func (lc *LeadController) CreateLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Name and phone are required",
		})
	}

	now := time.Now()
	lead := models.Lead{
		ID:         primitive.NewObjectID(),
		AssignedTo: partnerID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Status:     models.LeadStatusNew,
		Priority:   req.Priority,
		Value:      req.Value,
		Source:     req.Source,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := lc.DB.Collection("leads").InsertOne(ctx, lead); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "A lead with this phone number already exists for your account",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create lead",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Lead created successfully",
		Data:    lead,
	})
}

// GetLeads returns a page of the partner's leads, optionally by status
func (lc *LeadController) GetLeads(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	query := bson.M{"assignedTo": partnerID}
	if status := c.QueryParam("status"); status != "" {
		if !services.IsValidLeadStatus(models.LeadStatus(status)) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Unknown lead status filter",
			})
		}
		query["status"] = status
	}

	page, limit := parsePagination(c)
	coll := lc.DB.Collection("leads")

	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count leads",
		})
	}

	cursor, err := coll.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page-1)*limit)).
		SetLimit(int64(limit)),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve leads",
		})
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode leads",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Leads retrieved successfully",
		Data: map[string]interface{}{
			"leads": leads,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetLead returns a single lead owned by the partner
func (lc *LeadController) GetLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	leadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid lead ID format",
		})
	}

	var lead models.Lead
	err = lc.DB.Collection("leads").FindOne(ctx, bson.M{"_id": leadID, "assignedTo": partnerID}).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Lead not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve lead",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Lead retrieved successfully",
		Data:    lead,
	})
}

// UpdateLeadStatus applies one transition from the lead status table.
// Conversions must go through ConvertLead so commission is triggered.
func (lc *LeadController) UpdateLeadStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	leadID, err := lc.ownedLeadID(ctx, c, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	var req models.UpdateLeadStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	to := models.LeadStatus(req.Status)
	if !services.IsValidLeadStatus(to) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown lead status",
		})
	}
	if to == models.LeadStatusConverted {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Use the convert endpoint to mark a lead converted",
		})
	}

	lead, err := lc.Leads.Transition(ctx, leadID, to)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Lead status updated successfully",
		Data:    lead,
	})
}

// ShareLead records an outward share of the lead to an external sales actor
func (lc *LeadController) ShareLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	leadID, err := lc.ownedLeadID(ctx, c, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	var req models.ShareLeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	counterpartID, err := primitive.ObjectIDFromHex(req.CounterpartID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid counterpart ID format",
		})
	}

	share := models.LeadShare{
		CounterpartID: counterpartID,
		SharedBy:      partnerID,
		SharedAt:      time.Now(),
	}
	var updated models.Lead
	err = lc.DB.Collection("leads").FindOneAndUpdate(ctx,
		bson.M{"_id": leadID, "status": bson.M{"$ne": models.LeadStatusConverted}},
		bson.M{
			"$push": bson.M{"sharedTo": share},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Converted leads can no longer be shared",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to share lead",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Lead shared successfully",
		Data:    updated,
	})
}

// ConvertLead flips the lead to converted and runs the commission
// pipeline. The response reports whether a commission was credited.
func (lc *LeadController) ConvertLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	leadID, err := lc.ownedLeadID(ctx, c, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	var req models.ConvertLeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	var clientID *primitive.ObjectID
	if req.ClientID != "" {
		id, err := primitive.ObjectIDFromHex(req.ClientID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid client ID format",
			})
		}
		clientID = &id
	}

	result, err := lc.Conversions.ConvertLead(ctx, leadID, req.DealValue, clientID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Lead converted successfully",
		Data:    result,
	})
}

// HandleExternalConversion is the admin/API trigger for a conversion that
// happened on the external sales channel. A missing partner-side match is
// a successful no-op, not an error.
func (lc *LeadController) HandleExternalConversion(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var req models.ExternalConversionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Phone and converting actor ID are required",
		})
	}

	actorID, err := primitive.ObjectIDFromHex(req.ConvertingActorID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid converting actor ID format",
		})
	}

	result, err := lc.Conversions.HandleExternalConversion(ctx, req.Phone, actorID, req.DealValue)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	message := "External conversion processed, no partner commission applies"
	if result.Credited {
		message = "External conversion processed, partner commission credited"
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    result,
	})
}

// ownedLeadID parses the :id path param and verifies the lead belongs to
// the authenticated partner.
func (lc *LeadController) ownedLeadID(ctx context.Context, c echo.Context, partnerID primitive.ObjectID) (primitive.ObjectID, error) {
	leadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, mongo.ErrNoDocuments
	}
	count, err := lc.DB.Collection("leads").CountDocuments(ctx, bson.M{"_id": leadID, "assignedTo": partnerID})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if count == 0 {
		return primitive.NilObjectID, mongo.ErrNoDocuments
	}
	return leadID, nil
}

// partnerIDFromToken resolves the authenticated user's ObjectID
func partnerIDFromToken(c echo.Context) (primitive.ObjectID, error) {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return primitive.NilObjectID, echo.ErrUnauthorized
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// parsePagination reads page/limit query params with sane bounds
func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
