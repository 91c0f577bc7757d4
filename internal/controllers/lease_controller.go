package controllers

import (
	"net/http"

	"github.com/poofware/rental-service/internal/dtos"
	"github.com/poofware/rental-service/internal/services"
	"github.com/poofware/rental-service/internal/utils"
)

type LeaseController struct {
	leaseService *services.LeaseService
}

func NewLeaseController(s *services.LeaseService) *LeaseController {
	return &LeaseController{leaseService: s}
}

// POST /api/v1/rentals/leases
func (c *LeaseController) CreateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.CreateLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.leaseService.CreateLease(r.Context(), caller, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/rentals/leases
func (c *LeaseController) ListLeasesHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	resp, err := c.leaseService.ListLeases(r.Context(), caller)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/rentals/leases/{id}
func (c *LeaseController) GetLeaseHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	resp, err := c.leaseService.GetLease(r.Context(), caller, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// PUT /api/v1/rentals/leases/{id}
func (c *LeaseController) UpdateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.UpdateLeaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	resp, err := c.leaseService.UpdateLease(r.Context(), caller, id, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/rentals/leases/{id}
func (c *LeaseController) DeleteLeaseHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := getPrincipal(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if err := c.leaseService.DeleteLease(r.Context(), caller, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Lease deleted"})
}
