package handler

import (
	"strings"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
)

// ActivateRequest is the HTTP request body for POST /bracelets/activate.
type ActivateRequest struct {
	BraceletID  string `json:"bracelet_id"`
	SecretToken string `json:"secret_token"`
	ProfileID   string `json:"profile_id"`

	parsedBraceletID id.BraceletID
	parsedProfileID  id.ProfileID
}

// Validate validates and parses the request. Implements the
// Validatable interface for httputil.DecodeAndPrepare.
func (r *ActivateRequest) Validate() error {
	braceletID, err := id.ParseBraceletID(r.BraceletID)
	if err != nil {
		return err
	}
	r.parsedBraceletID = braceletID

	r.SecretToken = strings.TrimSpace(r.SecretToken)
	if r.SecretToken == "" {
		return dErrors.New(dErrors.CodeValidation, "secret_token is required")
	}
	if len(r.SecretToken) != models.SecretTokenLength {
		return dErrors.New(dErrors.CodeValidation, "secret_token must be 64 hex characters")
	}

	profileID, err := id.ParseProfileID(r.ProfileID)
	if err != nil {
		return err
	}
	r.parsedProfileID = profileID
	return nil
}

func (r *ActivateRequest) ParsedBraceletID() id.BraceletID { return r.parsedBraceletID }
func (r *ActivateRequest) ParsedProfileID() id.ProfileID   { return r.parsedProfileID }

// StatusRequest is the HTTP request body for POST /bracelets/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`

	parsedStatus models.Status
}

func (r *StatusRequest) Validate() error {
	status, err := models.ParseStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

func (r *StatusRequest) ParsedStatus() models.Status { return r.parsedStatus }

// ProvisionRequest is the HTTP request body for the admin provisioning
// endpoint.
type ProvisionRequest struct {
	Prefix string `json:"prefix"`
	Size   int    `json:"size"`
}

func (r *ProvisionRequest) Validate() error {
	r.Prefix = strings.TrimSpace(r.Prefix)
	if r.Prefix == "" {
		return dErrors.New(dErrors.CodeValidation, "prefix is required")
	}
	if r.Size <= 0 {
		return dErrors.New(dErrors.CodeValidation, "size must be positive")
	}
	return nil
}
