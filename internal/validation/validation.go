// Package validation implements spec.md §6's request-shape checks:
// the developer-contract violation (rejecting control-plane-owned
// fields in the request body), name/namespace format, and
// go-playground/validator struct-tag validation for product
// parameters, matching the gin binding conventions the teacher's
// services use throughout (e.g. packages/agent-orchestrator/server.go's
// `binding:"required"` request structs).
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
)

var nameRE = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// forbiddenFields are the control-plane-decided fields a developer
// request must never set directly (spec.md §6).
var forbiddenFields = []string{"provider", "region", "runtimeCluster", "runtime_cluster", "network"}

var validate = validator.New()

// CreateRequest is the common envelope every creation request shares,
// mirroring spec.md §6's key list.
type CreateRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Namespace   string                 `json:"namespace" validate:"required"`
	Cell        string                 `json:"cell" validate:"required"`
	Tier        string                 `json:"tier" validate:"required"`
	Environment string                 `json:"environment" validate:"required"`
	HA          bool                   `json:"ha"`
	Parameters  map[string]interface{} `json:"-"`
}

// ValidateContract rejects any presence of the control-plane-owned
// fields in the raw request body, per spec.md §6's "developer contract
// violation" 400.
func ValidateContract(rawBody map[string]interface{}) error {
	var present []string
	for _, f := range forbiddenFields {
		if _, ok := rawBody[f]; ok {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		return cperrors.New(cperrors.Validation, fmt.Sprintf("developer contract violation: fields not allowed: %s", strings.Join(present, ", ")))
	}
	return nil
}

// ValidateCreateRequest checks the common envelope: required fields,
// struct-tag constraints, and the name/namespace format spec.md §6
// fixes (`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`).
func ValidateCreateRequest(req CreateRequest) error {
	if err := validate.Struct(req); err != nil {
		return cperrors.Wrap(cperrors.Validation, "request failed validation", err)
	}
	var errs []string
	if !nameRE.MatchString(req.Name) {
		errs = append(errs, fmt.Sprintf("name %q does not match required format", req.Name))
	}
	if !nameRE.MatchString(req.Namespace) {
		errs = append(errs, fmt.Sprintf("namespace %q does not match required format", req.Namespace))
	}
	if len(errs) > 0 {
		return cperrors.New(cperrors.Validation, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateParameters runs go-playground/validator against an
// arbitrary product-specific parameter struct the caller has already
// unmarshaled from the request body's remaining fields.
func ValidateParameters(params interface{}) error {
	if err := validate.Struct(params); err != nil {
		return cperrors.Wrap(cperrors.Validation, "parameters failed validation", err)
	}
	return nil
}
