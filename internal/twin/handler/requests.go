package handler

import (
	"encoding/base64"

	"github.com/asaskevich/govalidator"

	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

// CreateTwinRequest is the HTTP request body for POST /twins. The three
// handles arrive base64-encoded; the service never inspects the bytes.
type CreateTwinRequest struct {
	OrganType         string `json:"organ_type"`
	PhysiologicalData string `json:"physiological_data"`
	GeneticMarkers    string `json:"genetic_markers"`

	// Parsed values (populated by Validate)
	organType      id.Ciphertext
	physiological  id.Ciphertext
	geneticMarkers id.Ciphertext
}

// Validate validates and decodes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateTwinRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	fields := []struct {
		name  string
		value string
		dst   *id.Ciphertext
	}{
		{"organ_type", r.OrganType, &r.organType},
		{"physiological_data", r.PhysiologicalData, &r.physiological},
		{"genetic_markers", r.GeneticMarkers, &r.geneticMarkers},
	}
	for _, f := range fields {
		if !govalidator.StringLength(f.value, "1", "1048576") {
			return dErrors.New(dErrors.CodeInvalidInput, f.name+" is required and must be at most 1MiB")
		}
		if !govalidator.IsBase64(f.value) {
			return dErrors.New(dErrors.CodeInvalidInput, f.name+" must be standard base64")
		}
		raw, err := base64.StdEncoding.DecodeString(f.value)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, f.name+" must be standard base64")
		}
		*f.dst = id.Ciphertext(raw)
	}

	return nil
}

// ParsedOrganType returns the decoded organ type handle.
func (r *CreateTwinRequest) ParsedOrganType() id.Ciphertext {
	return r.organType
}

// ParsedPhysiologicalData returns the decoded physiological data handle.
func (r *CreateTwinRequest) ParsedPhysiologicalData() id.Ciphertext {
	return r.physiological
}

// ParsedGeneticMarkers returns the decoded genetic markers handle.
func (r *CreateTwinRequest) ParsedGeneticMarkers() id.Ciphertext {
	return r.geneticMarkers
}
