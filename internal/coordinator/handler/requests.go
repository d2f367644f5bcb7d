package handler

import (
	"encoding/base64"

	"github.com/asaskevich/govalidator"

	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

func decodeCiphertextField(name, value string, dst *id.Ciphertext) error {
	if !govalidator.StringLength(value, "1", "1048576") {
		return dErrors.New(dErrors.CodeInvalidInput, name+" is required and must be at most 1MiB")
	}
	if !govalidator.IsBase64(value) {
		return dErrors.New(dErrors.CodeInvalidInput, name+" must be standard base64")
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, name+" must be standard base64")
	}
	*dst = id.Ciphertext(raw)
	return nil
}

// DrugSimulationRequest is the HTTP request body for
// POST /twins/{twinID}/simulations/drug.
type DrugSimulationRequest struct {
	DrugCompound string `json:"drug_compound"`
	Dosage       string `json:"dosage"`

	// Parsed values (populated by Validate)
	drugCompound id.Ciphertext
	dosage       id.Ciphertext
}

// Validate validates and decodes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *DrugSimulationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := decodeCiphertextField("drug_compound", r.DrugCompound, &r.drugCompound); err != nil {
		return err
	}
	return decodeCiphertextField("dosage", r.Dosage, &r.dosage)
}

// ParsedDrugCompound returns the decoded drug compound handle.
func (r *DrugSimulationRequest) ParsedDrugCompound() id.Ciphertext {
	return r.drugCompound
}

// ParsedDosage returns the decoded dosage handle.
func (r *DrugSimulationRequest) ParsedDosage() id.Ciphertext {
	return r.dosage
}

// SurgerySimulationRequest is the HTTP request body for
// POST /twins/{twinID}/simulations/surgery.
type SurgerySimulationRequest struct {
	ProcedureType string `json:"procedure_type"`

	// Parsed values (populated by Validate)
	procedureType id.Ciphertext
}

// Validate validates and decodes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SurgerySimulationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return decodeCiphertextField("procedure_type", r.ProcedureType, &r.procedureType)
}

// ParsedProcedureType returns the decoded procedure type handle.
func (r *SurgerySimulationRequest) ParsedProcedureType() id.Ciphertext {
	return r.procedureType
}

// SimulationResultCallback is the body the oracle runtime posts to
// /internal/callbacks/simulation-result.
type SimulationResultCallback struct {
	RequestID   string   `json:"request_id"`
	ClearValues []string `json:"clear_values"`
	Proof       string   `json:"proof"`

	// Parsed values (populated by Validate)
	requestID id.RequestID
	proof     []byte
}

// Validate validates and decodes the callback.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SimulationResultCallback) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	requestID, err := id.ParseRequestID(r.RequestID)
	if err != nil {
		return err
	}
	r.requestID = requestID

	if len(r.ClearValues) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "clear_values is required")
	}
	if !govalidator.IsBase64(r.Proof) {
		return dErrors.New(dErrors.CodeInvalidInput, "proof must be standard base64")
	}
	proof, err := base64.StdEncoding.DecodeString(r.Proof)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "proof must be standard base64")
	}
	r.proof = proof
	return nil
}

// ParsedRequestID returns the parsed oracle request id.
func (r *SimulationResultCallback) ParsedRequestID() id.RequestID {
	return r.requestID
}

// ParsedProof returns the decoded proof bytes.
func (r *SimulationResultCallback) ParsedProof() []byte {
	return r.proof
}

// DecryptedCountCallback is the body the oracle runtime posts to
// /internal/callbacks/decrypted-count.
type DecryptedCountCallback struct {
	RequestID string `json:"request_id"`
	Count     uint64 `json:"count"`
	Proof     string `json:"proof"`

	// Parsed values (populated by Validate)
	requestID id.RequestID
	proof     []byte
}

// Validate validates and decodes the callback.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *DecryptedCountCallback) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	requestID, err := id.ParseRequestID(r.RequestID)
	if err != nil {
		return err
	}
	r.requestID = requestID

	if !govalidator.IsBase64(r.Proof) {
		return dErrors.New(dErrors.CodeInvalidInput, "proof must be standard base64")
	}
	proof, err := base64.StdEncoding.DecodeString(r.Proof)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "proof must be standard base64")
	}
	r.proof = proof
	return nil
}

// ParsedRequestID returns the parsed oracle request id.
func (r *DecryptedCountCallback) ParsedRequestID() id.RequestID {
	return r.requestID
}

// ParsedProof returns the decoded proof bytes.
func (r *DecryptedCountCallback) ParsedProof() []byte {
	return r.proof
}
