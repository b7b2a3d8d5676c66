package calculations

import "github.com/EngCalc/calc-backend/internal/storage"

// CreateRequest has no userId field. The caller always owns what it creates,
// so a client supplied owner is dropped by the decoder.
type CreateRequest struct {
	Type        string       `json:"type" validate:"required"`
	Name        string       `json:"name" validate:"required"`
	Description *string      `json:"description"`
	Inputs      storage.JSON `json:"inputs" validate:"required"`
	Results     storage.JSON `json:"results" validate:"required"`
	Material    *string      `json:"material"`
}

// UpdateRequest is a partial merge. Absent fields are left alone, a null
// clears description or material, and id, owner and timestamps cannot be
// written.
type UpdateRequest struct {
	Type        storage.Optional[string]       `json:"type"`
	Name        storage.Optional[string]       `json:"name"`
	Description storage.Optional[string]       `json:"description"`
	Inputs      storage.Optional[storage.JSON] `json:"inputs"`
	Results     storage.Optional[storage.JSON] `json:"results"`
	Material    storage.Optional[string]       `json:"material"`
}

func (u UpdateRequest) validate() string {
	switch {
	case u.Type.Set && (u.Type.Value == nil || *u.Type.Value == ""):
		return "type must not be empty"
	case u.Name.Set && (u.Name.Value == nil || *u.Name.Value == ""):
		return "name must not be empty"
	case u.Inputs.IsNull():
		return "inputs must not be null"
	case u.Results.IsNull():
		return "results must not be null"
	}
	return ""
}

// patch assumes validate passed, so required fields are never null here.
func (u UpdateRequest) patch() storage.CalculationPatch {
	return storage.CalculationPatch{
		Type:        u.Type.Value,
		Name:        u.Name.Value,
		Description: u.Description,
		Inputs:      u.Inputs.Value,
		Results:     u.Results.Value,
		Material:    u.Material,
	}
}
