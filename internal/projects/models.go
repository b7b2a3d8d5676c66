package projects

import "github.com/EngCalc/calc-backend/internal/storage"

type CreateRequest struct {
	Name         string                `json:"name" validate:"required"`
	Description  *string               `json:"description"`
	Calculations []string              `json:"calculations"`
	Status       storage.ProjectStatus `json:"status" validate:"omitempty,oneof=in_progress complete archived"`
}

// UpdateRequest overwrites only the fields present in the body; a null
// description clears it. Calculation ids are not checked against existing
// calculations.
type UpdateRequest struct {
	Name         storage.Optional[string]                `json:"name"`
	Description  storage.Optional[string]                `json:"description"`
	Calculations storage.Optional[[]string]              `json:"calculations"`
	Status       storage.Optional[storage.ProjectStatus] `json:"status"`
}

func (u UpdateRequest) validate() string {
	switch {
	case u.Name.Set && (u.Name.Value == nil || *u.Name.Value == ""):
		return "name must not be empty"
	case u.Calculations.IsNull():
		return "calculations must not be null"
	case u.Status.Set && (u.Status.Value == nil || !u.Status.Value.Valid()):
		return "status must be one of: in_progress complete archived"
	}
	return ""
}

func (u UpdateRequest) patch() storage.ProjectPatch {
	return storage.ProjectPatch{
		Name:         u.Name.Value,
		Description:  u.Description,
		Calculations: u.Calculations.Value,
		Status:       u.Status.Value,
	}
}
