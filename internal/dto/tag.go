package dto

import (
	"encoding/json"

	"github.com/iliyamo/crm-backend/internal/model"
)

// UpdateTagsRequest is the body of PUT /api/tags/:id. tags may be a single
// string or an array.
type UpdateTagsRequest struct {
	Tags   StringList `json:"tags" validate:"required,min=1"`
	Action string     `json:"action" validate:"required,oneof=add remove"`
}

func (r *UpdateTagsRequest) Validate() error {
	r.Tags = CleanTags(r.Tags)
	return check(r)
}

func (r *UpdateTagsRequest) TagAction() model.TagAction { return model.TagAction(r.Action) }

// StringList accepts either a JSON string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}
