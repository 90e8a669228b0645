package models

// Field types accepted in a tenant's estimate form schema.
const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypePhone    = "phone"
	FieldTypeTextarea = "textarea"
	FieldTypeSelect   = "select"
	FieldTypeCheckbox = "checkbox"
	FieldTypeDate     = "date"
	FieldTypeNumber   = "number"
)

// FieldConfig is one entry in a tenant's ordered estimate field schema.
type FieldConfig struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Required   bool     `json:"required"`
	Options    []string `json:"options,omitempty"`
	HelperText string   `json:"helperText,omitempty"`
}

// DefaultFieldConfig applies to tenants without a stored schema.
func DefaultFieldConfig() []FieldConfig {
	return []FieldConfig{
		{ID: "preferredDate", Label: "Preferred Date", Type: FieldTypeDate, Required: false},
		{ID: "pets", Label: "Do you have pets?", Type: FieldTypeSelect, Options: []string{"No", "Dog", "Cat", "Other"}, Required: false},
		{ID: "homeSize", Label: "Home Size (sq ft)", Type: FieldTypeNumber, Required: false},
		{ID: "serviceType", Label: "Service Type", Type: FieldTypeSelect, Options: []string{"One-time", "Recurring", "Move-out"}, Required: true},
		{ID: "notes", Label: "Additional Notes", Type: FieldTypeTextarea, Required: false},
	}
}
