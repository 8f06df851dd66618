package leads

import "time"

// Lead is a stored contact-form inquiry.
type Lead struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Company   *string   `json:"company"`
	Subject   *string   `json:"subject"`
	Message   string    `json:"message"`
	Source    *string   `json:"source"`
	Locale    *string   `json:"locale"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceContactForm tags leads produced by the public contact form.
const SourceContactForm = "contact_form"

// DefaultLocale is applied when a submission carries no locale.
const DefaultLocale = "en"

// CreateLeadRequest is the JSON body of POST /api/contact.
type CreateLeadRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Company *string `json:"company" validate:"omitempty,max=100"`
	Subject *string `json:"subject" validate:"omitempty,max=200,oneof=product support partnership pricing other"`
	Message string  `json:"message" validate:"required,min=10,max=5000"`
	Locale  *string `json:"locale" validate:"omitempty,oneof=en zh"`
}

// CreateLeadData is the enriched record handed to the repository. Optional
// fields left nil are stored as NULL.
type CreateLeadData struct {
	Name      string
	Email     string
	Phone     *string
	Company   *string
	Subject   *string
	Message   string
	Source    *string
	Locale    *string
	IPAddress *string
	UserAgent *string
}

// UpdateLeadData is a partial update; nil fields are left untouched.
type UpdateLeadData struct {
	Status  *string
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Subject *string
	Message *string
}

// ListFilter narrows FindAll results.
type ListFilter struct {
	Status  string
	OrderBy string // "asc" or "desc"; default desc by created_at
	Limit   int
}
