package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fields(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateSubmitLeadInput(t *testing.T) {
	valid := SubmitLeadInput{Name: "Ada", Email: "ada@example.com", Phone: "(555) 010-2030", Budget: 0, ServiceType: "Web"}
	assert.Empty(t, ValidateSubmitLeadInput(valid))

	assert.Equal(t, []string{"name", "email", "phone", "serviceType"}, fields(ValidateSubmitLeadInput(SubmitLeadInput{})))

	bad := valid
	bad.Phone = "12-34"
	bad.Budget = -1
	assert.Equal(t, []string{"phone"}, fields(ValidateSubmitLeadInput(bad)), "budget is triaged, not validated")
}

func TestValidateCreateBookingInput(t *testing.T) {
	assert.Empty(t, ValidateCreateBookingInput(CreateBookingInput{LeadID: "l", Date: "2026-07-01", TimeSlot: "05:00 PM"}))
	assert.Equal(t, []string{"leadId", "date", "timeSlot"}, fields(ValidateCreateBookingInput(CreateBookingInput{})))
}

func TestTriageRules_Decide(t *testing.T) {
	r := TriageRules{RejectBelow: 100, QualifyAbove: 200}
	assert.Equal(t, "REJECTED", string(r.Decide(99)))
	assert.Equal(t, "NEW", string(r.Decide(100)))
	assert.Equal(t, "NEW", string(r.Decide(200)))
	assert.Equal(t, "QUALIFIED", string(r.Decide(201)))
}
