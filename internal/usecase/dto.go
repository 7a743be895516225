package usecase

type SubmitLeadInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Budget      int64  `json:"budget"`
	ServiceType string `json:"serviceType"`
}

type UpdateLeadStatusInput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CreateBookingInput struct {
	LeadID   string `json:"leadId"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type CredentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	AccessToken string `json:"access_token"`
}

type SignupOutput struct {
	Email string `json:"email"`
}
