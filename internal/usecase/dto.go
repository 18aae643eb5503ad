package usecase

import "github.com/xavierca1/leadflow/internal/entity"

const SubmitLeadMessage = "Your number has been registered successfully!"

type SubmitLeadInput struct {
	Phone    string
	Metadata entity.Metadata
}

type SubmitLeadOutput struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	TaskID  *string `json:"task_id"`
}
