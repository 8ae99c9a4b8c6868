package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/database"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/models"
	"github.com/google/uuid"
)

// ContractService queues finished submissions for the signing worker and
// records the audit trail. It satisfies the session's Sender dependency.
type ContractService struct {
	emailService EmailService
}

func NewContractService(emailService EmailService) *ContractService {
	return &ContractService{emailService: emailService}
}

// SendContract persists the submission as a queued job. The actual delivery
// to the signing provider happens out of process; the caller only learns
// whether queueing succeeded.
func (s *ContractService) SendContract(ctx context.Context, payload models.SendContractPayload) (models.SendContractResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.SendContractResponse{}, fmt.Errorf("encoding contract payload: %w", err)
	}

	jobID := uuid.New().String()
	if err := database.InsertJob(jobID, "contract-send", string(raw)); err != nil {
		return models.SendContractResponse{}, fmt.Errorf("queueing contract send: %w", err)
	}
	if err := database.InsertContractSend(jobID, payload.RecordID, string(payload.ContractType),
		len(payload.Attachments), len(payload.ExtrasInvoice)); err != nil {
		logger.L.Error("Failed to write contract send audit row", "jobId", jobID, "error", err)
		// Leave the job queued but keep the gap visible on the row itself.
		if uerr := database.UpdateJobStatus(jobID, "queued", "audit row missing: "+err.Error()); uerr != nil {
			logger.L.Error("Failed to record audit gap on job", "jobId", jobID, "error", uerr)
		}
	}

	logger.L.Info("Contract send queued", "jobId", jobID, "recordId", payload.RecordID,
		"contractType", payload.ContractType, "attachments", len(payload.Attachments))

	if config.Cfg.NotifyEmail != "" {
		go func() {
			if err := s.emailService.SendContractQueuedEmail(config.Cfg.NotifyEmail, payload.RecordID, jobID); err != nil {
				logger.L.Error("Failed to send contract-queued notification", "jobId", jobID, "error", err)
			}
		}()
	}

	return models.SendContractResponse{Success: true, JobID: jobID}, nil
}

// EnqueueDeskTicket queues a desk-ticket classification job. The job file
// name matches what the pipeline worker watches for.
func (s *ContractService) EnqueueDeskTicket(ticketID string) (models.EnqueueResult, error) {
	jobFile := fmt.Sprintf("desk-ticket-%s", ticketID)
	payload, _ := json.Marshal(map[string]string{"ticketId": ticketID})

	if err := database.InsertJob(uuid.New().String(), jobFile, string(payload)); err != nil {
		return models.EnqueueResult{}, fmt.Errorf("queueing desk ticket %s: %w", ticketID, err)
	}

	logger.L.Info("Desk ticket enqueued", "ticketId", ticketID, "jobFile", jobFile)
	return models.EnqueueResult{
		Status:  "queued",
		Message: fmt.Sprintf("Ticket %s queued for processing", ticketID),
		JobFile: jobFile,
	}, nil
}
