package response

import (
	"time"

	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

type ReplacementResponse struct {
	Success           bool       `json:"success"`
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	Status            string     `json:"status"`
	Motivo            string     `json:"motivo"`
	Resposta          *string    `json:"resposta,omitempty"`
	Tentativas        int32      `json:"tentativas"`
	DataSolicitacao   time.Time  `json:"data_solicitacao"`
	DataLimite        time.Time  `json:"data_limite"`
	DataProcessamento *time.Time `json:"data_processamento,omitempty"`
	Existing          bool       `json:"existing,omitempty"`
}

func FromReplacementRM(rm *readmodel.ReplacementRM) ReplacementResponse {
	return ReplacementResponse{
		Success:           true,
		ID:                rm.ID,
		OrderID:           rm.OrderID,
		Status:            rm.Status,
		Motivo:            rm.Motivo,
		Resposta:          rm.Resposta,
		Tentativas:        rm.Tentativas,
		DataSolicitacao:   rm.DataSolicitacao,
		DataLimite:        rm.DataLimite,
		DataProcessamento: rm.DataProcessamento,
		Existing:          rm.Existing,
	}
}

type ReplacementStatsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func FromReplacementStatsRM(rm *readmodel.ReplacementStatsRM) ReplacementStatsResponse {
	return ReplacementStatsResponse{
		Total:      rm.Total,
		Pending:    rm.Pending,
		Processing: rm.Processing,
		Completed:  rm.Completed,
		Failed:     rm.Failed,
	}
}
