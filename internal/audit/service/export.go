package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/golang/snappy"

	"github.com/pullpaylabs/pullpay/internal/audit/domain"
)

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	if req.Format != domain.ExportFormatCSV && req.Format != domain.ExportFormatJSON {
		return nil, domain.ErrInvalidFormat
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrInvalidRange
	}

	query := s.db.WithContext(ctx).Model(&domain.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate, req.EndDate)
	if len(req.Actions) > 0 {
		query = query.Where("action IN ?", req.Actions)
	}

	var logs []domain.AuditLog
	if err := query.Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	switch req.Format {
	case domain.ExportFormatCSV:
		data, err = formatCSV(logs)
	case domain.ExportFormatJSON:
		data, err = formatJSON(logs)
	}
	if err != nil {
		return nil, err
	}

	// The checksum covers the logical content, before any compression.
	hash := sha256.Sum256(data)
	result := &domain.ExportResult{
		Data:     data,
		Checksum: hex.EncodeToString(hash[:]),
		Format:   req.Format,
		Count:    len(logs),
	}
	if req.Compress {
		result.Data = snappy.Encode(nil, data)
		result.Compressed = true
	}
	return result, nil
}

func formatCSV(logs []domain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"actor",
		"action",
		"target_type",
		"target_id",
		"ip_address",
		"metadata",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, entry := range logs {
		metadataJSON, _ := json.Marshal(entry.Metadata)
		row := []string{
			entry.CreatedAt.Format(time.RFC3339),
			entry.Actor,
			entry.Action,
			entry.TargetType,
			entry.TargetID,
			entry.IPAddress,
			string(metadataJSON),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatJSON(logs []domain.AuditLog) ([]byte, error) {
	type exportRecord struct {
		Timestamp  string         `json:"timestamp"`
		Actor      string         `json:"actor"`
		Action     string         `json:"action"`
		TargetType string         `json:"target_type"`
		TargetID   string         `json:"target_id,omitempty"`
		IPAddress  string         `json:"ip_address,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}

	records := make([]exportRecord, 0, len(logs))
	for _, entry := range logs {
		records = append(records, exportRecord{
			Timestamp:  entry.CreatedAt.Format(time.RFC3339),
			Actor:      entry.Actor,
			Action:     entry.Action,
			TargetType: entry.TargetType,
			TargetID:   entry.TargetID,
			IPAddress:  entry.IPAddress,
			Metadata:   entry.Metadata,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}
