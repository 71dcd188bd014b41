package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// ReportFileName is the fixed batch report name in the output root.
const ReportFileName = "processing_report.json"

// WriteReport persists the batch report to its fixed location under dir.
func WriteReport(report *route.BatchReport, dir string) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "cannot encode batch report")
	}
	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeOutputDirError, "cannot write batch report")
	}
	return nil
}

// ReadReport loads a previously written batch report, used by tests and by
// tooling that post-processes run output.
func ReadReport(dir string) (*route.BatchReport, error) {
	payload, err := os.ReadFile(filepath.Join(dir, ReportFileName))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "batch report not found")
	}
	var report route.BatchReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "cannot decode batch report")
	}
	return &report, nil
}
