// Package analysis turns the analyzer's reply into a domain.Analysis.
//
// The reply comes from a remote model and is treated as untrusted data: it is
// decoded as a single JSON document into a fixed schema and validated. Nothing
// in it is ever evaluated.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"meetingrec/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes raw into an Analysis. Any mismatch with the expected shape is
// reported as a recoverable AnalysisFormatError.
func Parse(raw string) (domain.Analysis, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Analysis{}, domain.AnalysisFormatError("parse analysis", errors.New("empty reply"))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var result domain.Analysis
	if err := dec.Decode(&result); err != nil {
		return domain.Analysis{}, domain.AnalysisFormatError("parse analysis", fmt.Errorf("decode json: %w", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Analysis{}, domain.AnalysisFormatError("parse analysis", errors.New("unexpected data after json document"))
	}

	if err := validate.Struct(result); err != nil {
		return domain.Analysis{}, domain.AnalysisFormatError("validate analysis", describe(err))
	}

	for i := range result.ActionItems {
		item := &result.ActionItems[i]
		item.Priority = domain.NormalizePriority(string(item.Priority))
		if item.Dependencies == nil {
			item.Dependencies = []string{}
		}
	}
	return result, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("missing or invalid fields: %s", strings.Join(fields, ", "))
}
