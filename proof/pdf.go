package proof

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFReport describes a validated PDF artifact.
type PDFReport struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
	Bytes int64  `json:"bytes"`
}

// VerifyPDF checks that path holds a readable, structurally valid PDF and
// reports its page count. The file is read fully so truncated downloads fail
// here rather than in a viewer later.
func VerifyPDF(path string) (*PDFReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("proof: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("proof: %s is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("proof: open %s: %w", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("proof: validate %s: %w", path, err)
	}
	if ctx.PageCount < 1 {
		return nil, fmt.Errorf("proof: %s has no pages", path)
	}

	return &PDFReport{Path: path, Pages: ctx.PageCount, Bytes: info.Size()}, nil
}
