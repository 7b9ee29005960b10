package domain

import "math"

// Product is the catalog view the core needs: price, whether it can be
// bought, and the rating aggregate maintained by the rating service.
type Product struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Active       bool    `json:"active"`
	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
}

// AmountMinor returns the price in minor currency units (paise).
func (p *Product) AmountMinor() int64 {
	return int64(math.Round(p.Price * 100))
}

// Purchasable reports whether an order may be created for the product.
func (p *Product) Purchasable() bool {
	return p.Active && p.AmountMinor() > 0
}

// Downloadable file slots of a product.
const (
	FileTypeSourceCode    = "source_code"
	FileTypeDocumentation = "documentation"
	FileTypeProjectReport = "project_report"
	FileTypeDemoVideo     = "demo_video"
	FileTypeReadme        = "readme"
)

// FileTypes returns the file slots in display order.
func FileTypes() []string {
	return []string{
		FileTypeSourceCode,
		FileTypeDocumentation,
		FileTypeProjectReport,
		FileTypeDemoVideo,
		FileTypeReadme,
	}
}

// IsValidFileType checks if t names a known file slot.
func IsValidFileType(t string) bool {
	for _, ft := range FileTypes() {
		if ft == t {
			return true
		}
	}
	return false
}

// ProductFiles holds the storage paths of a product's downloadable assets.
// An empty path means the slot has no file.
type ProductFiles struct {
	ProductID     string `json:"product_id"`
	SourceCode    string `json:"source_code"`
	Documentation string `json:"documentation"`
	ProjectReport string `json:"project_report"`
	DemoVideo     string `json:"demo_video"`
	Readme        string `json:"readme"`
}

// Path returns the stored path for fileType, or "" if the slot is empty or
// unknown.
func (f *ProductFiles) Path(fileType string) string {
	switch fileType {
	case FileTypeSourceCode:
		return f.SourceCode
	case FileTypeDocumentation:
		return f.Documentation
	case FileTypeProjectReport:
		return f.ProjectReport
	case FileTypeDemoVideo:
		return f.DemoVideo
	case FileTypeReadme:
		return f.Readme
	default:
		return ""
	}
}

// Available returns the non-empty slots keyed by file type.
func (f *ProductFiles) Available() map[string]string {
	out := make(map[string]string)
	for _, ft := range FileTypes() {
		if p := f.Path(ft); p != "" {
			out[ft] = p
		}
	}
	return out
}
