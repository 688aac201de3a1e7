package dto

// ReceiptUploadURLRequest asks for a presigned PUT URL for one receipt image.
type ReceiptUploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp application/pdf"`
}

type ReceiptUploadURLResponse struct {
	UploadURL   string `json:"upload_url"`
	StoragePath string `json:"storage_path"`
}

// ReceiptExtractRequest hands a previously uploaded receipt to the
// extraction service together with the user's category taxonomy.
type ReceiptExtractRequest struct {
	StoragePath string   `json:"storage_path" validate:"required,max=500"`
	Categories  []string `json:"categories" validate:"omitempty,dive,max=60"`
}

// ExtractedTransaction is the structured result returned by the extraction
// service. This shape is a stable contract with the UI.
type ExtractedTransaction struct {
	Description string `json:"description"`
	Merchant    string `json:"merchant,omitempty"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"`
}
