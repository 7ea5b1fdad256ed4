package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessCreateScan = "scan created successfully"
	MessageSuccessGetScan    = "scan retrieved successfully"
	MessageSuccessGetScans   = "scans retrieved successfully"
	MessageSuccessShareScan  = "scan shared successfully"

	MessageFailedCreateScan = "failed to create scan"
	MessageFailedGetScan    = "failed to retrieve scan"
	MessageFailedGetScans   = "failed to retrieve scans"
	MessageFailedDeleteScan = "failed to delete scan"
	MessageFailedShareScan  = "failed to share scan"

	ErrScanNotFound       = errors.New("Scan not found")
	ErrUnauthorizedAccess = errors.New("Not authorized to access this scan")
	ErrFilenameRequired   = errors.New("Filename is required")
	ErrInvalidFileType    = errors.New("Invalid file type. Allowed: jpg, jpeg, png, webp, heic, heif")
	ErrNotAnImage         = errors.New("File must be an image")
	ErrFileTooLarge       = errors.New("File too large. Maximum size: 10MB")
	ErrImageTooSmall      = errors.New("Image too small. Minimum size: 400x400")
	ErrImageTooLarge      = errors.New("Image too large. Maximum size: 4000x4000")
	ErrInvalidImage       = errors.New("Invalid image file")
	ErrScanQuotaExceeded  = errors.New("Monthly scan limit reached. Upgrade to premium for unlimited scans")
	ErrScanProcessing     = errors.New("scan processing failed")
)

const (
	MaxUploadSize = 10 << 20
	MinImageSide  = 400
	MaxImageSide  = 4000
)

type (
	CreateScanRequest struct {
		Image *multipart.FileHeader `form:"file" validate:"required"`
	}

	BBox struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}

	MatchedProduct struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Brand        string  `json:"brand"`
		Price        float64 `json:"price"`
		Currency     string  `json:"currency"`
		ImageURL     string  `json:"image_url,omitempty"`
		RetailerName string  `json:"retailer_name"`
		RetailerURL  string  `json:"retailer_url,omitempty"`
		AffiliateURL string  `json:"affiliate_url,omitempty"`
	}

	ProductMatchResponse struct {
		Rank            int            `json:"rank"`
		IsBudget        bool           `json:"is_budget"`
		SimilarityScore float64        `json:"similarity_score"`
		Product         MatchedProduct `json:"product"`
	}

	DetectedItemResponse struct {
		ID         string                 `json:"id"`
		Category   string                 `json:"category"`
		Confidence float64                `json:"confidence"`
		BBox       BBox                   `json:"bbox"`
		CropURL    string                 `json:"crop_url,omitempty"`
		Matches    []ProductMatchResponse `json:"matches"`
	}

	ScanResponse struct {
		ID               string                 `json:"id"`
		UserID           string                 `json:"user_id,omitempty"`
		Status           string                 `json:"status"`
		ImageURL         string                 `json:"image_url,omitempty"`
		ThumbnailURL     string                 `json:"thumbnail_url,omitempty"`
		Error            string                 `json:"error,omitempty"`
		ItemCount        int                    `json:"item_count"`
		ProcessingTimeMs *int64                 `json:"processing_time_ms,omitempty"`
		Items            []DetectedItemResponse `json:"items"`
		CreatedAt        time.Time              `json:"created_at"`
		UpdatedAt        time.Time              `json:"updated_at"`
		CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	}

	ScanListItemResponse struct {
		ID           string    `json:"id"`
		ThumbnailURL string    `json:"thumbnail_url,omitempty"`
		Status       string    `json:"status"`
		ItemCount    int       `json:"item_count"`
		CreatedAt    time.Time `json:"created_at"`
	}

	ScanListResponse struct {
		Scans []ScanListItemResponse `json:"scans"`
		Total int64                  `json:"total"`
		Skip  int                    `json:"skip"`
		Limit int                    `json:"limit"`
	}

	ShareScanResponse struct {
		ShareToken string `json:"share_token"`
		SharePath  string `json:"share_path"`
	}
)
