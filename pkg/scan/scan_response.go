package scan

import (
	"splay/domain"
	"splay/entities"
)

func ToScanResponse(scan *entities.Scan) domain.ScanResponse {
	items := make([]domain.DetectedItemResponse, 0, len(scan.Items))
	for _, item := range scan.Items {
		items = append(items, toItemResponse(item))
	}

	return domain.ScanResponse{
		ID:               scan.ID.String(),
		UserID:           scan.UserID.String(),
		Status:           scan.Status,
		ImageURL:         scan.ImageURL,
		ThumbnailURL:     scan.ThumbnailURL,
		Error:            scan.ErrorMessage,
		ItemCount:        scan.ItemCount,
		ProcessingTimeMs: scan.ProcessingTimeMs,
		Items:            items,
		CreatedAt:        scan.CreatedAt,
		UpdatedAt:        scan.UpdatedAt,
		CompletedAt:      scan.CompletedAt,
	}
}

func toItemResponse(item *entities.DetectedItem) domain.DetectedItemResponse {
	matches := make([]domain.ProductMatchResponse, 0, len(item.Matches))
	for _, m := range item.Matches {
		if m.Product == nil {
			continue
		}
		matches = append(matches, domain.ProductMatchResponse{
			Rank:            m.Rank,
			IsBudget:        m.IsBudgetAlternative,
			SimilarityScore: m.SimilarityScore,
			Product: domain.MatchedProduct{
				ID:           m.Product.ID.String(),
				Name:         m.Product.Name,
				Brand:        m.Product.Brand,
				Price:        m.Product.Price,
				Currency:     m.Product.Currency,
				ImageURL:     m.Product.ImageURL,
				RetailerName: m.Product.RetailerName,
				RetailerURL:  m.Product.RetailerURL,
				AffiliateURL: m.Product.AffiliateURL,
			},
		})
	}

	return domain.DetectedItemResponse{
		ID:         item.ID.String(),
		Category:   item.Category,
		Confidence: item.Confidence,
		BBox: domain.BBox{
			X: item.BBoxX,
			Y: item.BBoxY,
			W: item.BBoxWidth,
			H: item.BBoxHeight,
		},
		CropURL: item.CropURL,
		Matches: matches,
	}
}

func toListItemResponse(scan *entities.Scan) domain.ScanListItemResponse {
	return domain.ScanListItemResponse{
		ID:           scan.ID.String(),
		ThumbnailURL: scan.ThumbnailURL,
		Status:       scan.Status,
		ItemCount:    scan.ItemCount,
		CreatedAt:    scan.CreatedAt,
	}
}

func isTerminal(status string) bool {
	return status == entities.ScanStatusDone || status == entities.ScanStatusFailed
}
