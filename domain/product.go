package domain

import "errors"

var (
	MessageSuccessGetProducts = "products retrieved successfully"
	MessageSuccessGetProduct  = "product retrieved successfully"

	MessageFailedGetProducts = "failed to retrieve products"
	MessageFailedGetProduct  = "failed to retrieve product"

	ErrProductNotFound = errors.New("product not found")
	ErrInvalidCategory = errors.New("invalid category")
)

type (
	ProductResponse struct {
		ID           string  `json:"id"`
		ExternalID   string  `json:"external_id"`
		Name         string  `json:"name"`
		Brand        string  `json:"brand"`
		Category     string  `json:"category"`
		Price        float64 `json:"price"`
		Currency     string  `json:"currency"`
		ImageURL     string  `json:"image_url"`
		AffiliateURL string  `json:"affiliate_url"`
		RetailerURL  string  `json:"retailer_url"`
		RetailerName string  `json:"retailer_name"`
		InStock      bool    `json:"in_stock"`
	}
)
