package product

import (
	"fmt"
	"net/url"
	"strings"

	"splay/entities"
	"splay/pkg/matching"

	"github.com/google/uuid"
)

type CatalogItem struct {
	Name     string
	Brand    string
	Category string
	Price    float64
	Retailer string
}

// SampleCatalog is the demo catalog loaded by the seed command.
var SampleCatalog = []CatalogItem{
	{Name: "Harmony Sofa", Brand: "West Elm", Category: "sofa", Price: 1499.00, Retailer: "West Elm"},
	{Name: "Modern Sectional", Brand: "Wayfair", Category: "sofa", Price: 899.00, Retailer: "Wayfair"},
	{Name: "Velvet Chesterfield", Brand: "CB2", Category: "sofa", Price: 1799.00, Retailer: "CB2"},
	{Name: "Mid-Century Sofa", Brand: "Article", Category: "sofa", Price: 1299.00, Retailer: "Article"},
	{Name: "Sleeper Sofa", Brand: "IKEA", Category: "sofa", Price: 599.00, Retailer: "IKEA"},
	{Name: "L-Shaped Sectional", Brand: "Wayfair", Category: "sofa", Price: 1099.00, Retailer: "Wayfair"},
	{Name: "Leather Sofa", Brand: "West Elm", Category: "sofa", Price: 2199.00, Retailer: "West Elm"},
	{Name: "Modular Sofa", Brand: "Floyd", Category: "sofa", Price: 1895.00, Retailer: "Floyd"},
	{Name: "Linen Sofa", Brand: "Pottery Barn", Category: "sofa", Price: 1599.00, Retailer: "Pottery Barn"},
	{Name: "Tufted Sofa", Brand: "CB2", Category: "sofa", Price: 1399.00, Retailer: "CB2"},

	{Name: "Glass Coffee Table", Brand: "West Elm", Category: "coffee_table", Price: 399.00, Retailer: "West Elm"},
	{Name: "Wooden Coffee Table", Brand: "IKEA", Category: "coffee_table", Price: 199.00, Retailer: "IKEA"},
	{Name: "Marble Coffee Table", Brand: "CB2", Category: "coffee_table", Price: 699.00, Retailer: "CB2"},
	{Name: "Round Coffee Table", Brand: "Article", Category: "coffee_table", Price: 449.00, Retailer: "Article"},
	{Name: "Storage Coffee Table", Brand: "Wayfair", Category: "coffee_table", Price: 299.00, Retailer: "Wayfair"},
	{Name: "Industrial Coffee Table", Brand: "West Elm", Category: "coffee_table", Price: 549.00, Retailer: "West Elm"},
	{Name: "Nesting Coffee Tables", Brand: "CB2", Category: "coffee_table", Price: 399.00, Retailer: "CB2"},
	{Name: "Lift-Top Coffee Table", Brand: "Wayfair", Category: "coffee_table", Price: 329.00, Retailer: "Wayfair"},

	{Name: "Arc Floor Lamp", Brand: "West Elm", Category: "floor_lamp", Price: 299.00, Retailer: "West Elm"},
	{Name: "Tripod Floor Lamp", Brand: "IKEA", Category: "floor_lamp", Price: 89.00, Retailer: "IKEA"},
	{Name: "LED Floor Lamp", Brand: "CB2", Category: "floor_lamp", Price: 349.00, Retailer: "CB2"},
	{Name: "Reading Floor Lamp", Brand: "Article", Category: "floor_lamp", Price: 199.00, Retailer: "Article"},
	{Name: "Modern Floor Lamp", Brand: "Wayfair", Category: "floor_lamp", Price: 159.00, Retailer: "Wayfair"},
	{Name: "Brass Floor Lamp", Brand: "West Elm", Category: "floor_lamp", Price: 399.00, Retailer: "West Elm"},
	{Name: "Corner Floor Lamp", Brand: "CB2", Category: "floor_lamp", Price: 279.00, Retailer: "CB2"},

	{Name: "Ceramic Table Lamp", Brand: "West Elm", Category: "table_lamp", Price: 129.00, Retailer: "West Elm"},
	{Name: "Modern Table Lamp", Brand: "IKEA", Category: "table_lamp", Price: 49.00, Retailer: "IKEA"},
	{Name: "Marble Base Lamp", Brand: "CB2", Category: "table_lamp", Price: 179.00, Retailer: "CB2"},
	{Name: "Brass Table Lamp", Brand: "Article", Category: "table_lamp", Price: 149.00, Retailer: "Article"},
	{Name: "Touch Table Lamp", Brand: "Wayfair", Category: "table_lamp", Price: 79.00, Retailer: "Wayfair"},
	{Name: "USB Table Lamp", Brand: "West Elm", Category: "table_lamp", Price: 99.00, Retailer: "West Elm"},

	{Name: "Wooden Dining Table", Brand: "West Elm", Category: "dining_table", Price: 899.00, Retailer: "West Elm"},
	{Name: "Glass Dining Table", Brand: "IKEA", Category: "dining_table", Price: 399.00, Retailer: "IKEA"},
	{Name: "Marble Dining Table", Brand: "CB2", Category: "dining_table", Price: 1299.00, Retailer: "CB2"},
	{Name: "Extendable Dining Table", Brand: "Article", Category: "dining_table", Price: 999.00, Retailer: "Article"},
	{Name: "Round Dining Table", Brand: "Wayfair", Category: "dining_table", Price: 599.00, Retailer: "Wayfair"},
	{Name: "Farmhouse Dining Table", Brand: "Pottery Barn", Category: "dining_table", Price: 1199.00, Retailer: "Pottery Barn"},

	{Name: "Dining Chair Set", Brand: "West Elm", Category: "chair", Price: 599.00, Retailer: "West Elm"},
	{Name: "Accent Chair", Brand: "IKEA", Category: "chair", Price: 199.00, Retailer: "IKEA"},
	{Name: "Velvet Accent Chair", Brand: "CB2", Category: "chair", Price: 499.00, Retailer: "CB2"},
	{Name: "Office Chair", Brand: "Article", Category: "chair", Price: 349.00, Retailer: "Article"},
	{Name: "Dining Chairs (Set of 4)", Brand: "Wayfair", Category: "chair", Price: 399.00, Retailer: "Wayfair"},
	{Name: "Armchair", Brand: "West Elm", Category: "chair", Price: 699.00, Retailer: "West Elm"},
	{Name: "Folding Chairs", Brand: "IKEA", Category: "chair", Price: 79.00, Retailer: "IKEA"},

	{Name: "Nightstand", Brand: "West Elm", Category: "side_table", Price: 299.00, Retailer: "West Elm"},
	{Name: "End Table", Brand: "IKEA", Category: "side_table", Price: 99.00, Retailer: "IKEA"},
	{Name: "Marble Side Table", Brand: "CB2", Category: "side_table", Price: 349.00, Retailer: "CB2"},
	{Name: "Nesting Tables", Brand: "Article", Category: "side_table", Price: 249.00, Retailer: "Article"},
	{Name: "C-Table", Brand: "Wayfair", Category: "side_table", Price: 129.00, Retailer: "Wayfair"},
	{Name: "Drawer Nightstand", Brand: "West Elm", Category: "side_table", Price: 399.00, Retailer: "West Elm"},

	{Name: "Globe Pendant", Brand: "West Elm", Category: "pendant_light", Price: 199.00, Retailer: "West Elm"},
	{Name: "Industrial Pendant", Brand: "IKEA", Category: "pendant_light", Price: 79.00, Retailer: "IKEA"},
	{Name: "Glass Pendant", Brand: "CB2", Category: "pendant_light", Price: 249.00, Retailer: "CB2"},
	{Name: "Multi-Light Pendant", Brand: "Article", Category: "pendant_light", Price: 399.00, Retailer: "Article"},
	{Name: "Drum Pendant", Brand: "Wayfair", Category: "pendant_light", Price: 159.00, Retailer: "Wayfair"},
	{Name: "Chandelier", Brand: "Pottery Barn", Category: "pendant_light", Price: 599.00, Retailer: "Pottery Barn"},
}

func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}

func retailerHost(retailer string) string {
	return strings.ToLower(strings.ReplaceAll(retailer, " ", "")) + ".com"
}

// ToProduct builds the catalog row for the idx-th (1-based) item.
func (c CatalogItem) ToProduct(idx int) *entities.Product {
	retailerURL := fmt.Sprintf("https://%s/%s", retailerHost(c.Retailer), slug(c.Name))

	return &entities.Product{
		ID:           uuid.New(),
		ExternalID:   fmt.Sprintf("prod_%03d", idx),
		Name:         c.Name,
		Brand:        c.Brand,
		Category:     c.Category,
		Price:        c.Price,
		Currency:     "USD",
		Description:  fmt.Sprintf("%s %s - High quality furniture piece", c.Brand, c.Name),
		ImageURL:     "https://via.placeholder.com/400x400?text=" + url.QueryEscape(c.Name),
		AffiliateURL: retailerURL + "?ref=splay",
		RetailerURL:  retailerURL,
		RetailerName: c.Retailer,
		Embedding:    matching.Embed(matching.ProductText(c.Category, c.Name, c.Brand), matching.EmbeddingDimension),
		InStock:      true,
	}
}
