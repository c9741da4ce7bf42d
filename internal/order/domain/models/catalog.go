package models

type Food struct {
	ID           string `json:"_id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Description  string `json:"description,omitempty" bson:"description,omitempty"`
	Price        int64  `json:"price" bson:"price"`
	Category     string `json:"category,omitempty" bson:"category,omitempty"`
	IsBestSeller bool   `json:"isBestSeller" bson:"is_best_seller"`
	IsAvailable  bool   `json:"isAvailable" bson:"is_available"`
	ImageURL     string `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	CreatedAt    int64  `json:"createdAt" bson:"created_at"`
}

// FoodPatch holds the fields an admin update may change. Nil means unchanged.
type FoodPatch struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Price        *int64  `json:"price,omitempty"`
	Category     *string `json:"category,omitempty"`
	IsBestSeller *bool   `json:"isBestSeller,omitempty"`
	IsAvailable  *bool   `json:"isAvailable,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
}

func (p FoodPatch) Apply(f Food) Food {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Price != nil {
		f.Price = *p.Price
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.IsBestSeller != nil {
		f.IsBestSeller = *p.IsBestSeller
	}
	if p.IsAvailable != nil {
		f.IsAvailable = *p.IsAvailable
	}
	if p.ImageURL != nil {
		f.ImageURL = *p.ImageURL
	}
	return f
}

type Table struct {
	ID         string `json:"_id" bson:"_id"`
	Number     int    `json:"number" bson:"number"`
	IsOccupied bool   `json:"isOccupied" bson:"is_occupied"`
	CreatedAt  int64  `json:"createdAt" bson:"created_at"`
}
