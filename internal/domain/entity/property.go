package entity

import "sort"

type PropertyImage struct {
	URL          string `json:"url" firestore:"url" yaml:"url"`
	DisplayOrder int    `json:"display_order" firestore:"displayOrder" yaml:"display_order"`
}

type Property struct {
	ID      string          `json:"id" firestore:"id" yaml:"id"`
	OwnerID string          `json:"owner_id" firestore:"ownerId" yaml:"owner_id"`
	Title   string          `json:"title" firestore:"title" yaml:"title"`
	Images  []PropertyImage `json:"images" firestore:"images" yaml:"images"`
}

// PropertySummary is the read-only view embedded in conversation responses.
type PropertySummary struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Image *PropertyImage `json:"image,omitempty"`
}

// Summary keeps only the first image by display order.
func (p *Property) Summary() *PropertySummary {
	summary := &PropertySummary{ID: p.ID, Title: p.Title}
	if len(p.Images) == 0 {
		return summary
	}

	images := make([]PropertyImage, len(p.Images))
	copy(images, p.Images)
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].DisplayOrder < images[j].DisplayOrder
	})
	summary.Image = &images[0]
	return summary
}
