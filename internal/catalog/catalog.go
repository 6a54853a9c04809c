package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Part is one registered part at one diagram position. Parts sharing a name
// within a catalog share Number.
type Part struct {
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Position Position `json:"position"`
	Number   int      `json:"number"`
}

// ImageList is the ordered list of diagram image references of one catalog.
type ImageList []string

// UnmarshalJSON normalizes the single-string form older documents used.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = ImageList{}
		} else {
			*l = ImageList{single}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode image list: %w", err)
	}
	*l = ImageList(list)
	return nil
}

// Catalog is the persisted brand/model/part/image state.
type Catalog struct {
	Brands []string             `json:"brands"`
	Models map[string][]string  `json:"models"`
	Parts  map[string][]Part    `json:"parts"`
	Images map[string]ImageList `json:"modelImages"`
}

// New returns an empty catalog.
func New() *Catalog {
	c := &Catalog{}
	c.Normalize()
	return c
}

// Key returns the catalog key of a brand/model pair.
func Key(brand, model string) string {
	return brand + "-" + model
}

// Normalize replaces nil collections with empty ones.
func (c *Catalog) Normalize() {
	if c.Brands == nil {
		c.Brands = []string{}
	}
	if c.Models == nil {
		c.Models = make(map[string][]string)
	}
	if c.Parts == nil {
		c.Parts = make(map[string][]Part)
	}
	if c.Images == nil {
		c.Images = make(map[string]ImageList)
	}
}

// HasModel reports whether model is registered under brand.
func (c *Catalog) HasModel(brand, model string) bool {
	return slices.Contains(c.Models[brand], model)
}

// prune drops the parts and image entries of key once both are empty.
func (c *Catalog) prune(key string) bool {
	if len(c.Parts[key]) > 0 || len(c.Images[key]) > 0 {
		return false
	}
	delete(c.Parts, key)
	delete(c.Images, key)
	return true
}

// Stats summarizes the catalog contents.
type Stats struct {
	Brands       int `json:"brands"`
	Models       int `json:"models"`
	Diagrams     int `json:"diagrams"`
	PartCatalogs int `json:"partCatalogs"`
	Parts        int `json:"parts"`
}

// Stats counts brands, models, catalogs with diagrams and registered parts.
func (c *Catalog) Stats() Stats {
	s := Stats{Brands: len(c.Brands), PartCatalogs: len(c.Parts)}
	for _, models := range c.Models {
		s.Models += len(models)
	}
	for _, images := range c.Images {
		if len(images) > 0 {
			s.Diagrams++
		}
	}
	for _, parts := range c.Parts {
		s.Parts += len(parts)
	}
	return s
}
