package diagram

import (
	"fmt"

	"github.com/data-power-io/partsquote/internal/catalog"
)

// Tile is one diagram image shown in a brand's diagram index.
type Tile struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Key        string `json:"key"`
	ImageIndex int    `json:"imageIndex"`
	Image      string `json:"image"`
	Label      string `json:"label"`
	PartCount  int    `json:"partCount"`
}

// Index lists one tile per diagram image of every model of brand that has
// at least one image.
func Index(c *catalog.Catalog, brand string) []Tile {
	var tiles []Tile
	for _, model := range c.Models[brand] {
		key := catalog.Key(brand, model)
		images := c.Images[key]
		for i, img := range images {
			label := model
			if len(images) > 1 {
				label = fmt.Sprintf("%s (%d/%d)", model, i+1, len(images))
			}
			tiles = append(tiles, Tile{
				Brand:      brand,
				Model:      model,
				Key:        key,
				ImageIndex: i,
				Image:      img,
				Label:      label,
				PartCount:  len(c.Parts[key]),
			})
		}
	}
	return tiles
}
