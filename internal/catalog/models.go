package catalog

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Brands returns the registered brands in insertion order.
func (r *Registry) Brands() []string {
	return r.catalog.Brands
}

// Models returns the models of brand in insertion order.
func (r *Registry) Models(brand string) []string {
	return r.catalog.Models[brand]
}

// AddBrand registers a new brand with no models.
func (r *Registry) AddBrand(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: brand name is required", ErrInvalidPart)
	}
	if slices.Contains(r.catalog.Brands, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateBrand, name)
	}

	r.catalog.Brands = append(r.catalog.Brands, name)
	r.catalog.Models[name] = []string{}

	r.logger.Info("Brand added", zap.String("brand", name))
	return nil
}

// AddModel registers model under brand and returns its catalog key. It
// reports created=false when the model already existed.
func (r *Registry) AddModel(brand, model string) (key string, created bool, err error) {
	brand = strings.TrimSpace(brand)
	model = strings.TrimSpace(model)
	if brand == "" || model == "" {
		return "", false, fmt.Errorf("%w: brand and model are required", ErrInvalidPart)
	}
	if !slices.Contains(r.catalog.Brands, brand) {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownBrand, brand)
	}

	key = Key(brand, model)
	if r.catalog.HasModel(brand, model) {
		return key, false, nil
	}

	r.catalog.Models[brand] = append(r.catalog.Models[brand], model)
	if _, ok := r.catalog.Parts[key]; !ok {
		r.catalog.Parts[key] = []Part{}
	}

	r.logger.Info("Model added", zap.String("brand", brand), zap.String("model", model))
	return key, true, nil
}

// Images returns the diagram image references of key.
func (r *Registry) Images(key string) ImageList {
	return r.catalog.Images[key]
}

// AddImage appends an image reference to key and returns the new count.
func (r *Registry) AddImage(key, ref string) int {
	r.catalog.Images[key] = append(r.catalog.Images[key], ref)
	return len(r.catalog.Images[key])
}

// RemoveImage drops image i of key and returns its reference. The catalog
// entry is deleted when neither parts nor images remain.
func (r *Registry) RemoveImage(key string, i int) (string, error) {
	images := r.catalog.Images[key]
	if i < 0 || i >= len(images) {
		return "", fmt.Errorf("%w: %d", ErrImageOutOfRange, i)
	}

	ref := images[i]
	r.catalog.Images[key] = slices.Delete(images, i, i+1)
	if len(r.catalog.Images[key]) == 0 {
		delete(r.catalog.Images, key)
	}
	pruned := r.catalog.prune(key)

	r.logger.Info("Image removed",
		zap.String("catalog", key),
		zap.Int("index", i),
		zap.Bool("catalog_pruned", pruned))
	return ref, nil
}
