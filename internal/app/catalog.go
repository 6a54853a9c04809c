package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/store"
	"github.com/data-power-io/partsquote/libs/metrics"
)

// requireModel returns the catalog key of a registered model. The caller
// holds the lock.
func (c *Coordinator) requireModel(brand, model string) (string, error) {
	if !c.record.HasModel(brand, model) {
		return "", fmt.Errorf("%w: %s", catalog.ErrUnknownCatalog, catalog.Key(brand, model))
	}
	return catalog.Key(brand, model), nil
}

// Brands lists the registered brands.
func (c *Coordinator) Brands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.registry.Brands())
}

// Models lists the models of brand.
func (c *Coordinator) Models(brand string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !slices.Contains(c.registry.Brands(), brand) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownBrand, brand)
	}
	return slices.Clone(c.registry.Models(brand)), nil
}

// AddBrand registers a brand.
func (c *Coordinator) AddBrand(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.registry.AddBrand(name)
	metrics.RecordPartOperation("add_brand", err)
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// AddModel registers a model and, when image is not empty, its first
// diagram image.
func (c *Coordinator) AddModel(ctx context.Context, brand, model string, image []byte) (string, error) {
	var ref string
	if len(image) > 0 {
		var err error
		if ref, err = c.upload(ctx, brand, model, image); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key, _, err := c.registry.AddModel(brand, model)
	metrics.RecordPartOperation("add_model", err)
	if err != nil {
		c.discard(ctx, ref)
		return "", err
	}
	if ref != "" {
		c.registry.AddImage(key, ref)
	}
	c.persist(ctx)
	return key, nil
}

// Images lists the diagram images of a model.
func (c *Coordinator) Images(brand, model string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.requireModel(brand, model)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.registry.Images(key)), nil
}

// AddImage uploads another diagram image for a model and returns its
// reference and the model's image count.
func (c *Coordinator) AddImage(ctx context.Context, brand, model string, image []byte) (string, int, error) {
	if len(image) == 0 {
		return "", 0, fmt.Errorf("%w: image is empty", catalog.ErrInvalidPart)
	}
	c.mu.RLock()
	_, err := c.requireModel(brand, model)
	c.mu.RUnlock()
	if err != nil {
		return "", 0, err
	}

	ref, err := c.upload(ctx, brand, model, image)
	if err != nil {
		return "", 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.requireModel(brand, model)
	if err != nil {
		c.discard(ctx, ref)
		return "", 0, err
	}
	n := c.registry.AddImage(key, ref)
	c.persist(ctx)
	return ref, n, nil
}

// ReplaceImage swaps image i of a model for a new upload and deletes the
// old object.
func (c *Coordinator) ReplaceImage(ctx context.Context, brand, model string, i int, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: image is empty", catalog.ErrInvalidPart)
	}
	ref, err := c.upload(ctx, brand, model, image)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	old, err := c.swapImage(brand, model, i, ref)
	if err == nil {
		c.persist(ctx)
	}
	c.mu.Unlock()

	if err != nil {
		c.discard(ctx, ref)
		return "", err
	}
	c.discard(ctx, old)
	return ref, nil
}

func (c *Coordinator) swapImage(brand, model string, i int, ref string) (string, error) {
	key, err := c.requireModel(brand, model)
	if err != nil {
		return "", err
	}
	images := c.registry.Images(key)
	if i < 0 || i >= len(images) {
		return "", fmt.Errorf("%w: %d", catalog.ErrImageOutOfRange, i)
	}
	old := images[i]
	images[i] = ref
	return old, nil
}

// RemoveImage deletes image i of a model. The catalog entry goes away with
// its last image only if it has no parts left either.
func (c *Coordinator) RemoveImage(ctx context.Context, brand, model string, i int) error {
	c.mu.Lock()
	key, err := c.requireModel(brand, model)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ref, err := c.registry.RemoveImage(key, i)
	metrics.RecordPartOperation("remove_image", err)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.persist(ctx)
	c.mu.Unlock()

	c.discard(ctx, ref)
	return nil
}

func (c *Coordinator) upload(ctx context.Context, brand, model string, image []byte) (string, error) {
	objectPath := store.ImagePath(brand, model, store.ExtensionFor(image), c.now())
	ref, err := c.images.Upload(ctx, image, objectPath)
	if err != nil {
		return "", fmt.Errorf("failed to upload diagram image: %w", err)
	}
	return ref, nil
}

// discard deletes the stored object behind ref. Failures are logged only.
func (c *Coordinator) discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	objectPath, ok := c.images.PathFromURL(ref)
	if !ok {
		return
	}
	if err := c.images.Delete(ctx, objectPath); err != nil {
		c.logger.Warn("Failed to delete diagram image", zap.String("path", objectPath), zap.Error(err))
	}
}

// Parts lists the parts of a model.
func (c *Coordinator) Parts(brand, model string) ([]catalog.Part, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.requireModel(brand, model)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.registry.Parts(key)), nil
}

// AddPart registers a part at the requested positions of a model.
func (c *Coordinator) AddPart(ctx context.Context, brand, model string, req catalog.AddPartRequest) (catalog.AddPartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return catalog.AddPartResult{}, err
	}
	res, err := c.registry.AddPart(key, req)
	metrics.RecordPartOperation("add_part", err, rejectionReasons(res)...)
	if err != nil {
		return res, err
	}
	if len(res.Added) > 0 {
		c.persist(ctx)
	}
	return res, nil
}

func rejectionReasons(res catalog.AddPartResult) []string {
	reasons := make([]string, 0, len(res.Rejected))
	for _, rej := range res.Rejected {
		switch {
		case errors.Is(rej, catalog.ErrInvalidPosition):
			reasons = append(reasons, "invalid")
		case errors.Is(rej, catalog.ErrBaseCollision):
			reasons = append(reasons, "base_collision")
		case errors.Is(rej, catalog.ErrDuplicateSubPosition):
			reasons = append(reasons, "duplicate")
		default:
			reasons = append(reasons, "other")
		}
	}
	return reasons
}

// RemoveParts deletes parts of a model by index.
func (c *Coordinator) RemoveParts(ctx context.Context, brand, model string, indices []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return err
	}
	err = c.registry.RemoveParts(key, indices)
	metrics.RecordPartOperation("remove_parts", err)
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// EditPart replaces the name, price and position of one part.
func (c *Coordinator) EditPart(ctx context.Context, brand, model string, i int, name string, price int64, position string) (catalog.Part, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return catalog.Part{}, err
	}
	p, err := c.registry.EditPart(key, i, name, price, position)
	metrics.RecordPartOperation("edit", err)
	if err != nil {
		return catalog.Part{}, err
	}
	c.persist(ctx)
	return p, nil
}

// RenamePartGroup renames and re-prices the parts at indices.
func (c *Coordinator) RenamePartGroup(ctx context.Context, brand, model string, indices []int, name string, price int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireModel(brand, model)
	if err != nil {
		return err
	}
	err = c.registry.RenamePartGroup(key, indices, name, price)
	metrics.RecordPartOperation("rename_group", err)
	if err != nil {
		return err
	}
	c.persist(ctx)
	return nil
}

// Groups lists the parts of a model grouped by name.
func (c *Coordinator) Groups(brand, model string) ([]catalog.PartGroup, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.requireModel(brand, model)
	if err != nil {
		return nil, err
	}
	return c.registry.GroupByName(key), nil
}

// DiagramIndex lists the diagram tiles of brand.
func (c *Coordinator) DiagramIndex(brand string) []diagram.Tile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return diagram.Index(&c.record.Catalog, brand)
}
