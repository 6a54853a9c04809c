package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/quote"
)

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Stats())
}

func (h *Handler) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Settings())
}

func (h *Handler) handleSetLaborRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LaborRate int64 `json:"laborRate"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.coord.SetLaborRate(r.Context(), req.LaborRate); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.coord.Settings())
}

func (h *Handler) handleSetShop(w http.ResponseWriter, r *http.Request) {
	var info quote.ShopInfo
	if err := readJSON(w, r, &info); err != nil {
		h.writeError(w, err)
		return
	}
	h.coord.SetShopInfo(r.Context(), info)
	writeJSON(w, http.StatusOK, h.coord.Settings())
}

func (h *Handler) handleSetCustomer(w http.ResponseWriter, r *http.Request) {
	var info quote.CustomerInfo
	if err := readJSON(w, r, &info); err != nil {
		h.writeError(w, err)
		return
	}
	h.coord.SetCustomerInfo(r.Context(), info)
	writeJSON(w, http.StatusOK, h.coord.Settings())
}

func (h *Handler) handleBrands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.coord.Brands()))
}

func (h *Handler) handleAddBrand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.coord.AddBrand(r.Context(), req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.coord.Models(r.PathValue("brand"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(models))
}

func (h *Handler) handleAddModel(w http.ResponseWriter, r *http.Request) {
	model, image, err := readImage(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	key, err := h.coord.AddModel(r.Context(), r.PathValue("brand"), model, image)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "model": model})
}

func (h *Handler) handleDiagramIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.DiagramIndex(r.PathValue("brand")))
}

func (h *Handler) handleImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.coord.Images(r.PathValue("brand"), r.PathValue("model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(images))
}

type imageResponse struct {
	Image string `json:"image"`
	Count int    `json:"count,omitempty"`
}

func (h *Handler) handleAddImage(w http.ResponseWriter, r *http.Request) {
	_, image, err := readImage(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ref, n, err := h.coord.AddImage(r.Context(), r.PathValue("brand"), r.PathValue("model"), image)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{Image: ref, Count: n})
}

func (h *Handler) handleReplaceImage(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "index")
	if err != nil {
		h.writeError(w, err)
		return
	}
	_, image, err := readImage(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ref, err := h.coord.ReplaceImage(r.Context(), r.PathValue("brand"), r.PathValue("model"), i, image)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: ref})
}

func (h *Handler) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "index")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.coord.RemoveImage(r.Context(), r.PathValue("brand"), r.PathValue("model"), i); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.coord.Parts(r.PathValue("brand"), r.PathValue("model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(parts))
}

// editPartRequest replaces one part. Position uses the "x, y[-sub]" form.
type editPartRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Position string `json:"position"`
}

func (h *Handler) handleEditPart(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "index")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req editPartRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.coord.EditPart(r.Context(), r.PathValue("brand"), r.PathValue("model"), i, req.Name, req.Price, req.Position)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// rejection describes a position that was not stored.
type rejection struct {
	Input    string   `json:"input"`
	Reason   string   `json:"reason"`
	Existing []string `json:"existing,omitempty"`
}

// addPartResponse is the outcome of an add-part request. When
// NeedsConfirmation is set, resubmitting with confirm stores the held back
// positions under the next free sub-position.
type addPartResponse struct {
	Number            int                `json:"number"`
	Added             []catalog.Position `json:"added"`
	Rejected          []rejection        `json:"rejected,omitempty"`
	NeedsConfirmation bool               `json:"needsConfirmation"`
}

func newAddPartResponse(res catalog.AddPartResult) addPartResponse {
	resp := addPartResponse{
		Number:            res.Number,
		Added:             nonNil(res.Added),
		NeedsConfirmation: res.NeedsConfirmation(),
	}
	for _, rej := range res.Rejected {
		resp.Rejected = append(resp.Rejected, rejection{
			Input:    rej.Input,
			Reason:   rej.Err.Error(),
			Existing: rej.Existing,
		})
	}
	return resp
}

// addPartStatus is 201 when something was stored, 409 when the request
// waits for confirmation and 400 when every position was invalid.
func addPartStatus(res catalog.AddPartResult) int {
	switch {
	case len(res.Added) > 0:
		return http.StatusCreated
	case res.NeedsConfirmation():
		return http.StatusConflict
	default:
		for _, rej := range res.Rejected {
			if errors.Is(rej, catalog.ErrDuplicateSubPosition) {
				return http.StatusConflict
			}
		}
		return http.StatusBadRequest
	}
}

func (h *Handler) handleAddPart(w http.ResponseWriter, r *http.Request) {
	var req catalog.AddPartRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.coord.AddPart(r.Context(), r.PathValue("brand"), r.PathValue("model"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, addPartStatus(res), newAddPartResponse(res))
}

type indicesRequest struct {
	Indices []int  `json:"indices"`
	Name    string `json:"name,omitempty"`
	Price   int64  `json:"price,omitempty"`
}

func (h *Handler) handleRemoveParts(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Indices) == 0 {
		h.writeError(w, fmt.Errorf("%w: indices are required", errBadRequest))
		return
	}
	if err := h.coord.RemoveParts(r.Context(), r.PathValue("brand"), r.PathValue("model"), req.Indices); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.coord.Groups(r.PathValue("brand"), r.PathValue("model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(groups))
}

func (h *Handler) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req indicesRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	brand, model := r.PathValue("brand"), r.PathValue("model")
	if err := h.coord.RenamePartGroup(r.Context(), brand, model, req.Indices, req.Name, req.Price); err != nil {
		h.writeError(w, err)
		return
	}
	groups, err := h.coord.Groups(brand, model)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(groups))
}

// handleMarkers renders the markers of a model. The optional "session"
// query parameter flags the parts that session selected.
func (h *Handler) handleMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.coord.Markers(r.URL.Query().Get("session"), r.PathValue("brand"), r.PathValue("model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(markers))
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
