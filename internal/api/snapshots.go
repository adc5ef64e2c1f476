package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-pestmap/internal/humastar"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/store"
)

var snapshotActions = []humastar.ActionDef{
	{Rel: "install", Pattern: "/api/v1/snapshots/%s/install", Method: "POST", Title: "Install snapshot"},
	{Rel: "delete", Pattern: "/api/v1/snapshots/%s", Method: "DELETE", Title: "Delete snapshot"},
}

// SnapshotBody is a saved snapshot with its follow-up actions.
type SnapshotBody struct {
	store.Snapshot
}

// Actions implements humastar.Actor.
func (b SnapshotBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, snapshotActions)
}

type SaveSnapshotInput struct {
	Body struct {
		Label string `json:"label,omitempty" doc:"Free-form label" example:"july rice blast"`
	}
}

type InstallSnapshotInput struct {
	IDInput
	Wait bool `query:"wait" doc:"Block until the restored model has been rendered once"`
}

// RegisterSnapshots registers snapshot history routes.
func (h *APIHandler) RegisterSnapshots(api huma.API) {
	huma.Get(api, "/api/v1/snapshots", h.ListSnapshots, huma.OperationTags("snapshots"))
	huma.Post(api, "/api/v1/snapshots", h.SaveSnapshot, huma.OperationTags("snapshots"))
	huma.Post(api, "/api/v1/snapshots/{id}/install", h.InstallSnapshot, huma.OperationTags("snapshots"))
	huma.Delete(api, "/api/v1/snapshots/{id}", h.DeleteSnapshot, huma.OperationTags("snapshots"))
}

func (h *APIHandler) ListSnapshots(ctx context.Context, input *struct{}) (*struct{ Body []store.Snapshot }, error) {
	if h.svc.Store == nil {
		return &struct{ Body []store.Snapshot }{Body: []store.Snapshot{}}, nil
	}
	list, err := h.svc.Store.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing snapshots", err)
	}
	return &struct{ Body []store.Snapshot }{Body: list}, nil
}

func (h *APIHandler) SaveSnapshot(ctx context.Context, input *SaveSnapshotInput) (*struct{ Body SnapshotBody }, error) {
	if h.svc.Store == nil {
		return nil, huma.Error503ServiceUnavailable("snapshot history not available")
	}
	m := h.svc.Engine.Model()
	snap, err := h.svc.Store.Save(ctx, input.Body.Label, m.Predictions)
	if err != nil {
		return nil, huma.Error500InternalServerError("saving snapshot", err)
	}
	h.svc.Bus.Publish(service.Event{Kind: service.SnapshotSaved, Generation: m.Generation, ID: snap.ID})
	return &struct{ Body SnapshotBody }{Body: SnapshotBody{snap}}, nil
}

func (h *APIHandler) InstallSnapshot(ctx context.Context, input *InstallSnapshotInput) (*struct{ Body InstallBody }, error) {
	if h.svc.Store == nil {
		return nil, huma.Error503ServiceUnavailable("snapshot history not available")
	}
	_, preds, err := h.svc.Store.Load(ctx, input.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("snapshot not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("loading snapshot", err)
	}
	body, err := h.install(ctx, preds, input.Wait)
	if err != nil {
		return nil, err
	}
	return &struct{ Body InstallBody }{Body: body}, nil
}

func (h *APIHandler) DeleteSnapshot(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc.Store == nil {
		return nil, huma.Error503ServiceUnavailable("snapshot history not available")
	}
	if err := h.svc.Store.Delete(ctx, input.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("snapshot not found")
		}
		return nil, huma.Error500InternalServerError("deleting snapshot", err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Snapshot deleted"}}, nil
}
