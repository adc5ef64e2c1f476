package api

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/engine"
	"github.com/joeblew999/plat-pestmap/internal/simulate"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

type PredictionsBody struct {
	Generation  uint64              `json:"generation" doc:"Model generation"`
	InstalledAt time.Time           `json:"installedAt,omitempty" doc:"When the model was installed"`
	Samples     int                 `json:"samples" doc:"Number of interpolation samples"`
	Predictions surface.Predictions `json:"predictions" doc:"Prediction per region code"`
}

type PutPredictionsInput struct {
	Wait bool                `query:"wait" doc:"Block until the new model has been rendered once (or the render timeout elapses)"`
	Body surface.Predictions `doc:"Full replacement prediction map keyed by region code"`
}

type SimulateInput struct {
	Wait bool `query:"wait" doc:"Block until the new model has been rendered once"`
	Body struct {
		Crop string `json:"crop" doc:"Crop code" example:"FC010101"`
		Pest string `json:"pest" doc:"Pest or disease code" example:"D00001"`
		Date string `json:"date,omitempty" doc:"Date (YYYY-MM-DD), default today" example:"2025-07-15"`
	}
}

type InstallBody struct {
	Generation uint64 `json:"generation" doc:"Generation of the installed model"`
	Samples    int    `json:"samples" doc:"Number of interpolation samples"`
	Dropped    int    `json:"dropped" doc:"Predictions dropped for unknown regions"`
	Render     string `json:"render,omitempty" doc:"Render signal outcome when waited on" enum:"completed,timeout"`
}

// RegisterPredictions registers the prediction model routes.
func (h *APIHandler) RegisterPredictions(api huma.API) {
	huma.Get(api, "/api/v1/predictions", h.GetPredictions, huma.OperationTags("predictions"))
	huma.Put(api, "/api/v1/predictions", h.PutPredictions, huma.OperationTags("predictions"))
	huma.Post(api, "/api/v1/predictions/simulate", h.SimulatePredictions, huma.OperationTags("predictions"))
}

func (h *APIHandler) GetPredictions(ctx context.Context, input *struct{}) (*struct{ Body PredictionsBody }, error) {
	m := h.svc.Engine.Model()
	return &struct{ Body PredictionsBody }{Body: PredictionsBody{
		Generation:  m.Generation,
		InstalledAt: m.InstalledAt,
		Samples:     len(m.Samples),
		Predictions: m.Predictions,
	}}, nil
}

func (h *APIHandler) PutPredictions(ctx context.Context, input *PutPredictionsInput) (*struct{ Body InstallBody }, error) {
	if err := input.Body.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	body, err := h.install(ctx, input.Body, input.Wait)
	if err != nil {
		return nil, err
	}
	return &struct{ Body InstallBody }{Body: body}, nil
}

func (h *APIHandler) SimulatePredictions(ctx context.Context, input *SimulateInput) (*struct{ Body InstallBody }, error) {
	date := time.Now()
	if input.Body.Date != "" {
		d, err := time.Parse(simulate.DateLayout, input.Body.Date)
		if err != nil {
			return nil, huma.Error400BadRequest("date must be YYYY-MM-DD", err)
		}
		date = d
	}
	preds := simulate.Generate(h.svc.Engine.Regions(), simulate.Params{
		Crop: input.Body.Crop,
		Pest: input.Body.Pest,
		Date: date,
	})
	body, err := h.install(ctx, preds, input.Wait)
	if err != nil {
		return nil, err
	}
	return &struct{ Body InstallBody }{Body: body}, nil
}

// install swaps preds in and optionally waits on the render signal.
func (h *APIHandler) install(ctx context.Context, preds surface.Predictions, wait bool) (InstallBody, error) {
	m, sig, err := h.svc.Engine.Update(preds)
	if err != nil {
		return InstallBody{}, huma.Error500InternalServerError("installing predictions", err)
	}
	body := InstallBody{
		Generation: m.Generation,
		Samples:    len(m.Samples),
		Dropped:    len(preds) - len(m.Samples),
	}
	if !wait {
		return body, nil
	}

	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	out, err := sig.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			out = engine.TimedOut
		} else {
			return InstallBody{}, err
		}
	}
	body.Render = out.String()
	h.log.Debug("render signal resolved", zap.Uint64("generation", body.Generation), zap.String("outcome", body.Render))
	return body, nil
}
