package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mfcctl/internal/api/models"
	"github.com/smazurov/mfcctl/internal/presets"
)

func presetData(p presets.Preset) models.PresetData {
	out := models.PresetData{Name: p.Name, Description: p.Description, Controls: make([]models.SettingData, len(p.Controls))}
	for i, c := range p.Controls {
		out.Controls[i] = models.SettingData{Control: c.Control, Value: c.Value}
	}
	return out
}

func (s *Server) registerPresetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        "/api/presets",
		Summary:     "List Presets",
		Tags:        []string{"presets"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PresetListResponse, error) {
		resp := &models.PresetListResponse{}
		resp.Body.Presets = []models.PresetData{}
		if s.presets == nil {
			return resp, nil
		}
		resp.Body.Path = s.presets.Path()
		for _, p := range s.presets.List() {
			resp.Body.Presets = append(resp.Body.Presets, presetData(p))
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-preset",
		Method:      http.MethodPost,
		Path:        "/api/contexts/{id}/presets/{preset}",
		Summary:     "Apply Preset",
		Description: "Set every control of a named preset on a context",
		Tags:        []string{"presets"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.ApplyPresetRequest) (*models.ContextResponse, error) {
		if s.presets == nil {
			return nil, huma.Error404NotFound("no preset file loaded")
		}
		p, ok := s.presets.Get(input.Preset)
		if !ok {
			return nil, huma.Error404NotFound("preset " + input.Preset + " not found")
		}
		settings, err := p.Settings()
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err := s.sess.Set(input.ID, settings...); err != nil {
			return nil, s.mapSessionError(err)
		}
		return s.contextResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "run-scenario",
		Method:      http.MethodPost,
		Path:        "/api/scenarios/run",
		Summary:     "Run Scenario",
		Description: "Play a TOML frame scenario against fresh contexts and report every frame",
		Tags:        []string{"presets"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(ctx context.Context, input *models.ScenarioRequest) (*models.ScenarioResponse, error) {
		sc, err := presets.ParseScenario([]byte(input.Body.Scenario))
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		reports, err := s.runner.Run(ctx, sc)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		resp := &models.ScenarioResponse{}
		resp.Body.Name = sc.Name
		resp.Body.Frames = make([]models.FrameReportData, len(reports))
		for i, r := range reports {
			resp.Body.Frames[i] = models.FrameReportData(r)
		}
		return resp, nil
	})
}
