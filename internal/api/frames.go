package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mfcctl/internal/api/models"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func (s *Server) registerFrameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "submit-frame",
		Method:      http.MethodPost,
		Path:        "/api/contexts/{id}/submit",
		Summary:     "Submit Frame",
		Description: "Apply the pending controls of a context for one frame, to the device registers (sync) or a command descriptor (queued)",
		Tags:        []string{"frames"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409},
	}, func(_ context.Context, input *models.SubmitRequest) (*models.SubmitResponse, error) {
		mode, err := bufctrl.ParseMode(input.Body.Mode)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		tag, err := s.sess.Submit(input.ID, mode)
		if err != nil {
			return nil, s.mapSessionError(err)
		}
		resp := &models.SubmitResponse{}
		resp.Body.Context = input.ID
		resp.Body.Mode = mode.String()
		resp.Body.FrameTag = tag
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "complete-frame",
		Method:      http.MethodPost,
		Path:        "/api/contexts/{id}/complete",
		Summary:     "Complete Frame",
		Description: "Run the in-flight frame on the device and collect the result controls",
		Tags:        []string{"frames"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(_ context.Context, input *models.CompleteRequest) (*models.FrameResponse, error) {
		frame, err := s.sess.Complete(input.ID, input.Body.Payload)
		if err != nil {
			return nil, s.mapSessionError(err)
		}
		values := make(map[string]int32, len(frame.Values))
		for id, v := range frame.Values {
			values[id.String()] = v
		}
		return &models.FrameResponse{Body: models.FrameData{
			Context:  frame.Context,
			Mode:     frame.Mode.String(),
			FrameTag: frame.FrameTag,
			Values:   values,
			Stream:   frame.Stream,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "abort-frame",
		Method:        http.MethodPost,
		Path:          "/api/contexts/{id}/abort",
		Summary:       "Abort Frame",
		Description:   "Roll back the volatile controls of the in-flight frame without running it",
		Tags:          []string{"frames"},
		DefaultStatus: http.StatusNoContent,
		Security:      withAuth(),
		Errors:        []int{401, 404, 409},
	}, func(_ context.Context, input *models.ContextPath) (*struct{}, error) {
		if err := s.sess.Abort(input.ID); err != nil {
			return nil, s.mapSessionError(err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "inject-device-error",
		Method:        http.MethodPost,
		Path:          "/api/device/inject-error",
		Summary:       "Inject Decode Error",
		Description:   "Make the next decoded frame report the given hardware error code",
		Tags:          []string{"device"},
		DefaultStatus: http.StatusNoContent,
		Security:      withAuth(),
		Errors:        []int{401},
	}, func(_ context.Context, input *models.InjectErrorRequest) (*struct{}, error) {
		s.sess.Device().InjectError(input.Body.Code)
		return nil, nil
	})
}
