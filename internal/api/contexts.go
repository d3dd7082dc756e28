package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mfcctl/internal/api/models"
	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func (s *Server) registerDescriptorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-descriptors",
		Method:      http.MethodGet,
		Path:        "/api/descriptors/{kind}",
		Summary:     "List Control Descriptors",
		Description: "Every control a context of the given kind accepts, with its device mapping",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.DescriptorListInput) (*models.DescriptorListResponse, error) {
		kind, err := bufctrl.ParseKind(input.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		descs := s.sess.Controller().Registry().Descriptors(kind)
		resp := &models.DescriptorListResponse{}
		resp.Body.Kind = kind.String()
		resp.Body.Descriptors = make([]models.DescriptorData, 0, len(descs))
		for _, d := range descs {
			resp.Body.Descriptors = append(resp.Body.Descriptors, descriptorData(d))
		}
		return resp, nil
	})
}

func descriptorData(d bufctrl.Descriptor) models.DescriptorData {
	out := models.DescriptorData{
		ID:        fmt.Sprintf("0x%08x", uint32(d.ID)),
		Name:      d.ID.String(),
		Direction: d.Direction.String(),
		Location:  d.Location.String(),
		Volatile:  d.Volatile,
	}
	if d.Span.Field != bufctrl.FieldNone {
		out.Field = d.Span.Field.String()
		out.Width = d.Span.Width
		out.Shift = d.Span.Shift
	}
	if d.Get != nil {
		out.ReadField = d.Get.Field.String()
	}
	if d.Flag != nil {
		out.Flag = fmt.Sprintf("%s:%d", d.Flag.Field, d.Flag.Bit)
	}
	return out
}

func contextData(c *bufctrl.Context) models.ContextData {
	out := models.ContextData{
		ID:       c.ID,
		Kind:     c.Kind.String(),
		Codec:    c.Codec.String(),
		FrameTag: c.StoredFrameTag,
		Controls: make([]models.ControlData, 0, c.Controls.Len()),
	}
	for inst := range c.Controls.All() {
		out.Controls = append(out.Controls, models.ControlData{
			ID:    fmt.Sprintf("0x%08x", uint32(inst.ID())),
			Name:  inst.ID().String(),
			Value: inst.Value,
			State: inst.State().String(),
		})
	}
	if enc := c.Enc; enc != nil {
		roi := make([]uint32, len(enc.ROIBuffers))
		for i, b := range enc.ROIBuffers {
			roi[i] = b.DMAAddr
		}
		out.Encoder = &models.EncoderParamsData{
			LayerCount:      enc.Layers.Count,
			LayerBitrates:   slices.Clone(enc.Layers.BitRate[:enc.Layers.Count]),
			BasePriority:    enc.BasePriority,
			Profile:         enc.Profile,
			Level:           enc.Level,
			ConfigQP:        enc.ConfigQP,
			FrameRate:       enc.FrameRate,
			FirmwareBitrate: enc.FirmwareBitrate,
			ROIIndex:        enc.ROIIndex,
			ROIBuffers:      roi,
		}
	}
	return out
}

func (s *Server) contextResponse(id string) (*models.ContextResponse, error) {
	resp := &models.ContextResponse{}
	err := s.sess.With(id, func(c *bufctrl.Context) error {
		resp.Body = contextData(c)
		return nil
	})
	if err != nil {
		return nil, s.mapSessionError(err)
	}
	return resp, nil
}

func parseSettings(in []models.SettingData) ([]session.Setting, error) {
	out := make([]session.Setting, 0, len(in))
	for _, st := range in {
		id, err := bufctrl.ParseID(st.Control)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		out = append(out, session.Setting{ID: id, Value: st.Value})
	}
	return out, nil
}

func (s *Server) registerContextRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-contexts",
		Method:      http.MethodGet,
		Path:        "/api/contexts",
		Summary:     "List Contexts",
		Tags:        []string{"contexts"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ContextListResponse, error) {
		resp := &models.ContextListResponse{}
		resp.Body.Contexts = []models.ContextData{}
		for _, id := range s.sess.IDs() {
			// A context deleted since IDs was taken is skipped.
			_ = s.sess.With(id, func(c *bufctrl.Context) error {
				resp.Body.Contexts = append(resp.Body.Contexts, contextData(c))
				return nil
			})
		}
		resp.Body.Count = len(resp.Body.Contexts)
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-context",
		Method:        http.MethodPost,
		Path:          "/api/contexts",
		Summary:       "Create Context",
		Description:   "Open an encoder or decoder context with an empty control list",
		Tags:          []string{"contexts"},
		DefaultStatus: http.StatusCreated,
		Security:      withAuth(),
		Errors:        []int{400, 401, 409},
	}, func(_ context.Context, input *models.ContextCreateRequest) (*models.ContextResponse, error) {
		kind, err := bufctrl.ParseKind(input.Body.Kind)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		codec, err := bufctrl.ParseCodec(input.Body.Codec)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		var c *bufctrl.Context
		if input.Body.ID == "" {
			c = s.sess.Create(kind, codec)
		} else {
			if s.sess.With(input.Body.ID, func(*bufctrl.Context) error { return nil }) == nil {
				return nil, huma.Error409Conflict(fmt.Sprintf("context %q already exists", input.Body.ID))
			}
			c = s.sess.CreateWithID(input.Body.ID, kind, codec)
		}
		return s.contextResponse(c.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-context",
		Method:      http.MethodGet,
		Path:        "/api/contexts/{id}",
		Summary:     "Get Context",
		Tags:        []string{"contexts"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ContextPath) (*models.ContextResponse, error) {
		return s.contextResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-context",
		Method:        http.MethodDelete,
		Path:          "/api/contexts/{id}",
		Summary:       "Delete Context",
		Tags:          []string{"contexts"},
		DefaultStatus: http.StatusNoContent,
		Security:      withAuth(),
		Errors:        []int{401, 404},
	}, func(_ context.Context, input *models.ContextPath) (*struct{}, error) {
		if err := s.sess.Delete(input.ID); err != nil {
			return nil, s.mapSessionError(err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-controls",
		Method:      http.MethodPost,
		Path:        "/api/contexts/{id}/controls",
		Summary:     "Set Controls",
		Description: "Record control values for the next submission. Unknown controls are skipped and reported on the event stream.",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.SetControlsRequest) (*models.ContextResponse, error) {
		settings, err := parseSettings(input.Body.Controls)
		if err != nil {
			return nil, err
		}
		if err := s.sess.Set(input.ID, settings...); err != nil {
			return nil, s.mapSessionError(err)
		}
		return s.contextResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-encoder-params",
		Method:      http.MethodPut,
		Path:        "/api/contexts/{id}/encoder",
		Summary:     "Update Encoder Parameters",
		Description: "Fill the shared layer bitrates and ROI buffers the next layer change or ROI control reads",
		Tags:        []string{"contexts"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.EncoderParamsRequest) (*models.ContextResponse, error) {
		body := input.Body
		err := s.sess.With(input.ID, func(c *bufctrl.Context) error {
			if c.Enc == nil {
				return huma.Error400BadRequest("not an encoder context")
			}
			if body.SharedBitrates != nil {
				c.Enc.SharedLayers = bufctrl.TemporalLayers{Count: uint32(len(body.SharedBitrates))}
				copy(c.Enc.SharedLayers.BitRate[:], body.SharedBitrates)
			}
			if body.FirmwareBitrate != nil {
				c.Enc.FirmwareBitrate = *body.FirmwareBitrate
			}
			if body.ROIBuffers != nil {
				c.Enc.ROIBuffers = make([]bufctrl.ROIBuffer, len(body.ROIBuffers))
				for i, addr := range body.ROIBuffers {
					c.Enc.ROIBuffers[i].DMAAddr = addr
				}
			}
			if body.ROIIndex != nil {
				c.Enc.ROIIndex = *body.ROIIndex
			}
			return nil
		})
		if err != nil {
			return nil, s.mapContextError(err)
		}
		return s.contextResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-decoder-state",
		Method:      http.MethodPut,
		Path:        "/api/contexts/{id}/decoder",
		Summary:     "Update Decoder State",
		Description: "Set the color description the decoder reports through its virtual controls",
		Tags:        []string{"contexts"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(_ context.Context, input *models.DecoderStateRequest) (*models.ContextResponse, error) {
		err := s.sess.With(input.ID, func(c *bufctrl.Context) error {
			if c.Kind != bufctrl.KindDecoder {
				return huma.Error400BadRequest("not a decoder context")
			}
			c.Dec.ColorRange = input.Body.ColorRange
			c.Dec.ColorSpace = input.Body.ColorSpace
			return nil
		})
		if err != nil {
			return nil, s.mapContextError(err)
		}
		return s.contextResponse(input.ID)
	})
}

// mapContextError passes through HTTP errors raised inside Session.With.
func (s *Server) mapContextError(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	return s.mapSessionError(err)
}
