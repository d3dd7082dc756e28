// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"time"
)

// Health models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Descriptor models
type DescriptorData struct {
	ID        string `json:"id" example:"0x00991101" doc:"Control id"`
	Name      string `json:"name" example:"frame_tag" doc:"Control name"`
	Direction string `json:"direction" example:"set_get" doc:"Set, get or both"`
	Location  string `json:"location" example:"field" doc:"How the control reaches the device"`
	Field     string `json:"field,omitempty" example:"E_PICTURE_TAG" doc:"Device field written on apply"`
	Width     uint8  `json:"width,omitempty" doc:"Bit width within the field"`
	Shift     uint8  `json:"shift,omitempty" doc:"Bit offset within the field"`
	ReadField string `json:"readField,omitempty" example:"E_RET_PICTURE_TAG" doc:"Field read on collect when it differs"`
	Flag      string `json:"flag,omitempty" example:"E_PARAM_CHANGE:0" doc:"Change flag raised on apply"`
	Volatile  bool   `json:"volatile" doc:"Rolled back when a submission is aborted"`
}

type DescriptorListInput struct {
	Kind string `path:"kind" enum:"encoder,decoder" doc:"Context kind"`
}

type DescriptorListResponse struct {
	Body struct {
		Kind        string           `json:"kind"`
		Descriptors []DescriptorData `json:"descriptors"`
	}
}

// Context models
type ControlData struct {
	ID    string `json:"id" doc:"Control id"`
	Name  string `json:"name" doc:"Control name"`
	Value int32  `json:"value" doc:"Last set or collected value"`
	State string `json:"state" enum:"clean,pending,applied" doc:"Lifecycle state"`
}

type EncoderParamsData struct {
	LayerCount      uint32   `json:"layerCount" doc:"Accepted temporal layer count"`
	LayerBitrates   []uint32 `json:"layerBitrates" doc:"Accepted per-layer bitrates"`
	BasePriority    uint32   `json:"basePriority"`
	Profile         uint32   `json:"profile"`
	Level           uint32   `json:"level"`
	ConfigQP        uint32   `json:"configQP"`
	FrameRate       uint32   `json:"frameRate" doc:"Frames per 1000 seconds"`
	FirmwareBitrate bool     `json:"firmwareBitrate"`
	ROIIndex        int      `json:"roiIndex"`
	ROIBuffers      []uint32 `json:"roiBuffers" doc:"DMA address of each ROI buffer"`
}

type ContextData struct {
	ID       string             `json:"id" doc:"Context id"`
	Kind     string             `json:"kind" example:"encoder"`
	Codec    string             `json:"codec" example:"h264"`
	FrameTag int32              `json:"frameTag" doc:"Frame tag of the last submission"`
	Controls []ControlData      `json:"controls" doc:"Control list in insertion order"`
	Encoder  *EncoderParamsData `json:"encoder,omitempty"`
}

type ContextResponse struct {
	Body ContextData
}

type ContextListResponse struct {
	Body struct {
		Contexts []ContextData `json:"contexts"`
		Count    int           `json:"count"`
	}
}

type ContextCreateRequest struct {
	Body struct {
		ID    string `json:"id,omitempty" doc:"Optional id; a UUID is generated when empty"`
		Kind  string `json:"kind" enum:"encoder,decoder"`
		Codec string `json:"codec" enum:"h264,hevc,vp8,vp9,h263,mpeg4"`
	}
}

type ContextPath struct {
	ID string `path:"id" doc:"Context id"`
}

// Control models
type SettingData struct {
	Control string `json:"control" example:"gop_size" doc:"Control name or numeric id"`
	Value   int32  `json:"value" example:"30"`
}

type SetControlsRequest struct {
	ID   string `path:"id" doc:"Context id"`
	Body struct {
		Controls []SettingData `json:"controls" minItems:"1"`
	}
}

type EncoderParamsRequest struct {
	ID   string `path:"id" doc:"Context id"`
	Body struct {
		SharedBitrates  []uint32 `json:"sharedBitrates,omitempty" maxItems:"7" doc:"Per-layer bitrates for the next layer change"`
		FirmwareBitrate *bool    `json:"firmwareBitrate,omitempty"`
		ROIBuffers      []uint32 `json:"roiBuffers,omitempty" doc:"DMA address of each ROI buffer"`
		ROIIndex        *int     `json:"roiIndex,omitempty" doc:"ROI buffer used by the next ROI control"`
	}
}

type DecoderStateRequest struct {
	ID   string `path:"id" doc:"Context id"`
	Body struct {
		ColorRange uint32 `json:"colorRange"`
		ColorSpace uint32 `json:"colorSpace"`
	}
}

// Frame models
type SubmitRequest struct {
	ID   string `path:"id" doc:"Context id"`
	Body struct {
		Mode string `json:"mode,omitempty" enum:"sync,queued" default:"sync"`
	}
}

type SubmitResponse struct {
	Body struct {
		Context  string `json:"context"`
		Mode     string `json:"mode"`
		FrameTag int32  `json:"frameTag"`
	}
}

type CompleteRequest struct {
	ID   string `path:"id" doc:"Context id"`
	Body struct {
		Payload []byte `json:"payload,omitempty" doc:"Raw picture for an encoder, bitstream for a decoder"`
	}
}

type FrameData struct {
	Context  string           `json:"context"`
	Mode     string           `json:"mode"`
	FrameTag int32            `json:"frameTag"`
	Values   map[string]int32 `json:"values" doc:"Collected control values by name"`
	Stream   []byte           `json:"stream,omitempty" doc:"Encoded bitstream"`
}

type FrameResponse struct {
	Body FrameData
}

type InjectErrorRequest struct {
	Body struct {
		Code uint32 `json:"code" example:"160" doc:"Error code the next decoded frame reports"`
	}
}

// Preset models
type PresetData struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Controls    []SettingData `json:"controls"`
}

type PresetListResponse struct {
	Body struct {
		Path    string       `json:"path"`
		Presets []PresetData `json:"presets"`
	}
}

type ApplyPresetRequest struct {
	ID     string `path:"id" doc:"Context id"`
	Preset string `path:"preset" doc:"Preset name"`
}

type ScenarioRequest struct {
	Body struct {
		Scenario string `json:"scenario" doc:"Scenario in TOML"`
	}
}

type FrameReportData struct {
	Index    int              `json:"index"`
	Context  string           `json:"context"`
	Mode     string           `json:"mode"`
	Aborted  bool             `json:"aborted"`
	FrameTag int32            `json:"frameTag"`
	Values   map[string]int32 `json:"values,omitempty"`
	Stream   int              `json:"streamBytes"`
}

type ScenarioResponse struct {
	Body struct {
		Name   string            `json:"name"`
		Frames []FrameReportData `json:"frames"`
	}
}

// Logging models
type LogsInput struct {
	Module string `query:"module" doc:"Only entries of this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
	Limit  int    `query:"limit" minimum:"0" doc:"Newest entries only; 0 for all"`
}

type LogEntryData struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Module  string         `json:"module"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

type LogsResponse struct {
	Body struct {
		Entries []LogEntryData `json:"entries"`
	}
}

type LogLevelsResponse struct {
	Body struct {
		Levels map[string]string `json:"levels" doc:"Level per module"`
	}
}

type SetLogLevelRequest struct {
	Module string `path:"module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error"`
	}
}
