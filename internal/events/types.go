package events

// Event type identifiers for kelindar/event.
const (
	TypeControlApplied uint32 = iota + 1
	TypeControlCollected
	TypeControlRecovered
	TypeControlRejected
	TypeFrameSubmitted
	TypeFrameCompleted
	TypeFrameAborted
	TypePresetsReloaded
)

// Event is what kelindar/event dispatches on.
type Event interface {
	Type() uint32
}

// ControlAppliedEvent is one control written by an apply pass.
type ControlAppliedEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Mode      string `json:"mode" example:"sync" doc:"Submission mode"`
	Control   string `json:"control" example:"gop_size" doc:"Control name"`
	Value     int32  `json:"value" doc:"Applied value"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (ControlAppliedEvent) Type() uint32 { return TypeControlApplied }

// ControlCollectedEvent is one value read back after a frame.
type ControlCollectedEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Mode      string `json:"mode" doc:"Submission mode"`
	Control   string `json:"control" example:"frame_tag" doc:"Control name"`
	Value     int32  `json:"value" doc:"Collected value"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

func (ControlCollectedEvent) Type() uint32 { return TypeControlCollected }

// ControlRecoveredEvent is one volatile control rolled back.
type ControlRecoveredEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Mode      string `json:"mode" doc:"Submission mode"`
	Control   string `json:"control" doc:"Control name"`
	Restored  int32  `json:"restored" doc:"Snapshot written back or re-armed"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

func (ControlRecoveredEvent) Type() uint32 { return TypeControlRecovered }

// ControlRejectedEvent is a control the engine skipped or cut short.
type ControlRejectedEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Control   string `json:"control" doc:"Control name or id"`
	Value     int32  `json:"value" doc:"Requested value"`
	Code      string `json:"code" example:"INVALID_LAYER_COUNT" doc:"Rejection code"`
	Reason    string `json:"reason" doc:"Human readable reason"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

func (ControlRejectedEvent) Type() uint32 { return TypeControlRejected }

// FrameSubmittedEvent marks a frame handed to the device.
type FrameSubmittedEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Mode      string `json:"mode" doc:"Submission mode"`
	FrameTag  int32  `json:"frame_tag" doc:"Frame tag of the submission"`
	Controls  int    `json:"controls" doc:"Controls applied"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

func (FrameSubmittedEvent) Type() uint32 { return TypeFrameSubmitted }

// FrameCompletedEvent marks a frame whose results were collected.
type FrameCompletedEvent struct {
	Context   string           `json:"context" doc:"Context id"`
	Mode      string           `json:"mode" doc:"Submission mode"`
	FrameTag  int32            `json:"frame_tag" doc:"Frame tag reported by the device"`
	Values    map[string]int32 `json:"values" doc:"Collected controls"`
	Timestamp string           `json:"timestamp" doc:"Event timestamp"`
}

func (FrameCompletedEvent) Type() uint32 { return TypeFrameCompleted }

// FrameAbortedEvent marks a submission rolled back before completion.
type FrameAbortedEvent struct {
	Context   string `json:"context" doc:"Context id"`
	Mode      string `json:"mode" doc:"Submission mode"`
	FrameTag  int32  `json:"frame_tag" doc:"Frame tag of the aborted submission"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

func (FrameAbortedEvent) Type() uint32 { return TypeFrameAborted }

// PresetsReloadedEvent marks a preset file reload.
type PresetsReloadedEvent struct {
	Path      string   `json:"path" doc:"Preset file"`
	Presets   []string `json:"presets" doc:"Preset names now loaded"`
	Timestamp string   `json:"timestamp" doc:"Event timestamp"`
}

func (PresetsReloadedEvent) Type() uint32 { return TypePresetsReloaded }
