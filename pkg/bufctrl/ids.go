package bufctrl

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a codec control. Values live in the V4L2 codec control class.
type ID uint32

const (
	codecBase ID = 0x00990900 // V4L2_CID_CODEC_BASE
	mfcBase   ID = 0x00991100 // vendor range
)

// Generic codec controls.
const (
	IDGOPSize        ID = codecBase + 203
	IDBitRate        ID = codecBase + 207
	IDH264MinQP      ID = codecBase + 353
	IDH264MaxQP      ID = codecBase + 354
	IDH264Level      ID = codecBase + 359
	IDH264Profile    ID = codecBase + 363
	IDForceKeyFrame  ID = codecBase + 229
	IDH264MinQPP     ID = codecBase + 391
	IDH264MaxQPP     ID = codecBase + 392
	IDColorRange     ID = codecBase + 700
	IDColorSpace     ID = codecBase + 701
	IDFrameErrorType ID = codecBase + 702
)

// Vendor controls.
const (
	IDFrameTag           ID = mfcBase + 1
	IDDisplayStatus      ID = mfcBase + 2
	IDLumaCRC            ID = mfcBase + 3
	IDChromaCRC          ID = mfcBase + 4
	IDFrameType          ID = mfcBase + 5
	IDFrameRateChange    ID = mfcBase + 6
	IDConfigQP           ID = mfcBase + 7
	IDHierarchicalLayers ID = mfcBase + 8
	IDH264BasePriority   ID = mfcBase + 9
	IDROIControl         ID = mfcBase + 10
	IDDropControl        ID = mfcBase + 11
)

var idNames = map[ID]string{
	IDGOPSize:            "gop_size",
	IDBitRate:            "bitrate",
	IDH264MinQP:          "h264_min_qp",
	IDH264MaxQP:          "h264_max_qp",
	IDH264MinQPP:         "h264_min_qp_p",
	IDH264MaxQPP:         "h264_max_qp_p",
	IDH264Level:          "h264_level",
	IDH264Profile:        "h264_profile",
	IDForceKeyFrame:      "force_key_frame",
	IDColorRange:         "color_range",
	IDColorSpace:         "color_space",
	IDFrameErrorType:     "frame_error_type",
	IDFrameTag:           "frame_tag",
	IDDisplayStatus:      "display_status",
	IDLumaCRC:            "luma_crc",
	IDChromaCRC:          "chroma_crc",
	IDFrameType:          "frame_type",
	IDFrameRateChange:    "frame_rate",
	IDConfigQP:           "config_qp",
	IDHierarchicalLayers: "hierarchical_layers",
	IDH264BasePriority:   "h264_base_priority",
	IDROIControl:         "roi_control",
	IDDropControl:        "drop_control",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(id))
}

// ParseID accepts a control name ("frame_tag") or a numeric id ("0x00991101").
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for id, name := range idNames {
		if name == s {
			return id, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown control %q", s)
	}
	return ID(n), nil
}
